package prompt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
)

func TestHuhPrompter_Print(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Print("hello")
	assert.Equal(t, "hello\n", buf.String())
}

func TestHuhPrompter_ChoiceWithoutOptions(t *testing.T) {
	_, err := New(&bytes.Buffer{}).Choice("Run", nil)
	assert.ErrorIs(t, err, ErrNoOptions)
}

func TestOption_String(t *testing.T) {
	assert.Equal(t, "Build", Option{Label: "Build"}.String())
	assert.Equal(t, "Build  make all", Option{Label: "Build", Description: "make all"}.String())
}

func TestWrap(t *testing.T) {
	assert.ErrorIs(t, wrap("confirm prompt", huh.ErrUserAborted), ErrCanceled)

	other := errors.New("tty closed")
	err := wrap("confirm prompt", other)
	assert.ErrorIs(t, err, other)
	assert.EqualError(t, err, "confirm prompt: tty closed")
}
