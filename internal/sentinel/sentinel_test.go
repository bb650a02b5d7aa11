package sentinel

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/actionbar/internal/host"
)

func TestNewToken(t *testing.T) {
	a := NewToken()
	b := NewToken()

	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9]+$`), a)
	assert.Len(t, a, 12)
	assert.NotEqual(t, a, b)
}

func TestSuffix(t *testing.T) {
	tests := []struct {
		shell host.Shell
		want  string
	}{
		{host.ShellPosix, `; echo "__REQ__:abc:$?"`},
		{host.ShellPowerShell, `; Write-Output "__REQ__:abc:$LASTEXITCODE"`},
		{host.ShellCmd, ` & echo __REQ__:abc:%ERRORLEVEL%`},
	}

	for _, tt := range tests {
		t.Run(string(tt.shell), func(t *testing.T) {
			got := Suffix(tt.shell, "abc")
			assert.Equal(t, tt.want, got)
			assert.Contains(t, got, Marker("abc"))
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("emitted marker", func(t *testing.T) {
		m, ok := Parse("  __REQ__:a1b2:0  ")

		require.True(t, ok)
		assert.Equal(t, "a1b2", m.Token)
		assert.Equal(t, 0, m.ExitCode)
		assert.Equal(t, "__REQ__:a1b2:0", m.Line)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		m, ok := Parse("__REQ__:tok:127")

		require.True(t, ok)
		assert.Equal(t, 127, m.ExitCode)
	})

	t.Run("typed command line is ignored", func(t *testing.T) {
		line := "$ make build" + Suffix(host.ShellPosix, "tok")

		_, ok := Parse(line)

		assert.False(t, ok)
	})

	t.Run("plain output", func(t *testing.T) {
		_, ok := Parse("hello world")
		assert.False(t, ok)
	})
}

func TestParseAll(t *testing.T) {
	text := "build ok\n__REQ__:one:0\nnoise\n__REQ__:two:1\n"

	got := ParseAll(text)

	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Token)
	assert.Equal(t, "two", got[1].Token)
	assert.Equal(t, 1, got[1].ExitCode)
}

func TestScanner(t *testing.T) {
	var got []Match
	s := NewScanner(func(m Match) { got = append(got, m) })

	_, err := fmt.Fprint(s, "output\n__REQ__:ab")
	require.NoError(t, err)
	assert.Empty(t, got, "partial line must wait for newline")

	_, err = fmt.Fprint(s, "c:2\nmore\n")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0].Token)
	assert.Equal(t, 2, got[0].ExitCode)
}
