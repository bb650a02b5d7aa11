package exec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_Run(t *testing.T) {
	e := New()
	ctx := context.Background()

	t.Run("captures stdout and stderr", func(t *testing.T) {
		result, err := e.Run(ctx, &RunOptions{
			Name: "sh",
			Args: []string{"-c", "echo out; echo err >&2"},
		})

		require.NoError(t, err)
		assert.Equal(t, "out", result.StdoutText())
		assert.Equal(t, "err", result.StderrText())
		assert.Equal(t, 0, result.ExitCode)
	})

	t.Run("reports exit code on failure", func(t *testing.T) {
		result, err := e.Run(ctx, &RunOptions{
			Name: "sh",
			Args: []string{"-c", "exit 3"},
		})

		require.Error(t, err)
		assert.Equal(t, 3, result.ExitCode)
		assert.Equal(t, 3, ExitCode(err))
	})

	t.Run("streams to writers", func(t *testing.T) {
		var out bytes.Buffer
		result, err := e.Run(ctx, &RunOptions{
			Name:   "echo",
			Args:   []string{"streamed"},
			Stdout: &out,
		})

		require.NoError(t, err)
		assert.Nil(t, result.Stdout)
		assert.Equal(t, "streamed\n", out.String())
	})

	t.Run("passes dir and env", func(t *testing.T) {
		dir := t.TempDir()
		result, err := e.Run(ctx, &RunOptions{
			Name: "sh",
			Args: []string{"-c", "echo $AB_VAR; pwd"},
			Dir:  dir,
			Env:  []string{"AB_VAR=hello"},
		})

		require.NoError(t, err)
		lines := strings.Split(result.StdoutText(), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "hello", lines[0])
		assert.Contains(t, lines[1], dir[strings.LastIndex(dir, "/")+1:])
	})

	t.Run("reads stdin", func(t *testing.T) {
		result, err := e.Run(ctx, &RunOptions{
			Name:  "cat",
			Stdin: strings.NewReader("input"),
		})

		require.NoError(t, err)
		assert.Equal(t, "input", string(result.Stdout))
	})

	t.Run("honours context deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		_, err := e.Run(ctx, &RunOptions{Name: "sleep", Args: []string{"10"}})

		require.Error(t, err)
	})
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, -1, ExitCode(errors.New("boom")))

	_, err := exec.Command("sh", "-c", "exit 7").Output()
	assert.Equal(t, 7, ExitCode(err))
}

func TestResult_NilSafe(t *testing.T) {
	var r *Result
	assert.Empty(t, r.StdoutText())
	assert.Empty(t, r.StderrText())
}

func TestExecutor_LookPath(t *testing.T) {
	e := New()

	path, err := e.LookPath("sh")
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	_, err = e.LookPath("nonexistent_command_12345")
	var execErr *exec.Error
	assert.ErrorAs(t, err, &execErr)
}
