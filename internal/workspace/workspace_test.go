package workspace

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/actionbar/internal/config"
	"github.com/jmgilman/actionbar/internal/exec"
	"github.com/jmgilman/actionbar/internal/exec/mocks"
	"github.com/jmgilman/actionbar/internal/host"
)

func gitMock(stdout, stderr string, err error) *mocks.ExecutorMock {
	return &mocks.ExecutorMock{
		RunFunc: func(_ context.Context, opts *exec.RunOptions) (*exec.Result, error) {
			return &exec.Result{Stdout: []byte(stdout), Stderr: []byte(stderr)}, err
		},
		LookPathFunc: func(name string) (string, error) {
			return "/usr/bin/" + name, nil
		},
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("configured folders", func(t *testing.T) {
		e := gitMock("", "", nil)
		w, err := Open(ctx, e, dir, []config.Folder{
			{Name: "api", Path: "services/api"},
			{Name: "abs", Path: "/srv/web"},
		})
		require.NoError(t, err)

		assert.Equal(t, []host.Folder{
			{Name: "api", Path: filepath.Join(dir, "services", "api")},
			{Name: "abs", Path: "/srv/web"},
		}, w.Folders())
		assert.Empty(t, e.RunCalls(), "git is not consulted")
	})

	t.Run("git top-level", func(t *testing.T) {
		e := gitMock("/home/me/project\n", "", nil)
		w, err := Open(ctx, e, dir, nil)
		require.NoError(t, err)

		assert.Equal(t, []host.Folder{{Name: "project", Path: "/home/me/project"}}, w.Folders())
		require.Len(t, e.RunCalls(), 1)
		call := e.RunCalls()[0].Opts
		assert.Equal(t, "git", call.Name)
		assert.Equal(t, []string{"rev-parse", "--show-toplevel"}, call.Args)
		assert.Equal(t, dir, call.Dir)
	})

	t.Run("outside repository", func(t *testing.T) {
		e := gitMock("", "fatal: not a git repository (or any of the parent directories): .git", errors.New("exit status 128"))
		w, err := Open(ctx, e, dir, nil)
		require.NoError(t, err)

		assert.Equal(t, []host.Folder{{Name: filepath.Base(dir), Path: dir}}, w.Folders())
	})

	t.Run("git missing", func(t *testing.T) {
		e := gitMock("", "", errors.New("executable file not found"))
		e.LookPathFunc = func(string) (string, error) { return "", errors.New("not found") }

		w, err := Open(ctx, e, dir, nil)
		require.NoError(t, err)
		assert.Equal(t, dir, w.Folders()[0].Path)
	})

	t.Run("git failure", func(t *testing.T) {
		e := gitMock("", "fatal: detected dubious ownership", errors.New("exit status 128"))
		_, err := Open(ctx, e, dir, nil)
		assert.EqualError(t, err, "get repository root: fatal: detected dubious ownership")
	})
}

func TestWorkspace_FolderOf(t *testing.T) {
	w := New(
		host.Folder{Name: "root", Path: "/work"},
		host.Folder{Name: "app", Path: "/work/app"},
		host.Folder{Name: "other", Path: "/other"},
	)

	tests := []struct {
		name   string
		path   string
		want   string
		wantOK bool
	}{
		{name: "nested folder wins", path: "/work/app/main.go", want: "app", wantOK: true},
		{name: "outer folder", path: "/work/README.md", want: "root", wantOK: true},
		{name: "folder itself", path: "/other", want: "other", wantOK: true},
		{name: "sibling prefix is not contained", path: "/workspace/file", wantOK: false},
		{name: "outside", path: "/tmp/file", wantOK: false},
		{name: "empty", path: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := w.FolderOf(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestWorkspace_Editor(t *testing.T) {
	w := New()
	assert.Nil(t, w.ActiveEditor())

	w.SetEditor(Editor("/work", "src/main.go", 10, 5, "foo"))
	got := w.ActiveEditor()
	require.NotNil(t, got)
	assert.Equal(t, host.EditorState{File: "/work/src/main.go", Line: 9, Column: 4, SelectedText: "foo"}, *got)

	got.File = "changed"
	assert.Equal(t, "/work/src/main.go", w.ActiveEditor().File, "returned state is a copy")

	w.SetEditor(nil)
	assert.Nil(t, w.ActiveEditor())
}

func TestEditor(t *testing.T) {
	assert.Nil(t, Editor("/work", "", 1, 1, ""))

	e := Editor("/work", "/abs/file.go", 0, 0, "")
	assert.Equal(t, "/abs/file.go", e.File)
	assert.Equal(t, 0, e.Line)
	assert.Equal(t, 0, e.Column)
}
