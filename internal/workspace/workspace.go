// Package workspace resolves the workspace folders and the active editor
// state that interpolation variables are built from.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jmgilman/actionbar/internal/config"
	"github.com/jmgilman/actionbar/internal/exec"
	"github.com/jmgilman/actionbar/internal/host"
)

// ErrNotRepository is returned by GitRoot outside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Workspace implements host.Workspace over a fixed folder list.
type Workspace struct {
	folders []host.Folder

	mu     sync.RWMutex
	editor *host.EditorState
}

var _ host.Workspace = (*Workspace)(nil)

// New creates a Workspace from explicit folders.
func New(folders ...host.Folder) *Workspace {
	return &Workspace{folders: folders}
}

// Open resolves the workspace for dir. Configured folders win; relative
// folder paths are taken from dir. Without any, the git top-level of dir is
// the single folder, and dir itself when it is not inside a repository.
func Open(ctx context.Context, e exec.Executor, dir string, configured []config.Folder) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}

	if len(configured) > 0 {
		folders := make([]host.Folder, 0, len(configured))
		for _, f := range configured {
			path := f.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(abs, path)
			}
			folders = append(folders, host.Folder{Name: f.Name, Path: filepath.Clean(path)})
		}
		return New(folders...), nil
	}

	root, err := GitRoot(ctx, e, abs)
	switch {
	case errors.Is(err, ErrNotRepository):
		root = abs
	case err != nil:
		return nil, err
	}

	return New(host.Folder{Name: filepath.Base(root), Path: root}), nil
}

// GitRoot returns the top-level directory of the work tree containing dir.
func GitRoot(ctx context.Context, e exec.Executor, dir string) (string, error) {
	result, err := e.Run(ctx, &exec.RunOptions{
		Name: "git",
		Args: []string{"rev-parse", "--show-toplevel"},
		Dir:  dir,
	})
	if err != nil {
		if strings.Contains(result.StderrText(), "not a git repository") {
			return "", ErrNotRepository
		}
		if _, lookErr := e.LookPath("git"); lookErr != nil {
			return "", ErrNotRepository
		}
		if stderr := result.StderrText(); stderr != "" {
			return "", fmt.Errorf("get repository root: %s", stderr)
		}
		return "", fmt.Errorf("get repository root: %w", err)
	}

	return filepath.Clean(result.StdoutText()), nil
}

// Folders implements host.Workspace.
func (w *Workspace) Folders() []host.Folder {
	out := make([]host.Folder, len(w.folders))
	copy(out, w.folders)
	return out
}

// FolderOf implements host.Workspace. The deepest folder containing path
// wins when folders are nested.
func (w *Workspace) FolderOf(path string) (host.Folder, bool) {
	if path == "" {
		return host.Folder{}, false
	}
	path = filepath.Clean(path)

	candidates := make([]host.Folder, 0, len(w.folders))
	for _, f := range w.folders {
		if contains(f.Path, path) {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return host.Folder{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].Path) > len(candidates[j].Path)
	})
	return candidates[0], true
}

// ActiveEditor implements host.Workspace.
func (w *Workspace) ActiveEditor() *host.EditorState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.editor == nil {
		return nil
	}
	e := *w.editor
	return &e
}

// SetEditor replaces the active editor. nil clears it.
func (w *Workspace) SetEditor(e *host.EditorState) {
	w.mu.Lock()
	w.editor = e
	w.mu.Unlock()
}

// Editor builds editor state from one-based line and column positions as
// typed on a command line. A relative file is taken from base. It returns
// nil when file is empty.
func Editor(base, file string, line, column int, selection string) *host.EditorState {
	if file == "" {
		return nil
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(base, file)
	}
	return &host.EditorState{
		File:         filepath.Clean(file),
		Line:         max(line-1, 0),
		Column:       max(column-1, 0),
		SelectedText: selection,
	}
}

func contains(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
