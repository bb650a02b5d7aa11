package vars

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmgilman/actionbar/internal/host"
)

// Snapshot is the host state a Context is computed from.
type Snapshot struct {
	Home       string
	Folders    []host.Folder     // First folder is the primary workspace root
	Editor     *host.EditorState // nil when no editor is active
	FileFolder *host.Folder      // Workspace folder containing Editor.File
	ExecPath   string
	OS         string // runtime.GOOS of the host
}

// Build computes a Context from s. It has no side effects.
func Build(s Snapshot) *Context {
	norm := func(p string) string { return NormalizeDriveLetter(p, s.OS) }

	c := &Context{
		UserHome:      Present(norm(s.Home)),
		ExecPath:      Present(norm(s.ExecPath)),
		PathSeparator: Present(pathSeparator(s.OS)),
	}

	for _, f := range s.Folders {
		c.folders = append(c.folders, host.Folder{Name: f.Name, Path: norm(f.Path)})
	}

	var root string
	if len(c.folders) > 0 {
		root = c.folders[0].Path
		c.WorkspaceFolder = Present(root)
		c.WorkspaceFolderBasename = Present(filepath.Base(root))
		c.Cwd = Present(root)
	} else {
		c.Cwd = c.UserHome
	}

	if s.Editor == nil {
		return c
	}

	file := norm(s.Editor.File)
	base := filepath.Base(file)
	ext := filepath.Ext(base)
	dir := filepath.Dir(file)

	c.File = Present(file)
	c.FileBasename = Present(base)
	c.FileExtname = Present(ext)
	c.FileBasenameNoExtension = Present(strings.TrimSuffix(base, ext))
	c.FileDirname = Present(dir)
	c.FileDirnameBasename = Present(filepath.Base(dir))
	c.LineNumber = Present(strconv.Itoa(s.Editor.Line + 1))
	c.ColumnNumber = Present(strconv.Itoa(s.Editor.Column + 1))
	c.SelectedText = Present(s.Editor.SelectedText)

	if s.FileFolder != nil {
		c.FileWorkspaceFolder = Present(norm(s.FileFolder.Path))
	}

	if root != "" {
		if rel, err := filepath.Rel(root, file); err == nil {
			c.RelativeFile = Present(rel)
			c.RelativeFileDirname = Present(filepath.Base(filepath.Dir(rel)))
		}
	}

	return c
}

func pathSeparator(goos string) string {
	if goos == "windows" {
		return `\`
	}
	return "/"
}
