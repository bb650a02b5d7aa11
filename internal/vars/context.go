// Package vars builds the read-only variable context that command and cwd
// templates are resolved against.
//
// The set of variables is closed: every name a template may reference is
// declared in this package, and lookups outside that set fail with
// ErrUnknownVariable instead of walking arbitrary data.
package vars

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmgilman/actionbar/internal/host"
)

// ErrUnknownVariable is returned for names outside the declared set.
var ErrUnknownVariable = errors.New("unknown variable")

// Context is a snapshot of the facts available to templates.
type Context struct {
	UserHome                Value
	WorkspaceFolder         Value
	WorkspaceFolderBasename Value
	File                    Value
	FileWorkspaceFolder     Value
	RelativeFile            Value
	RelativeFileDirname     Value
	FileBasename            Value
	FileBasenameNoExtension Value
	FileExtname             Value
	FileDirname             Value
	FileDirnameBasename     Value
	LineNumber              Value
	ColumnNumber            Value
	SelectedText            Value
	ExecPath                Value
	PathSeparator           Value
	Cwd                     Value

	folders []host.Folder
}

// WithCwd returns a copy of c whose cwd is v.
func (c *Context) WithCwd(v Value) *Context {
	cp := *c
	cp.Cwd = v
	return &cp
}

// Folder returns the path of the workspace folder named name.
func (c *Context) Folder(name string) (string, bool) {
	for _, f := range c.folders {
		if f.Name == name {
			return f.Path, true
		}
	}
	return "", false
}

// Lookup resolves a dot-separated variable path, first segment first.
// When any segment along the way is absent the result is Absent.
func (c *Context) Lookup(path string) (Value, error) {
	if !Declared(path) {
		return Absent, fmt.Errorf("%w: %s", ErrUnknownVariable, path)
	}

	nodes := schema
	var v Value
	for _, seg := range strings.Split(path, ".") {
		n := nodes[seg]
		v = n.get(c)
		if v.IsAbsent() {
			return Absent, nil
		}
		nodes = n.children
	}
	return v, nil
}

// Declared reports whether path names a variable in the declared set.
func Declared(path string) bool {
	if path == "" {
		return false
	}
	nodes := schema
	for _, seg := range strings.Split(path, ".") {
		n, ok := nodes[seg]
		if !ok {
			return false
		}
		nodes = n.children
	}
	return true
}

// Names lists every declared variable path, sorted.
func Names() []string {
	var names []string
	var walk func(prefix string, nodes map[string]*node)
	walk = func(prefix string, nodes map[string]*node) {
		for name, n := range nodes {
			full := name
			if prefix != "" {
				full = prefix + "." + name
			}
			names = append(names, full)
			walk(full, n.children)
		}
	}
	walk("", schema)
	sort.Strings(names)
	return names
}

type node struct {
	get      func(*Context) Value
	children map[string]*node
}

func leaf(get func(*Context) Value) *node {
	return &node{get: get}
}

var schema = map[string]*node{
	"userHome":                leaf(func(c *Context) Value { return c.UserHome }),
	"workspaceFolderBasename": leaf(func(c *Context) Value { return c.WorkspaceFolderBasename }),
	"fileWorkspaceFolder":     leaf(func(c *Context) Value { return c.FileWorkspaceFolder }),
	"relativeFile":            leaf(func(c *Context) Value { return c.RelativeFile }),
	"relativeFileDirname":     leaf(func(c *Context) Value { return c.RelativeFileDirname }),
	"fileBasename":            leaf(func(c *Context) Value { return c.FileBasename }),
	"fileBasenameNoExtension": leaf(func(c *Context) Value { return c.FileBasenameNoExtension }),
	"fileExtname":             leaf(func(c *Context) Value { return c.FileExtname }),
	"fileDirname":             leaf(func(c *Context) Value { return c.FileDirname }),
	"fileDirnameBasename":     leaf(func(c *Context) Value { return c.FileDirnameBasename }),
	"lineNumber":              leaf(func(c *Context) Value { return c.LineNumber }),
	"columnNumber":            leaf(func(c *Context) Value { return c.ColumnNumber }),
	"selectedText":            leaf(func(c *Context) Value { return c.SelectedText }),
	"execPath":                leaf(func(c *Context) Value { return c.ExecPath }),
	"pathSeparator":           leaf(func(c *Context) Value { return c.PathSeparator }),
	"cwd":                     leaf(func(c *Context) Value { return c.Cwd }),
	"workspaceFolder": {
		get: func(c *Context) Value { return c.WorkspaceFolder },
		children: map[string]*node{
			"basename": leaf(func(c *Context) Value { return c.WorkspaceFolderBasename }),
		},
	},
	"file": {
		get: func(c *Context) Value { return c.File },
		children: map[string]*node{
			"basename":            leaf(func(c *Context) Value { return c.FileBasename }),
			"basenameNoExtension": leaf(func(c *Context) Value { return c.FileBasenameNoExtension }),
			"extname":             leaf(func(c *Context) Value { return c.FileExtname }),
			"dirname":             leaf(func(c *Context) Value { return c.FileDirname }),
			"dirnameBasename":     leaf(func(c *Context) Value { return c.FileDirnameBasename }),
			"relative":            leaf(func(c *Context) Value { return c.RelativeFile }),
			"relativeDirname":     leaf(func(c *Context) Value { return c.RelativeFileDirname }),
			"workspaceFolder":     leaf(func(c *Context) Value { return c.FileWorkspaceFolder }),
		},
	},
	"selection": {
		get: func(c *Context) Value { return c.SelectedText },
		children: map[string]*node{
			"text":   leaf(func(c *Context) Value { return c.SelectedText }),
			"line":   leaf(func(c *Context) Value { return c.LineNumber }),
			"column": leaf(func(c *Context) Value { return c.ColumnNumber }),
		},
	},
}
