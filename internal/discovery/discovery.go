// Package discovery turns package.json script tables into command
// specifications.
package discovery

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/gjson"

	"github.com/jmgilman/actionbar/internal/config"
	"github.com/jmgilman/actionbar/internal/slogger"
)

// DefaultPattern matches the workspace root manifest.
const DefaultPattern = "package.json"

// lockfiles maps a lockfile beside a manifest to the client that owns it.
// Checked in order; npm is the fallback.
var lockfiles = []struct {
	file   string
	client string
}{
	{"pnpm-lock.yaml", "pnpm"},
	{"yarn.lock", "yarn"},
}

// Manifests returns the absolute paths of manifests under root matching any
// pattern, in pattern order. Anything inside node_modules is skipped.
func Manifests(root string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{DefaultPattern}
	}

	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid manifest pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, m := range matches {
			if isVendored(m) || seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, filepath.Join(root, filepath.FromSlash(m)))
		}
	}
	return out, nil
}

func isVendored(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if part == "node_modules" {
			return true
		}
	}
	return false
}

// Discover builds one command per script of every matching manifest. Script
// order within a manifest is preserved. Unreadable manifests are logged and
// skipped.
func Discover(ctx context.Context, root string, patterns []string, defaultColor string) ([]config.CommandSpec, error) {
	manifests, err := Manifests(root, patterns)
	if err != nil {
		return nil, err
	}

	var specs []config.CommandSpec
	for _, manifest := range manifests {
		found, err := FromManifest(manifest, root, defaultColor)
		if err != nil {
			slogger.L(ctx).Warn("skipping manifest", "path", manifest, "error", err)
			continue
		}
		specs = append(specs, found...)
	}
	return specs, nil
}

// FromManifest reads the scripts of one manifest. Manifests outside the
// root directory get their relative directory prepended to script names.
func FromManifest(manifest, root, defaultColor string) ([]config.CommandSpec, error) {
	data, err := os.ReadFile(manifest)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse %s: invalid JSON", manifest)
	}

	dir := filepath.Dir(manifest)
	client := Client(dir)
	prefix := ""
	if rel, err := filepath.Rel(root, dir); err == nil && rel != "." {
		prefix = path.Clean(filepath.ToSlash(rel)) + " "
	}

	var specs []config.CommandSpec
	gjson.GetBytes(data, "scripts").ForEach(func(key, value gjson.Result) bool {
		script := key.String()
		specs = append(specs, config.CommandSpec{
			Name:           prefix + script,
			Command:        client + " run " + script,
			Tooltip:        value.String(),
			Color:          defaultColor,
			SingleInstance: true,
			Cwd:            dir,
		})
		return true
	})
	return specs, nil
}

// Client returns the package manager owning dir, judged by its lockfile.
func Client(dir string) string {
	for _, l := range lockfiles {
		if _, err := os.Stat(filepath.Join(dir, l.file)); err == nil {
			return l.client
		}
	}
	return "npm"
}
