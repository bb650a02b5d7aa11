// Package interpolate resolves ${...} placeholders in command and cwd
// templates against a vars.Context.
//
// Two placeholder forms exist:
//
//	${name.path}               a declared variable, see vars.Names
//	${workspaceFolder:<name>}  the path of the workspace folder named <name>
//
// Placeholders do not nest and carry no logic.
package interpolate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmgilman/actionbar/internal/vars"
)

// folderPrefix introduces the workspace folder alias.
const folderPrefix = "workspaceFolder:"

// Sentinel errors for interpolation.
var (
	ErrUnresolved      = errors.New("variable has no value")
	ErrSelfReference   = errors.New("cwd template cannot reference ${cwd}")
	ErrUnknownVariable = vars.ErrUnknownVariable
)

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate replaces every placeholder in tpl. It never fails: absent or
// unknown variables render as vars.AbsentLiteral and unknown workspace
// folders render as the empty string.
func Interpolate(tpl string, ctx *vars.Context) string {
	out, _ := expand(tpl, ctx, false)
	return out
}

// Strict is like Interpolate but reports the first placeholder that has no
// value instead of substituting the absent literal. Unknown workspace
// folders still resolve to the empty string.
func Strict(tpl string, ctx *vars.Context) (string, error) {
	return expand(tpl, ctx, true)
}

// Placeholders returns the expressions of all placeholders in tpl, in order
// of first appearance and without duplicates.
func Placeholders(tpl string) []string {
	var exprs []string
	seen := make(map[string]bool)
	for _, m := range placeholder.FindAllStringSubmatch(tpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			exprs = append(exprs, m[1])
		}
	}
	return exprs
}

// Validate checks that every placeholder in tpl names a declared variable
// or uses the workspace folder alias.
func Validate(tpl string) error {
	var errs []error
	for _, expr := range Placeholders(tpl) {
		if strings.HasPrefix(expr, folderPrefix) {
			continue
		}
		if !vars.Declared(expr) {
			errs = append(errs, fmt.Errorf("%w: ${%s}", ErrUnknownVariable, expr))
		}
	}
	return errors.Join(errs...)
}

// ValidateCwd validates a cwd template, which additionally may not refer
// to the cwd it is computing.
func ValidateCwd(tpl string) error {
	for _, expr := range Placeholders(tpl) {
		if expr == "cwd" {
			return ErrSelfReference
		}
	}
	return Validate(tpl)
}

func expand(tpl string, ctx *vars.Context, strict bool) (string, error) {
	if !strings.Contains(tpl, "${") {
		return tpl, nil
	}

	resolved := make(map[string]string)
	var firstErr error

	out := placeholder.ReplaceAllStringFunc(tpl, func(token string) string {
		if v, ok := resolved[token]; ok {
			return v
		}
		expr := token[2 : len(token)-1]
		v, err := resolve(expr, ctx)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		resolved[token] = v
		return v
	})

	if strict && firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func resolve(expr string, ctx *vars.Context) (string, error) {
	if name, ok := strings.CutPrefix(expr, folderPrefix); ok {
		// Only the first segment names the folder; anything after another
		// ':' is ignored.
		name, _, _ = strings.Cut(name, ":")
		path, _ := ctx.Folder(name)
		return path, nil
	}

	v, err := ctx.Lookup(expr)
	if err != nil {
		return vars.AbsentLiteral, err
	}
	if v.IsAbsent() {
		return vars.AbsentLiteral, fmt.Errorf("%w: ${%s}", ErrUnresolved, expr)
	}
	return v.String(), nil
}
