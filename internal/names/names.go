// Package names derives terminal names. Managed terminals are named after
// the command they belong to; shared terminals get Docker-style random names.
package names

import (
	"fmt"
	"strings"

	"github.com/docker/docker/pkg/namesgenerator"
)

// ManagedPrefix starts the name of every terminal owned by a command.
const ManagedPrefix = "ab-"

// CommandPrefix starts every command identifier.
const CommandPrefix = "extension."

// ExistsFn checks if a name already exists.
type ExistsFn func(name string) bool

// Managed returns the terminal name for a command identifier, e.g.
// "extension.RunTests" becomes "ab-RunTests". Distinct identifiers always
// map to distinct names.
func Managed(identifier string) string {
	return ManagedPrefix + Escape(strings.TrimPrefix(identifier, CommandPrefix))
}

// IsManaged reports whether name belongs to a command's terminal.
func IsManaged(name string) bool {
	return strings.HasPrefix(name, ManagedPrefix)
}

// Escape keeps letters, digits and '-' as they are. '_' is doubled and any
// other rune becomes "_<hex code point>_", so the result can be decoded
// back into s.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == '_':
			b.WriteString("__")
		default:
			fmt.Fprintf(&b, "_%x_", r)
		}
	}
	return b.String()
}

// Generate returns a random adjective_surname name (e.g., "focused_turing").
func Generate() string {
	return namesgenerator.GetRandomName(0)
}

// GenerateUnique returns a name that doesn't exist according to existsFn.
// Returns an error if unable to find a unique name after maxAttempts tries.
func GenerateUnique(existsFn ExistsFn, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = 100
	}

	for range maxAttempts {
		name := Generate()
		if !existsFn(name) {
			return name, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique name after %d attempts", maxAttempts)
}
