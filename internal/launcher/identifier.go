package launcher

import (
	"strings"

	"github.com/jmgilman/actionbar/internal/names"
)

// Identifier returns the command identifier for an action name: the name
// with all whitespace removed, prefixed with "extension.".
func Identifier(name string) string {
	return names.CommandPrefix + strings.Join(strings.Fields(name), "")
}
