// Package sentinel builds and recognises the completion marker appended to
// command lines whose terminal should close on success.
//
// The marker is a line of the form
//
//	__REQ__:<token>:<exit code>
//
// written by the shell after the user's command returns.
package sentinel

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/thanhpk/randstr"

	"github.com/jmgilman/actionbar/internal/host"
)

// Prefix starts every sentinel line.
const Prefix = "__REQ__:"

// tokenLength is the number of hex characters in a token.
const tokenLength = 12

// linePattern matches an emitted marker. The typed command line itself
// contains an unexpanded exit code expression and does not match.
var linePattern = regexp.MustCompile(`__REQ__:([A-Za-z0-9]+):(-?[0-9]+)`)

// NewToken returns a fresh random alphanumeric correlation token.
func NewToken() string {
	return randstr.Hex(tokenLength)
}

// Marker returns the substring that identifies token in observed output.
func Marker(token string) string {
	return Prefix + token
}

// Suffix returns the text to append to a command line so that shell emits
// the marker line once the command has finished.
func Suffix(shell host.Shell, token string) string {
	switch shell {
	case host.ShellPowerShell:
		return fmt.Sprintf(`; Write-Output "%s:$LASTEXITCODE"`, Marker(token))
	case host.ShellCmd:
		return fmt.Sprintf(` & echo %s:%%ERRORLEVEL%%`, Marker(token))
	default:
		return fmt.Sprintf(`; echo "%s:$?"`, Marker(token))
	}
}

// Match is a marker found in output.
type Match struct {
	Token    string
	ExitCode int
	Line     string
}

// Parse extracts a marker from a single line of output.
func Parse(line string) (Match, bool) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return Match{}, false
	}
	code, err := strconv.Atoi(m[2])
	if err != nil {
		return Match{}, false
	}
	return Match{Token: m[1], ExitCode: code, Line: strings.TrimSpace(line)}, true
}

// ParseAll returns every marker in a block of output, in order.
func ParseAll(text string) []Match {
	var matches []Match
	for _, line := range strings.Split(text, "\n") {
		if m, ok := Parse(line); ok {
			matches = append(matches, m)
		}
	}
	return matches
}

// Scanner is an io.Writer that reports every marker line written to it.
// Partial lines are buffered until their newline arrives.
type Scanner struct {
	mu      sync.Mutex
	pending []byte
	onMatch func(Match)
}

// NewScanner creates a Scanner calling onMatch for each marker.
func NewScanner(onMatch func(Match)) *Scanner {
	return &Scanner{onMatch: onMatch}
}

func (s *Scanner) Write(p []byte) (int, error) {
	s.mu.Lock()
	s.pending = append(s.pending, p...)
	idx := bytes.LastIndexByte(s.pending, '\n')
	if idx < 0 {
		s.mu.Unlock()
		return len(p), nil
	}
	complete := s.pending[:idx+1]
	s.pending = append([]byte(nil), s.pending[idx+1:]...)
	s.mu.Unlock()

	sc := bufio.NewScanner(bytes.NewReader(complete))
	for sc.Scan() {
		if m, ok := Parse(sc.Text()); ok {
			s.onMatch(m)
		}
	}
	return len(p), nil
}
