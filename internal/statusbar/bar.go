// Package statusbar renders action buttons and transient notices. Bar is the
// host.UI of the CLI; Program drives it interactively with bubbletea.
package statusbar

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jmgilman/actionbar/internal/host"
)

// namedColors maps color names used in settings to ANSI color numbers.
// Anything else (hex, numbers) is passed to lipgloss unchanged.
var namedColors = map[string]string{
	"black":   "0",
	"red":     "1",
	"green":   "2",
	"yellow":  "3",
	"blue":    "4",
	"magenta": "5",
	"cyan":    "6",
	"white":   "7",
	"gray":    "8",
	"grey":    "8",
	"orange":  "208",
	"purple":  "93",
	"pink":    "205",
}

var (
	buttonStyle   = lipgloss.NewStyle().Padding(0, 1)
	selectedStyle = buttonStyle.Reverse(true).Bold(true)
	messageStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Options configures a Bar.
type Options struct {
	// Errors, if set, also receives every error notice as a line of text.
	Errors io.Writer

	// Now overrides the clock used for message expiry.
	Now func() time.Time
}

// Bar holds buttons in creation order plus the current notices. It is safe
// for concurrent use.
type Bar struct {
	errOut io.Writer
	now    func() time.Time

	mu           sync.Mutex
	items        []*item
	message      string
	messageUntil time.Time
	lastError    string
	changed      chan struct{}
}

type item struct {
	button host.Button
}

// New creates an empty Bar.
func New(opts Options) *Bar {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Bar{
		errOut:  opts.Errors,
		now:     now,
		changed: make(chan struct{}, 1),
	}
}

// Changed receives a value after any change. Bursts are coalesced.
func (b *Bar) Changed() <-chan struct{} {
	return b.changed
}

func (b *Bar) notify() {
	select {
	case b.changed <- struct{}{}:
	default:
	}
}

// CreateButton implements host.UI.
func (b *Bar) CreateButton(btn host.Button) host.Disposable {
	it := &item{button: btn}

	b.mu.Lock()
	b.items = append(b.items, it)
	b.mu.Unlock()
	b.notify()

	return host.DisposeFunc(func() {
		b.mu.Lock()
		for i, cur := range b.items {
			if cur == it {
				b.items = append(b.items[:i], b.items[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		b.notify()
	})
}

// ShowError implements host.UI.
func (b *Bar) ShowError(message string) {
	b.mu.Lock()
	b.lastError = message
	b.mu.Unlock()
	if b.errOut != nil {
		fmt.Fprintln(b.errOut, errorStyle.Render(message))
	}
	b.notify()
}

// SetStatusMessage implements host.UI. A zero timeout keeps the message
// until it is replaced.
func (b *Bar) SetStatusMessage(message string, timeout time.Duration) {
	b.mu.Lock()
	b.message = message
	b.messageUntil = time.Time{}
	if timeout > 0 {
		b.messageUntil = b.now().Add(timeout)
	}
	b.mu.Unlock()
	b.notify()
}

// ClearError removes the current error notice.
func (b *Bar) ClearError() {
	b.mu.Lock()
	b.lastError = ""
	b.mu.Unlock()
	b.notify()
}

// Buttons returns the live buttons in creation order.
func (b *Bar) Buttons() []host.Button {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]host.Button, 0, len(b.items))
	for _, it := range b.items {
		out = append(out, it.button)
	}
	return out
}

// Message returns the status message, or "" once it has expired.
func (b *Bar) Message() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.messageUntil.IsZero() && !b.now().Before(b.messageUntil) {
		return ""
	}
	return b.message
}

// Error returns the last error notice.
func (b *Bar) Error() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastError
}

// Render draws the bar. selected is the highlighted button index, or -1.
// Lines are cut to width when width is positive.
func (b *Bar) Render(selected, width int) string {
	buttons := b.Buttons()

	cells := make([]string, 0, len(buttons))
	for i, btn := range buttons {
		style := buttonStyle
		if i == selected {
			style = selectedStyle
		}
		if btn.Color != "" {
			style = style.Foreground(Color(btn.Color))
		}
		cells = append(cells, style.Render(btn.Text))
	}

	lines := []string{lipgloss.JoinHorizontal(lipgloss.Top, cells...)}
	if msg := b.Message(); msg != "" {
		lines = append(lines, messageStyle.Render(msg))
	}
	if err := b.Error(); err != "" {
		lines = append(lines, errorStyle.Render(err))
	}

	out := strings.Join(lines, "\n")
	if width > 0 {
		out = lipgloss.NewStyle().MaxWidth(width).Render(out)
	}
	return out
}

// Color resolves a settings color to a lipgloss color.
func Color(name string) lipgloss.Color {
	if n, ok := namedColors[strings.ToLower(name)]; ok {
		return lipgloss.Color(n)
	}
	return lipgloss.Color(name)
}
