package statusbar

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// refreshInterval re-renders the bar so expired messages disappear.
const refreshInterval = 500 * time.Millisecond

const helpText = "←/→ select • enter run • q quit"

// InvokeFunc runs the command bound to a button identifier.
type InvokeFunc func(id string) error

// Program is an interactive bubbletea front end for a Bar.
type Program struct {
	bar    *Bar
	invoke InvokeFunc
	input  io.Reader
	output io.Writer
}

// NewProgram creates a Program reading keys from input and drawing to
// output. Nil streams default to the process's stdin and stdout.
func NewProgram(bar *Bar, invoke InvokeFunc, input io.Reader, output io.Writer) *Program {
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stdout
	}
	return &Program{bar: bar, invoke: invoke, input: input, output: output}
}

// Run blocks until the user quits or ctx is done.
func (p *Program) Run(ctx context.Context) error {
	width := 80
	if f, ok := p.output.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}

	prog := tea.NewProgram(newModel(p.bar, p.invoke, width),
		tea.WithContext(ctx),
		tea.WithInput(p.input),
		tea.WithOutput(p.output),
	)
	_, err := prog.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// model is the bubbletea model for the bar.
type model struct {
	bar      *Bar
	invoke   InvokeFunc
	spinner  spinner.Model
	selected int
	width    int
	busy     int
	quitting bool
}

type (
	changedMsg struct{}
	refreshMsg struct{}
	doneMsg    struct{ err error }
)

func newModel(bar *Bar, invoke InvokeFunc, width int) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		bar:     bar,
		invoke:  invoke,
		spinner: s,
		width:   width,
	}
}

// Init implements tea.Model.
//
//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.bar.Changed()), refresh())
}

// Update implements tea.Model.
//
//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case changedMsg:
		m.selected = clamp(m.selected, len(m.bar.Buttons()))
		return m, waitForChange(m.bar.Changed())

	case refreshMsg:
		return m, refresh()

	case doneMsg:
		m.busy--
		if msg.err != nil && m.bar.Error() == "" {
			m.bar.ShowError(msg.err.Error())
		}

	case spinner.TickMsg:
		if m.busy == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

//nolint:gocritic // hugeParam: mirrors Update
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.bar.Buttons())
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "left", "h", "shift+tab":
		if count > 0 {
			m.selected = (m.selected - 1 + count) % count
		}
	case "right", "l", "tab":
		if count > 0 {
			m.selected = (m.selected + 1) % count
		}
	case "enter", " ":
		buttons := m.bar.Buttons()
		if m.selected >= len(buttons) {
			return m, nil
		}
		m.bar.ClearError()
		id := buttons[m.selected].Command
		invoke := m.invoke
		m.busy++
		run := func() tea.Msg { return doneMsg{err: invoke(id)} }
		if m.busy == 1 {
			return m, tea.Batch(run, m.spinner.Tick)
		}
		return m, run
	}
	return m, nil
}

// View implements tea.Model.
//
//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) View() string {
	if m.quitting {
		return ""
	}
	view := m.bar.Render(m.selected, m.width)
	status := messageStyle.Render(helpText)
	if m.busy > 0 {
		status = m.spinner.View() + " running " + status
	}
	return view + "\n" + status + "\n"
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
