// Package prompt provides user interaction primitives using charmbracelet/huh.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
)

// Sentinel errors for prompts.
var (
	ErrCanceled  = errors.New("canceled by user")
	ErrNoOptions = errors.New("no options provided")
)

// pickerHeight caps the number of visible options in a Choice prompt.
const pickerHeight = 12

// Prompter abstracts user interaction for testability.
//
//go:generate go run github.com/matryer/moq@latest -pkg mocks -out mocks/prompter.go . Prompter
type Prompter interface {
	// Print outputs text to the user.
	Print(message string)

	// Confirm prompts for yes/no confirmation.
	Confirm(title, description string) (bool, error)

	// Choice prompts user to select from options, returns 0-based index.
	Choice(title string, options []Option) (int, error)
}

// Option is one entry in a Choice prompt.
type Option struct {
	Label       string
	Description string
}

func (o Option) String() string {
	if o.Description == "" {
		return o.Label
	}
	return o.Label + "  " + o.Description
}

// HuhPrompter implements Prompter using charmbracelet/huh for interactive forms.
type HuhPrompter struct {
	out io.Writer
}

// New creates a HuhPrompter that prints to out (stdout when nil).
func New(out io.Writer) *HuhPrompter {
	if out == nil {
		out = os.Stdout
	}
	return &HuhPrompter{out: out}
}

// Print outputs text to the user.
func (p *HuhPrompter) Print(message string) {
	fmt.Fprintln(p.out, message)
}

// Confirm prompts for yes/no confirmation.
func (p *HuhPrompter) Confirm(title, description string) (bool, error) {
	var confirmed bool

	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed).
		Run()
	if err != nil {
		return false, wrap("confirm prompt", err)
	}

	return confirmed, nil
}

// Choice prompts the user to pick one of options and returns its index.
// Typing filters the list.
func (p *HuhPrompter) Choice(title string, options []Option) (int, error) {
	if len(options) == 0 {
		return 0, ErrNoOptions
	}

	huhOptions := make([]huh.Option[int], len(options))
	for i, opt := range options {
		huhOptions[i] = huh.NewOption(opt.String(), i)
	}

	var selected int

	err := huh.NewSelect[int]().
		Title(title).
		Options(huhOptions...).
		Filtering(true).
		Height(min(len(options)+2, pickerHeight)).
		Value(&selected).
		Run()
	if err != nil {
		return 0, wrap("choice prompt", err)
	}

	return selected, nil
}

func wrap(op string, err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrCanceled
	}
	return fmt.Errorf("%s: %w", op, err)
}
