package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"mvdan.cc/sh/v3/interp"

	"github.com/jmgilman/actionbar/internal/host"
	"github.com/jmgilman/actionbar/internal/slogger"
)

type terminal struct {
	handle host.Terminal
	runner *interp.Runner
	stderr io.Writer
	log    io.Closer

	ctx    context.Context
	cancel context.CancelFunc

	queue   chan string
	done    chan struct{}
	pending sync.WaitGroup

	mu       sync.Mutex
	exited   bool
	disposed bool
}

func (t *terminal) alive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.exited && !t.disposed
}

func (t *terminal) send(text string) error {
	t.pending.Add(1)
	select {
	case t.queue <- text:
		return nil
	case <-t.done:
		t.pending.Done()
		return fmt.Errorf("%w: %s", host.ErrTerminalNotFound, t.handle.Name)
	}
}

// loop runs queued lines until the interpreter exits or the terminal stops.
func (t *terminal) loop() {
	for {
		select {
		case <-t.done:
			t.drop()
			return
		case text := <-t.queue:
			t.runLine(text)
			t.pending.Done()

			if t.runner.Exited() {
				t.mu.Lock()
				t.exited = true
				t.mu.Unlock()
				t.stop()
				t.drop()
				return
			}
		}
	}
}

func (t *terminal) runLine(text string) {
	file, err := parse(text, t.handle.Name)
	if err != nil {
		fmt.Fprintf(t.stderr, "%s: %v\n", t.handle.Name, err)
		return
	}

	err = t.runner.Run(t.ctx, file)
	var status interp.ExitStatus
	switch {
	case err == nil, errors.As(err, &status):
		// Non-zero statuses belong to the user's command.
	case errors.Is(err, context.Canceled):
	default:
		slogger.L(t.ctx).Debug("shell terminal run", "terminal", t.handle.Name, "error", err)
	}
}

// drop releases lines still queued after the terminal stopped.
func (t *terminal) drop() {
	for {
		select {
		case <-t.queue:
			t.pending.Done()
		default:
			return
		}
	}
}

func (t *terminal) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed {
		return
	}
	t.disposed = true
	t.cancel()
	close(t.done)
	if t.log != nil {
		_ = t.log.Close()
	}
}
