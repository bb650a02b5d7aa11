package multiplexer

import (
	"context"
	"strconv"
	"time"

	"github.com/jmgilman/actionbar/internal/host"
	"github.com/jmgilman/actionbar/internal/sentinel"
	"github.com/jmgilman/actionbar/internal/slogger"
)

// OnDidEndExecution streams completion markers observed in any session's
// pane. Panes are polled only while the host has been asked for events.
func (t *Tmux) OnDidEndExecution(ctx context.Context) (<-chan host.ExecutionEnd, error) {
	ch, err := t.bus.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	t.startPolling(slogger.WithLogger(context.Background(), slogger.L(ctx)))
	return ch, nil
}

func (t *Tmux) startPolling(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.polling {
		return
	}
	t.polling = true

	go func() {
		defer close(t.stopped)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				t.poll(ctx)
			}
		}
	}()
}

// poll scans every pane once and publishes markers not seen before. Only
// markers still in a pane's scrollback are remembered, and sessions that
// are gone are forgotten.
func (t *Tmux) poll(ctx context.Context) {
	terms, err := t.List(ctx)
	if err != nil {
		slogger.L(ctx).Debug("poll sessions", "error", err)
		return
	}

	live := make(map[string]bool, len(terms))
	for _, term := range terms {
		live[term.ID] = true
		result, err := t.run(ctx, "capture-pane", "-p", "-J", "-t", term.ID, "-S", "-"+strconv.Itoa(t.history))
		if err != nil {
			// The session may have ended between list and capture.
			continue
		}

		var fresh []sentinel.Match
		visible := make(map[string]bool)
		t.mu.Lock()
		prev := t.seen[term.ID]
		for _, m := range sentinel.ParseAll(result.StdoutText()) {
			if !prev[m.Token] && !visible[m.Token] {
				fresh = append(fresh, m)
			}
			visible[m.Token] = true
		}
		t.seen[term.ID] = visible
		t.mu.Unlock()

		for _, m := range fresh {
			end := host.ExecutionEnd{Terminal: term, Line: m.Line, ExitCode: m.ExitCode}
			if err := t.bus.Publish(end); err != nil {
				return
			}
		}
	}

	t.mu.Lock()
	for id := range t.seen {
		if !live[id] {
			delete(t.seen, id)
		}
	}
	t.mu.Unlock()
}

// Close stops polling and closes every event subscription.
func (t *Tmux) Close() error {
	t.mu.Lock()
	polling := t.polling
	select {
	case <-t.stop:
		t.mu.Unlock()
		return nil
	default:
		close(t.stop)
	}
	t.mu.Unlock()

	if polling {
		<-t.stopped
	}
	return t.bus.Close()
}
