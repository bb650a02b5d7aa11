package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// TeeWriter copies terminal output into the terminal's log file and on to
// a primary writer. It implements io.WriteCloser.
type TeeWriter struct {
	primary io.Writer
	logFile *os.File
	mu      sync.Mutex
}

// Tee opens the terminal's log for appending and returns a writer that
// copies everything written to it into the log before passing it to
// primary. A nil primary writes only to the log.
func (d *Dir) Tee(primary io.Writer, name string) (*TeeWriter, error) {
	f, err := d.Append(name)
	if err != nil {
		return nil, err
	}
	return &TeeWriter{primary: primary, logFile: f}, nil
}

// Write writes p to the log file and then to the primary writer. Once the
// writer is closed only the primary writer receives output.
func (t *TeeWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.logFile != nil {
		if _, err := t.logFile.Write(p); err != nil {
			return 0, fmt.Errorf("write terminal log: %w", err)
		}
	}
	if t.primary != nil {
		return t.primary.Write(p)
	}
	return len(p), nil
}

// Close closes the log file. The primary writer is not closed.
func (t *TeeWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.logFile == nil {
		return nil
	}
	err := t.logFile.Close()
	t.logFile = nil
	if err != nil {
		return fmt.Errorf("close terminal log: %w", err)
	}
	return nil
}

// LogPath returns the path of the log file, or "" once closed.
func (t *TeeWriter) LogPath() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.logFile != nil {
		return t.logFile.Name()
	}
	return ""
}
