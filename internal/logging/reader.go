package logging

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/charmbracelet/x/ansi"
)

// DefaultTailLines is the default number of lines to read when tailing.
const DefaultTailLines = 100

// DefaultPollInterval is how often Follow checks for new output.
const DefaultPollInterval = 250 * time.Millisecond

// Reader reads terminal logs.
type Reader struct {
	dir *Dir

	// Plain strips terminal escape sequences from the output. tmux logs
	// are raw pane output and carry colors and cursor movement.
	Plain bool
}

// NewReader creates a Reader over dir.
func NewReader(dir *Dir) *Reader {
	return &Reader{dir: dir}
}

// ReadAll reads the entire log of a terminal.
func (r *Reader) ReadAll(name string) ([]string, error) {
	return r.readLines(name, 0)
}

// ReadLastN reads the last n lines of a terminal's log.
// If n <= 0, uses DefaultTailLines.
func (r *Reader) ReadLastN(name string, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultTailLines
	}
	return r.readLines(name, n)
}

// Follow streams lines appended to the terminal's log to out, like
// `tail -f`. It blocks until ctx is done and returns ctx.Err().
func (r *Reader) Follow(ctx context.Context, name string, out io.Writer, pollInterval time.Duration) error {
	file, err := r.open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	reader := bufio.NewReader(file)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drain(reader, out); err != nil {
				return err
			}
		}
	}
}

// FollowWithHistory writes the last n lines and then follows new output,
// like `tail -n N -f`.
func (r *Reader) FollowWithHistory(ctx context.Context, name string, out io.Writer, n int, pollInterval time.Duration) error {
	lines, err := r.ReadLastN(name, n)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return r.Follow(ctx, name, out, pollInterval)
}

// drain copies everything currently readable, including a trailing
// partial line.
func (r *Reader) drain(reader *bufio.Reader, out io.Writer) error {
	for {
		chunk, err := reader.ReadBytes('\n')
		if len(chunk) > 0 {
			if r.Plain {
				chunk = []byte(ansi.Strip(string(chunk)))
			}
			if _, werr := out.Write(chunk); werr != nil {
				return fmt.Errorf("write output: %w", werr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read line: %w", err)
		}
	}
}

func (r *Reader) open(name string) (*os.File, error) {
	//nolint:gosec // G304: path is built from the log directory and a terminal name
	file, err := os.Open(r.dir.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoLog, name)
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

// readLines returns every line when n is 0, otherwise the last n, keeping
// only a ring of n lines in memory.
func (r *Reader) readLines(name string, n int) ([]string, error) {
	file, err := r.open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var all []string
	var ring []string
	if n > 0 {
		ring = make([]string, n)
	}
	idx, count := 0, 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if r.Plain {
			line = ansi.Strip(line)
		}
		if n == 0 {
			all = append(all, line)
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % n
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log file: %w", err)
	}

	if n == 0 {
		return all, nil
	}
	if count == 0 {
		return nil, nil
	}
	if count < n {
		return ring[:count], nil
	}
	result := make([]string, n)
	for i := range n {
		result[i] = ring[(idx+i)%n]
	}
	return result, nil
}
