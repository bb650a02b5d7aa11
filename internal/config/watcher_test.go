package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_NotifiesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o644))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()
	w.SetDebounce(10 * time.Millisecond)

	var calls atomic.Int32
	sub := w.OnDidChangeConfiguration(func() { calls.Add(1) })
	defer sub.Dispose()

	require.NoError(t, os.WriteFile(path, []byte("a: 2\n"), 0o644))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_SeesLateCreatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".actionbar.yaml")

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()
	w.SetDebounce(0)

	var calls atomic.Int32
	w.OnDidChangeConfiguration(func() { calls.Add(1) })

	require.NoError(t, os.WriteFile(path, []byte("commands: []\n"), 0o644))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()
	w.SetDebounce(0)

	var calls atomic.Int32
	w.OnDidChangeConfiguration(func() { calls.Add(1) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcher_DisposeUnsubscribes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()
	w.SetDebounce(0)

	var calls atomic.Int32
	sub := w.OnDidChangeConfiguration(func() { calls.Add(1) })
	assert.Equal(t, 1, w.Subscribers())

	sub.Dispose()
	sub.Dispose()
	assert.Equal(t, 0, w.Subscribers())

	require.NoError(t, os.WriteFile(path, []byte("x: 1\n"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
