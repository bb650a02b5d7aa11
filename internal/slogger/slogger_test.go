package slogger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Verbosity(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		wantInfo  bool
		wantDebug bool
	}{
		{name: "default warns only", verbosity: 0},
		{name: "single v enables info", verbosity: 1, wantInfo: true},
		{name: "double v enables debug", verbosity: 2, wantInfo: true, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{Verbosity: tt.verbosity, Output: &buf})

			logger.Info("info-line")
			logger.Debug("debug-line")
			logger.Warn("warn-line")

			out := buf.String()
			assert.Contains(t, out, "warn-line")
			assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("info-line")))
			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug-line")))
		})
	}
}

func TestFromContext(t *testing.T) {
	t.Run("returns stored logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Config{Output: &buf})
		ctx := WithLogger(context.Background(), logger)

		assert.Same(t, logger, L(ctx))
	})

	t.Run("falls back to a discarding logger", func(t *testing.T) {
		logger := FromContext(context.Background())

		assert.NotNil(t, logger)
		assert.False(t, logger.Enabled(context.Background(), 0))
	})
}
