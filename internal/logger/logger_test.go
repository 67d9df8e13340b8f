package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("json output honours level", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := newLogger(&buf, "WARN", "json")
		require.NoError(t, err)

		l.Info("dropped")
		l.Warn("kept", "module", "test")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "kept", line["msg"])
		assert.Equal(t, "test", line["module"])
	})

	t.Run("tint and text formats", func(t *testing.T) {
		for _, format := range []string{"tint", "text", "TEXT"} {
			_, err := newLogger(&bytes.Buffer{}, "debug", format)
			assert.NoError(t, err, format)
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := NewLogger("LOUD", "json")
		assert.True(t, errors.Is(err, ErrLoggerInvalidLogLevel))
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := NewLogger("INFO", "xml")
		assert.True(t, errors.Is(err, ErrLoggerInvalidLogFormat))
	})
}
