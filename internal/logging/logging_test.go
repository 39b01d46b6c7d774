package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNew_WritesNamedRecordsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "quotedesk.log")
	logger, closeFn, err := New(path, "warn")
	require.NoError(t, err)

	logger.Named("rows").Info("dropped below level")
	logger.Named("rows").Warn("snapshot write failed", zap.String("key", "supplies-pending-1"))
	closeFn()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, `"component":"rows"`)
	assert.Contains(t, out, `"key":"supplies-pending-1"`)
	assert.NotContains(t, out, "dropped below level")
}

func TestNew_EmptyPathIsNop(t *testing.T) {
	logger, closeFn, err := New("", "debug")
	require.NoError(t, err)
	logger.Info("ignored")
	closeFn()
}
