package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scantocookbook/internal/config"
	"scantocookbook/internal/logging"
	"scantocookbook/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	require.NoError(t, err)
	logger.Info("hello from config")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(content), "hello from config")
}

func TestConsoleLoggerFormatsComponentAndImage(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Writer: &buf})
	require.NoError(t, err)

	logger = logging.NewComponentLogger(logger, "pipeline")
	logger.Info("analysis complete", logging.String(logging.FieldImage, "/Screenshots/soup.jpg"), logging.Int("chars", 12))

	line := buf.String()
	assert.Contains(t, line, "INFO pipeline: analysis complete [soup.jpg]")
	assert.Contains(t, line, "chars=12")
	assert.NotContains(t, line, ".go:")
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", Writer: &buf})
	require.NoError(t, err)

	logger.Debug("with caller")
	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestConsoleLoggerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Writer: &buf})
	require.NoError(t, err)

	logger.Info("msg", logging.String("recipe", "Tomato Soup"))
	assert.Contains(t, buf.String(), `recipe="Tomato Soup"`)
}

func TestJSONLoggerKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	require.NoError(t, err)

	logger.Warn("careful", logging.String("k", "v"))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	assert.Equal(t, "warn", payload["level"])
	assert.Equal(t, "careful", payload["msg"])
	assert.Equal(t, "v", payload["k"])
	assert.Contains(t, payload, "ts")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}})
	require.Error(t, err)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Writer: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestWarnWithContextInjectsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	require.NoError(t, err)

	logging.WarnWithContext(logger, "resize failed", "image_resize_failed",
		logging.String(logging.FieldImpact, "original image sent to model"))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	assert.Equal(t, "image_resize_failed", payload[logging.FieldEventType])
	assert.Equal(t, "original image sent to model", payload[logging.FieldImpact])
	assert.NotEmpty(t, payload[logging.FieldErrorHint])
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	require.NoError(t, err)

	ctx := services.WithImage(context.Background(), "/in/a.png")
	ctx = services.WithStage(ctx, "validate")
	ctx = services.WithRequestID(ctx, "abc")
	logging.WithContext(ctx, base).Info("checked")

	out := buf.String()
	for _, fragment := range []string{`"image":"/in/a.png"`, `"stage":"validate"`, `"correlation_id":"abc"`} {
		assert.True(t, strings.Contains(out, fragment), "missing %s in %s", fragment, out)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("ignored")
	assert.False(t, logger.Enabled(context.Background(), 12))
}
