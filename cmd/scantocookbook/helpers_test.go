package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/require"

	"scantocookbook/internal/config"
	"scantocookbook/internal/testsupport"
)

var envKeys = []string{
	"MODE", "TEMP_DIR", "LOG_DIR", "STATE_DIR",
	"SOURCE_KIND", "DEST_KIND", "SOURCE_ROOT", "DEST_ROOT",
	"WEBDAV_SOURCE_HOST", "WEBDAV_SOURCE_USERNAME", "WEBDAV_SOURCE_PASSWORD",
	"WEBDAV_DEST_HOST", "WEBDAV_DEST_USERNAME", "WEBDAV_DEST_PASSWORD",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "LLM_MODEL", "MAX_IMAGE_SIZE",
	"SUPPORTED_FORMATS", "LOCAL_INPUT_DIR", "LOCAL_OUTPUT_DIR", "LOCAL_PROGRESS",
	"SOURCE_DIR", "DEST_DIR", "HOLDING_DIR", "DELETE_SOURCE", "UPLOAD_IMAGE",
	"LOG_LEVEL", "LOG_FORMAT", "NTFY_TOPIC", "NTFY_REQUEST_TIMEOUT",
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	model      *modelServer
}

// modelServer answers chat completions with a fixed reply.
type modelServer struct {
	server *httptest.Server
	reply  string
	status int
	calls  atomic.Int32
}

func newModelServer(t *testing.T, reply string) *modelServer {
	t.Helper()
	m := &modelServer{reply: reply, status: http.StatusOK}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(m.status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": m.reply}},
			},
		})
	}))
	t.Cleanup(m.server.Close)
	return m
}

func setupCLITestEnv(t *testing.T, mode string) *cliTestEnv {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	model := newModelServer(t, `{"name": "Apfelkuchen", "ingredients": ["Äpfel"]}`)
	cfg := testsupport.NewConfig(t, testsupport.WithModel(model.server.URL, "test-vision"))
	cfg.Mode = mode
	cfg.Transfer.MaxRetries = 1

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, model: model}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func runCLI(t *testing.T, args []string, configPath string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), err
}
