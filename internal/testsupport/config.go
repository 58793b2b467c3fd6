package testsupport

import (
	"path/filepath"
	"testing"

	"scantocookbook/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Both stores point at local directories under the temp root so remote mode
// can run without network access.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.LLM.APIKey = "test"
	cfgVal.Paths.TempDir = filepath.Join(base, "tmp")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Source = config.Store{Kind: config.StoreLocal, Root: filepath.Join(base, "source")}
	cfgVal.Destination = config.Store{Kind: config.StoreLocal, Root: filepath.Join(base, "dest")}
	cfgVal.Local.InputDir = filepath.Join(base, "input")
	cfgVal.Local.OutputDir = filepath.Join(base, "output")
	cfgVal.Local.Progress = false
	cfgVal.Transfer.RetryDelaySeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithModel points the vision client at a test server.
func WithModel(baseURL, model string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = baseURL
		b.cfg.LLM.Model = model
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.TempDir)
}
