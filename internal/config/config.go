package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Run modes.
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// Store backend kinds.
const (
	StoreWebDAV = "webdav"
	StoreS3     = "s3"
	StoreLocal  = "local"
)

// JSON extraction strategies for model responses.
const (
	// JSONExtractBalanced takes the first complete, brace-balanced object.
	JSONExtractBalanced = "balanced"
	// JSONExtractFirstSpan cuts from the first '{' to the first '}'.
	JSONExtractFirstSpan = "first_span"
)

// Paths contains working, log, and state directories.
type Paths struct {
	TempDir  string `toml:"temp_dir" yaml:"temp_dir"`
	LogDir   string `toml:"log_dir" yaml:"log_dir"`
	StateDir string `toml:"state_dir" yaml:"state_dir"`
}

// Store describes one side of a remote transfer (source or destination).
type Store struct {
	Kind     string `toml:"kind" yaml:"kind"`
	Host     string `toml:"host" yaml:"host"`
	Username string `toml:"username" yaml:"username"`
	Password string `toml:"password" yaml:"password"`
	Bucket   string `toml:"bucket" yaml:"bucket"`
	Region   string `toml:"region" yaml:"region"`
	Prefix   string `toml:"prefix" yaml:"prefix"`
	Endpoint string `toml:"endpoint" yaml:"endpoint"`
	Root     string `toml:"root" yaml:"root"`
}

// LLM contains vision model connection settings.
type LLM struct {
	APIKey         string `toml:"api_key" yaml:"api_key"`
	BaseURL        string `toml:"base_url" yaml:"base_url"`
	Model          string `toml:"model" yaml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
	MaxTokens      int    `toml:"max_tokens" yaml:"max_tokens"`
	JSONExtraction string `toml:"json_extraction" yaml:"json_extraction"`
}

// Prompts holds the instructions sent with every image.
type Prompts struct {
	System string `toml:"system" yaml:"system"`
	Vision string `toml:"vision" yaml:"vision"`
}

// Images controls validation and resizing.
type Images struct {
	MaxSize          int64    `toml:"max_size" yaml:"max_size"`
	SupportedFormats []string `toml:"supported_formats" yaml:"supported_formats"`
}

// Transfer controls the retry policy applied to every store operation.
type Transfer struct {
	MaxRetries        int `toml:"max_retries" yaml:"max_retries"`
	RetryDelaySeconds int `toml:"retry_delay_seconds" yaml:"retry_delay_seconds"`
}

// Remote contains defaults for remote-mode runs.
type Remote struct {
	SourceDir    string `toml:"source_dir" yaml:"source_dir"`
	DestDir      string `toml:"dest_dir" yaml:"dest_dir"`
	HoldingDir   string `toml:"holding_dir" yaml:"holding_dir"`
	DeleteSource bool   `toml:"delete_source" yaml:"delete_source"`
	UploadImage  bool   `toml:"upload_image" yaml:"upload_image"`
}

// Local contains defaults for local-mode runs.
type Local struct {
	InputDir  string `toml:"input_dir" yaml:"input_dir"`
	OutputDir string `toml:"output_dir" yaml:"output_dir"`
	Progress  bool   `toml:"progress" yaml:"progress"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" yaml:"format"`
	Level  string `toml:"level" yaml:"level"`
}

// Notifications configures the optional ntfy run notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic" yaml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

// Config encapsulates all configuration values.
type Config struct {
	Mode        string   `toml:"mode" yaml:"mode"`
	Paths       Paths    `toml:"paths" yaml:"paths"`
	Source      Store    `toml:"source" yaml:"source"`
	Destination Store    `toml:"destination" yaml:"destination"`
	LLM         LLM      `toml:"llm" yaml:"llm"`
	Prompts     Prompts  `toml:"prompts" yaml:"prompts"`
	Images      Images   `toml:"images" yaml:"images"`
	Transfer    Transfer `toml:"transfer" yaml:"transfer"`
	Remote      Remote   `toml:"remote" yaml:"remote"`
	Local       Local    `toml:"local" yaml:"local"`
	Logging     Logging  `toml:"logging" yaml:"logging"`

	Notifications Notifications `toml:"notifications" yaml:"notifications"`
}

// Load locates, parses, and validates a configuration file, then applies
// environment overrides. The returned config has all path fields expanded and
// normalized. Mode-specific requirements are checked separately by ValidateMode.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	layers := make([]lookupFunc, 0, 3)
	layers = append(layers, os.LookupEnv)

	if exists {
		fileLayer, err := cfg.decodeFile(resolvedPath)
		if err != nil {
			return nil, "", false, err
		}
		if fileLayer != nil {
			layers = append(layers, fileLayer)
		}
	}
	if dotenv, err := readDotEnv(".env"); err != nil {
		return nil, "", false, err
	} else if dotenv != nil {
		layers = append(layers, dotenv)
	}

	if err := cfg.applyEnv(chain(layers...)); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// decodeFile parses TOML directly into the config. YAML and .env files use the
// flat environment key space and are returned as a lookup layer instead.
func (c *Config) decodeFile(path string) (lookupFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return readYAML(path)
	case ".env":
		return readDotEnv(path)
	default:
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := toml.NewDecoder(file).Decode(c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		return nil, nil
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	candidates := []string{defaultPath, "scantocookbook.toml", "local.yaml", "local.yml", "local.env"}
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			return "", false, err
		}
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			return abs, true, nil
		}
	}
	return defaultPath, false, nil
}

// DefaultConfigPath returns the per-user config location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scantocookbook/config.toml")
}

// EnsureDirectories creates the temp, log, and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.TempDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the processing history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// RetryDelay returns the configured pause between transfer attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Transfer.RetryDelaySeconds) * time.Second
}

// NotificationTimeout returns the ceiling for one ntfy request.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// LLMTimeout returns the ceiling for one model request.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
