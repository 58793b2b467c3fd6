package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks settings every command relies on.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeRemote, ModeLocal:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeRemote, ModeLocal, c.Mode)
	}
	if c.Images.MaxSize <= 0 {
		return errors.New("images.max_size (MAX_IMAGE_SIZE) must be a positive integer")
	}
	if len(c.Images.SupportedFormats) == 0 {
		return errors.New("images.supported_formats (SUPPORTED_FORMATS) must list at least one extension")
	}
	if c.Transfer.MaxRetries < 1 {
		return errors.New("transfer.max_retries (MAX_RETRIES) must be at least 1")
	}
	if c.Transfer.RetryDelaySeconds < 0 {
		return errors.New("transfer.retry_delay_seconds (RETRY_DELAY) must not be negative")
	}
	switch c.LLM.JSONExtraction {
	case JSONExtractBalanced, JSONExtractFirstSpan:
	default:
		return fmt.Errorf("llm.json_extraction (LLM_JSON_EXTRACTION) must be %s or %s, got %q",
			JSONExtractBalanced, JSONExtractFirstSpan, c.LLM.JSONExtraction)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	for _, store := range []struct {
		name string
		kind string
	}{{"source", c.Source.Kind}, {"destination", c.Destination.Kind}} {
		switch store.kind {
		case StoreWebDAV, StoreS3, StoreLocal:
		default:
			return fmt.Errorf("%s.kind must be webdav, s3, or local, got %q", store.name, store.kind)
		}
	}
	return nil
}

// ValidateMode checks the requirements of one run mode before any image is touched.
func (c *Config) ValidateMode(mode string) error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required for %s mode. Set OPENAI_API_KEY or edit %s", mode, c.configHint())
	}
	switch mode {
	case ModeRemote:
		if err := validateStore("source", "WEBDAV_SOURCE", c.Source); err != nil {
			return err
		}
		return validateStore("destination", "WEBDAV_DEST", c.Destination)
	case ModeLocal:
		if c.Local.InputDir == "" {
			return errors.New("local.input_dir (LOCAL_INPUT_DIR) is required for local mode")
		}
		if c.Local.OutputDir == "" {
			return errors.New("local.output_dir (LOCAL_OUTPUT_DIR) is required for local mode")
		}
		return nil
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func validateStore(name, envPrefix string, s Store) error {
	switch s.Kind {
	case StoreWebDAV:
		var missing []string
		if s.Host == "" {
			missing = append(missing, envPrefix+"_HOST")
		}
		if s.Username == "" {
			missing = append(missing, envPrefix+"_USERNAME")
		}
		if s.Password == "" {
			missing = append(missing, envPrefix+"_PASSWORD")
		}
		if len(missing) > 0 {
			return fmt.Errorf("%s webdav store is missing required values: %s", name, strings.Join(missing, ", "))
		}
	case StoreS3:
		if s.Bucket == "" {
			return fmt.Errorf("%s.bucket is required for s3 stores", name)
		}
	case StoreLocal:
		if s.Root == "" {
			return fmt.Errorf("%s.root is required for local stores", name)
		}
	}
	return nil
}

func (c *Config) configHint() string {
	path, err := DefaultConfigPath()
	if err != nil {
		return "~/.config/scantocookbook/config.toml"
	}
	return path + " (create with 'scantocookbook config init')"
}
