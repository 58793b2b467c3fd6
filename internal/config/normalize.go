package config

import (
	"fmt"
	"path"
	"strings"
)

func (c *Config) normalize() error {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = defaultMode
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	normalizeStore(&c.Source)
	normalizeStore(&c.Destination)
	c.normalizeLLM()
	c.normalizeImages()
	c.normalizeRemote()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeout
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Local.InputDir, err = expandPath(strings.TrimSpace(c.Local.InputDir)); err != nil {
		return fmt.Errorf("local.input_dir: %w", err)
	}
	if c.Local.OutputDir, err = expandPath(strings.TrimSpace(c.Local.OutputDir)); err != nil {
		return fmt.Errorf("local.output_dir: %w", err)
	}
	return nil
}

func normalizeStore(s *Store) {
	s.Kind = strings.ToLower(strings.TrimSpace(s.Kind))
	if s.Kind == "" {
		s.Kind = defaultStoreKind
	}
	s.Host = strings.TrimSpace(s.Host)
	s.Username = strings.TrimSpace(s.Username)
	s.Bucket = strings.TrimSpace(s.Bucket)
	s.Region = strings.TrimSpace(s.Region)
	s.Prefix = strings.Trim(strings.TrimSpace(s.Prefix), "/")
	s.Endpoint = strings.TrimSpace(s.Endpoint)
	s.Root = strings.TrimSpace(s.Root)
	if s.Root != "" {
		if expanded, err := expandPath(s.Root); err == nil {
			s.Root = expanded
		}
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
	c.LLM.JSONExtraction = strings.ToLower(strings.TrimSpace(c.LLM.JSONExtraction))
	if c.LLM.JSONExtraction == "" {
		c.LLM.JSONExtraction = JSONExtractBalanced
	}
	if strings.TrimSpace(c.Prompts.Vision) == "" {
		c.Prompts.Vision = DefaultVisionPrompt
	}
}

func (c *Config) normalizeImages() {
	seen := make(map[string]struct{}, len(c.Images.SupportedFormats))
	formats := make([]string, 0, len(c.Images.SupportedFormats))
	for _, f := range c.Images.SupportedFormats {
		f = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(f)), ".")
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		formats = append(formats, f)
	}
	c.Images.SupportedFormats = formats
}

func (c *Config) normalizeRemote() {
	c.Remote.SourceDir = cleanRemoteDir(c.Remote.SourceDir, defaultSourceDir)
	c.Remote.DestDir = cleanRemoteDir(c.Remote.DestDir, defaultDestDir)
	if strings.TrimSpace(c.Remote.HoldingDir) != "" {
		c.Remote.HoldingDir = cleanRemoteDir(c.Remote.HoldingDir, "")
	}
}

func cleanRemoteDir(dir, fallback string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return fallback
	}
	return path.Clean("/" + dir)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
