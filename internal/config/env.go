package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type lookupFunc func(key string) (string, bool)

// chain returns the first hit across layers, earliest layer wins.
func chain(layers ...lookupFunc) lookupFunc {
	return func(key string) (string, bool) {
		for _, layer := range layers {
			if layer == nil {
				continue
			}
			if v, ok := layer(key); ok {
				return v, true
			}
		}
		return "", false
	}
}

func mapLookup(values map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func readDotEnv(path string) (lookupFunc, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse env file %s: %w", path, err)
	}
	return mapLookup(values), nil
}

// readYAML loads a YAML file whose nested keys are flattened with "_" into the
// environment key space, so `openai: {api_key: x}` becomes OPENAI_API_KEY.
func readYAML(path string) (lookupFunc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	values := make(map[string]string)
	flattenYAML(values, "", raw)
	return mapLookup(values), nil
}

func flattenYAML(dst map[string]string, prefix string, node map[string]any) {
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := strings.ToUpper(strings.TrimSpace(k))
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch v := node[k].(type) {
		case map[string]any:
			flattenYAML(dst, key, v)
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			dst[key] = strings.Join(parts, ",")
		case nil:
		default:
			dst[key] = fmt.Sprint(v)
		}
	}
}

type envBinding struct {
	key   string
	apply func(string) error
}

func (c *Config) envBindings() []envBinding {
	return []envBinding{
		{"MODE", stringVar(&c.Mode)},
		{"TEMP_DIR", stringVar(&c.Paths.TempDir)},
		{"LOG_DIR", stringVar(&c.Paths.LogDir)},
		{"STATE_DIR", stringVar(&c.Paths.StateDir)},

		{"SOURCE_KIND", stringVar(&c.Source.Kind)},
		{"WEBDAV_SOURCE_HOST", stringVar(&c.Source.Host)},
		{"WEBDAV_SOURCE_USERNAME", stringVar(&c.Source.Username)},
		{"WEBDAV_SOURCE_PASSWORD", stringVar(&c.Source.Password)},
		{"SOURCE_BUCKET", stringVar(&c.Source.Bucket)},
		{"SOURCE_REGION", stringVar(&c.Source.Region)},
		{"SOURCE_PREFIX", stringVar(&c.Source.Prefix)},
		{"SOURCE_ENDPOINT", stringVar(&c.Source.Endpoint)},
		{"SOURCE_ROOT", stringVar(&c.Source.Root)},

		{"DEST_KIND", stringVar(&c.Destination.Kind)},
		{"WEBDAV_DEST_HOST", stringVar(&c.Destination.Host)},
		{"WEBDAV_DEST_USERNAME", stringVar(&c.Destination.Username)},
		{"WEBDAV_DEST_PASSWORD", stringVar(&c.Destination.Password)},
		{"DEST_BUCKET", stringVar(&c.Destination.Bucket)},
		{"DEST_REGION", stringVar(&c.Destination.Region)},
		{"DEST_PREFIX", stringVar(&c.Destination.Prefix)},
		{"DEST_ENDPOINT", stringVar(&c.Destination.Endpoint)},
		{"DEST_ROOT", stringVar(&c.Destination.Root)},

		{"OPENAI_API_KEY", stringVar(&c.LLM.APIKey)},
		{"OPENAI_BASE_URL", stringVar(&c.LLM.BaseURL)},
		{"LLM_MODEL", stringVar(&c.LLM.Model)},
		{"LLM_TIMEOUT_SECONDS", intVar(&c.LLM.TimeoutSeconds)},
		{"LLM_MAX_TOKENS", intVar(&c.LLM.MaxTokens)},
		{"LLM_JSON_EXTRACTION", stringVar(&c.LLM.JSONExtraction)},
		{"SYSTEM_PROMPT", stringVar(&c.Prompts.System)},
		{"VISION_PROMPT", stringVar(&c.Prompts.Vision)},

		{"MAX_IMAGE_SIZE", int64Var(&c.Images.MaxSize)},
		{"SUPPORTED_FORMATS", listVar(&c.Images.SupportedFormats)},
		{"MAX_RETRIES", intVar(&c.Transfer.MaxRetries)},
		{"RETRY_DELAY", intVar(&c.Transfer.RetryDelaySeconds)},

		{"SOURCE_DIR", stringVar(&c.Remote.SourceDir)},
		{"DEST_DIR", stringVar(&c.Remote.DestDir)},
		{"HOLDING_DIR", stringVar(&c.Remote.HoldingDir)},
		{"DELETE_SOURCE", boolVar(&c.Remote.DeleteSource)},
		{"UPLOAD_IMAGE", boolVar(&c.Remote.UploadImage)},
		{"LOCAL_INPUT_DIR", stringVar(&c.Local.InputDir)},
		{"LOCAL_OUTPUT_DIR", stringVar(&c.Local.OutputDir)},
		{"LOCAL_PROGRESS", boolVar(&c.Local.Progress)},

		{"LOG_LEVEL", stringVar(&c.Logging.Level)},
		{"LOG_FORMAT", stringVar(&c.Logging.Format)},

		{"NTFY_TOPIC", stringVar(&c.Notifications.NtfyTopic)},
		{"NTFY_REQUEST_TIMEOUT", intVar(&c.Notifications.RequestTimeoutSeconds)},
	}
}

func (c *Config) applyEnv(lookup lookupFunc) error {
	for _, binding := range c.envBindings() {
		value, ok := lookup(binding.key)
		if !ok {
			continue
		}
		if err := binding.apply(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%s: %w", binding.key, err)
		}
	}
	return nil
}

func stringVar(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func intVar(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer %q", v)
		}
		*dst = n
		return nil
	}
}

func int64Var(dst *int64) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q", v)
		}
		*dst = n
		return nil
	}
}

func boolVar(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", v)
		}
		*dst = b
		return nil
	}
}

func listVar(dst *[]string) func(string) error {
	return func(v string) error {
		*dst = strings.Split(v, ",")
		return nil
	}
}
