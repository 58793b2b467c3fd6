// Package config loads, normalizes, and validates scanner configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML, YAML, or .env files, and applies the environment variable overrides
// used by container deployments (WEBDAV_SOURCE_HOST, OPENAI_API_KEY, ...).
// Mode-specific requirements (remote stores vs local directories) are checked
// by ValidateMode so commands that do not touch stores can still load a
// partial configuration.
package config
