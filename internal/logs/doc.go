// Package logs reads the run log file for the CLI: the last N lines, optionally
// filtered by a substring such as a run id or image path, and a follow mode
// that polls for appended lines until the context ends.
package logs
