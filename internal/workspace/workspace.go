// Package workspace owns the temporary directory images are downloaded into.
//
// Temp file names are derived from the source basename, so only one run may
// use a directory at a time. Acquire enforces that with an exclusive flock.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gofrs/flock"

	"scantocookbook/internal/imageutil"
	"scantocookbook/internal/logging"
	"scantocookbook/internal/services"
)

const lockFileName = ".lock"

// ownedPatterns match the names runs create in the workspace: partial
// downloads, encoder temp files, analysis and recipe documents, and images.
var ownedPatterns = []string{
	".*.part-*",
	".*.tmp-*",
	"*_analysis.json",
	"*_analysis.json.txt",
	"recipe.json",
	"*{" + strings.Join(imageutil.SupportedExtensions, ",") + "}",
}

// owned reports whether name looks like a file a run leaves behind.
func owned(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range ownedPatterns {
		if ok, _ := doublestar.Match(pattern, lower); ok {
			return true
		}
	}
	return false
}

// ErrLocked is returned when another run holds the workspace.
var ErrLocked = errors.New("workspace is in use by another run")

// Workspace is an exclusively held temp directory.
type Workspace struct {
	dir    string
	lock   *flock.Flock
	logger *slog.Logger
}

// Acquire creates dir if needed and takes its lock.
func Acquire(dir string, logger *slog.Logger) (*Workspace, error) {
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "workspace", "acquire", "temp dir not set", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workspace", "create", dir, err)
	}
	lockPath := filepath.Join(dir, lockFileName)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
	}
	ws := &Workspace{
		dir:    dir,
		lock:   lock,
		logger: logging.NewComponentLogger(logger, "workspace"),
	}
	ws.logger.Debug("workspace acquired", logging.String("dir", dir))
	return ws, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the temp location for a file named after name's basename.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, filepath.Base(filepath.FromSlash(name)))
}

// Cleanup removes the given files. Failures are logged, never returned.
func (w *Workspace) Cleanup(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		err := os.Remove(path)
		switch {
		case err == nil:
			w.logger.Debug("removed temp file", logging.String("path", path))
		case errors.Is(err, fs.ErrNotExist):
		default:
			logging.WarnWithContext(w.logger, "failed to remove temp file", "temp_cleanup_failed",
				logging.String("path", path),
				logging.String(logging.FieldErrorHint, "remove the file manually"),
				logging.String(logging.FieldImpact, "temp directory keeps a stale file"),
				logging.Error(err),
			)
		}
	}
}

// Sweep removes files older than maxAge left behind by interrupted runs.
// Only names matching ownedPatterns are considered, so unrelated files in a
// shared temp dir survive. It returns the number of files removed.
func (w *Workspace) Sweep(maxAge time.Duration) int {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	var stale []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !owned(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		stale = append(stale, filepath.Join(w.dir, entry.Name()))
	}
	w.Cleanup(stale...)
	if len(stale) > 0 {
		w.logger.Info("swept stale temp files", logging.Int("count", len(stale)))
	}
	return len(stale)
}

// Release drops the lock. The directory itself is kept.
func (w *Workspace) Release() error {
	if w == nil || w.lock == nil {
		return nil
	}
	return w.lock.Unlock()
}
