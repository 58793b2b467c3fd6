package transfer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"scantocookbook/internal/logging"
	"scantocookbook/internal/retry"
	"scantocookbook/internal/services"
)

// Client exposes retry-protected store operations for one configured store.
type Client struct {
	name    string
	backend Backend
	policy  retry.Policy
	logger  *slog.Logger
}

// NewClient wraps backend. name labels log lines and errors ("source", "destination").
func NewClient(name string, backend Backend, policy retry.Policy, logger *slog.Logger) *Client {
	logger = logging.NewComponentLogger(logger, "transfer").With(logging.String("store", name))
	return &Client{
		name:    name,
		backend: backend,
		policy:  policy,
		logger:  logger,
	}
}

// Name returns the store label.
func (c *Client) Name() string {
	return c.name
}

// List returns the names of files directly inside dir whose extension matches
// one of extensions (case-insensitive). A nil or empty filter returns every file.
func (c *Client) List(ctx context.Context, dir string, extensions []string) ([]string, error) {
	dir = CleanPath(dir)
	pattern := ExtensionPattern(extensions)
	entries, err := retry.DoValue(ctx, c.policy, "list "+dir, func(ctx context.Context) ([]Entry, error) {
		entries, err := c.backend.List(ctx, dir)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, retry.Permanent(err)
		}
		return entries, err
	})
	if err != nil {
		return nil, c.wrap("list", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir || entry.Name == "" {
			continue
		}
		if CleanPath(entry.Path) == dir {
			continue
		}
		if !MatchesPattern(pattern, entry.Name) {
			continue
		}
		names = append(names, entry.Name)
	}
	sort.Strings(names)
	c.logger.Debug("listed directory",
		logging.String("dir", dir),
		logging.Int("entries", len(entries)),
		logging.Int("matched", len(names)),
	)
	return names, nil
}

// Download copies remotePath to localPath, creating local parent directories.
// Data is written to a temporary sibling first so a failed attempt never leaves
// a truncated file at localPath.
func (c *Client) Download(ctx context.Context, remotePath, localPath string) error {
	remotePath = CleanPath(remotePath)
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return services.Wrap(services.ErrValidation, "transfer", "download", "create local directory", err)
	}
	err := c.policy.Do(ctx, "download "+remotePath, func(ctx context.Context) error {
		err := c.downloadOnce(ctx, remotePath, localPath)
		if errors.Is(err, fs.ErrNotExist) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return c.wrap("download", remotePath, err)
	}
	c.logger.Info("downloaded file",
		logging.String("remote_path", remotePath),
		logging.String("local_path", localPath),
	)
	return nil
}

func (c *Client) downloadOnce(ctx context.Context, remotePath, localPath string) error {
	tmp, err := os.CreateTemp(filepath.Dir(localPath), "."+filepath.Base(localPath)+".part-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := c.backend.Download(ctx, remotePath, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmpName, localPath)
}

// Upload copies localPath to remotePath. The remote parent directory is created
// first unless it is the store root.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string) error {
	remotePath = CleanPath(remotePath)
	if _, err := os.Stat(localPath); err != nil {
		return services.Wrap(services.ErrValidation, "transfer", "upload", "local file unavailable", err)
	}
	err := c.policy.Do(ctx, "upload "+remotePath, func(ctx context.Context) error {
		if dir := path.Dir(remotePath); dir != "/" {
			if err := c.backend.MkdirAll(ctx, dir); err != nil {
				return fmt.Errorf("create parent %s: %w", dir, err)
			}
		}
		file, err := os.Open(localPath)
		if err != nil {
			return retry.Permanent(err)
		}
		defer file.Close()
		return c.backend.Upload(ctx, file, remotePath)
	})
	if err != nil {
		return c.wrap("upload", remotePath, err)
	}
	c.logger.Info("uploaded file",
		logging.String("local_path", localPath),
		logging.String("remote_path", remotePath),
	)
	return nil
}

// CreateDirectory creates dir and any missing parents. Existing directories are
// not an error.
func (c *Client) CreateDirectory(ctx context.Context, dir string) error {
	dir = CleanPath(dir)
	err := c.policy.Do(ctx, "mkdir "+dir, func(ctx context.Context) error {
		return c.backend.MkdirAll(ctx, dir)
	})
	if err != nil {
		return c.wrap("mkdir", dir, err)
	}
	c.logger.Debug("ensured directory", logging.String("dir", dir))
	return nil
}

// Delete removes remotePath.
func (c *Client) Delete(ctx context.Context, remotePath string) error {
	remotePath = CleanPath(remotePath)
	err := c.policy.Do(ctx, "delete "+remotePath, func(ctx context.Context) error {
		err := c.backend.Remove(ctx, remotePath)
		if errors.Is(err, fs.ErrNotExist) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return c.wrap("delete", remotePath, err)
	}
	c.logger.Info("deleted file", logging.String("remote_path", remotePath))
	return nil
}

// Exists reports whether remotePath exists. A missing item is not an error.
func (c *Client) Exists(ctx context.Context, remotePath string) (bool, error) {
	_, err := c.Info(ctx, remotePath)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, services.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Info returns metadata for remotePath.
func (c *Client) Info(ctx context.Context, remotePath string) (Entry, error) {
	remotePath = CleanPath(remotePath)
	entry, err := retry.DoValue(ctx, c.policy, "stat "+remotePath, func(ctx context.Context) (Entry, error) {
		entry, err := c.backend.Stat(ctx, remotePath)
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, retry.Permanent(err)
		}
		return entry, err
	})
	if err != nil {
		return Entry{}, c.wrap("stat", remotePath, err)
	}
	return entry, nil
}

func (c *Client) wrap(op, target string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	marker := services.ErrTransient
	switch {
	case errors.Is(err, fs.ErrNotExist):
		marker = services.ErrNotFound
	case errors.Is(err, ErrOutsideRoot):
		marker = services.ErrValidation
	}
	return services.Wrap(marker, "transfer", op, c.name+" "+target, err)
}
