package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"scantocookbook/internal/retry"
)

// ErrOutsideRoot is returned for paths that climb above the store root.
var ErrOutsideRoot = errors.New("path escapes store root")

// LocalBackend stores files below a root directory on the local filesystem.
type LocalBackend struct {
	root string
}

// NewLocal creates the root directory if needed.
func NewLocal(root string) (*LocalBackend, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("local store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve local store root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create local store root: %w", err)
	}
	return &LocalBackend{root: abs}, nil
}

// Root returns the absolute root directory.
func (b *LocalBackend) Root() string {
	return b.root
}

func (b *LocalBackend) resolve(p string) (string, error) {
	slashed := strings.ReplaceAll(p, "\\", "/")
	for _, segment := range strings.Split(slashed, "/") {
		if segment == ".." {
			return "", retry.Permanent(fmt.Errorf("%w: %q", ErrOutsideRoot, p))
		}
	}
	return filepath.Join(b.root, filepath.FromSlash(path.Clean("/"+slashed))), nil
}

func (b *LocalBackend) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := b.resolve(dir)
	if err != nil {
		return nil, err
	}
	items, err := os.ReadDir(full)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		info, err := item.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    item.Name(),
			Path:    path.Join(CleanPath(dir), item.Name()),
			Size:    info.Size(),
			IsDir:   item.IsDir(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}

func (b *LocalBackend) Download(ctx context.Context, remotePath string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := b.resolve(remotePath)
	if err != nil {
		return err
	}
	file, err := os.Open(full)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(w, file)
	return err
}

func (b *LocalBackend) Upload(ctx context.Context, r io.Reader, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := b.resolve(remotePath)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), "."+filepath.Base(full)+".part-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), full)
}

func (b *LocalBackend) MkdirAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := b.resolve(dir)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, 0o755)
}

func (b *LocalBackend) Remove(ctx context.Context, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := b.resolve(remotePath)
	if err != nil {
		return err
	}
	if full == b.root {
		return retry.Permanent(errors.New("refusing to remove store root"))
	}
	return os.Remove(full)
}

func (b *LocalBackend) Stat(ctx context.Context, remotePath string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	full, err := b.resolve(remotePath)
	if err != nil {
		return Entry{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return Entry{}, err
	}
	clean := CleanPath(remotePath)
	return Entry{
		Name:    path.Base(clean),
		Path:    clean,
		Size:    info.Size(),
		IsDir:   info.IsDir(),
		ModTime: info.ModTime(),
	}, nil
}
