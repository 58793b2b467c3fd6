package transfer

import (
	"context"
	"io"
	"path"
	"strings"
	"time"
)

// Entry describes one item in a store directory.
type Entry struct {
	Name    string
	Path    string
	Size    int64
	IsDir   bool
	ModTime time.Time
}

// Backend is the capability set a storage technology must provide. Paths are
// slash-separated and rooted at "/". Implementations report missing items with
// errors wrapping fs.ErrNotExist.
type Backend interface {
	List(ctx context.Context, dir string) ([]Entry, error)
	Download(ctx context.Context, remotePath string, w io.Writer) error
	Upload(ctx context.Context, r io.Reader, remotePath string) error
	MkdirAll(ctx context.Context, dir string) error
	Remove(ctx context.Context, remotePath string) error
	Stat(ctx context.Context, remotePath string) (Entry, error)
}

// CleanPath normalizes a store path to an absolute slash-separated form.
func CleanPath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	return path.Clean("/" + p)
}
