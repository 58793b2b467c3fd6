package transfer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"
)

// WebDAVBackend talks to a WebDAV server with basic or digest authentication.
// The underlying client has no context support, so cancellation is checked
// before each request.
type WebDAVBackend struct {
	client *gowebdav.Client
	host   string
}

// NewWebDAV creates a backend for host (the collection URL that acts as "/").
func NewWebDAV(host, username, password string, timeout time.Duration) *WebDAVBackend {
	client := gowebdav.NewClient(strings.TrimRight(host, "/"), username, password)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &WebDAVBackend{client: client, host: host}
}

// Connect verifies the server is reachable and the credentials are accepted.
func (b *WebDAVBackend) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.client.Connect(); err != nil {
		return fmt.Errorf("connect %s: %w", b.host, err)
	}
	return nil
}

func (b *WebDAVBackend) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := b.client.ReadDir(dir)
	if err != nil {
		return nil, webdavError(err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{
			Name:    info.Name(),
			Path:    path.Join(CleanPath(dir), info.Name()),
			Size:    info.Size(),
			IsDir:   info.IsDir(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}

func (b *WebDAVBackend) Download(ctx context.Context, remotePath string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stream, err := b.client.ReadStream(remotePath)
	if err != nil {
		return webdavError(err)
	}
	defer stream.Close()
	_, err = io.Copy(w, stream)
	return err
}

func (b *WebDAVBackend) Upload(ctx context.Context, r io.Reader, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return webdavError(b.client.WriteStream(remotePath, r, 0o644))
}

func (b *WebDAVBackend) MkdirAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return webdavError(b.client.MkdirAll(dir, 0o755))
}

func (b *WebDAVBackend) Remove(ctx context.Context, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return webdavError(b.client.Remove(remotePath))
}

func (b *WebDAVBackend) Stat(ctx context.Context, remotePath string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	info, err := b.client.Stat(remotePath)
	if err != nil {
		return Entry{}, webdavError(err)
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

// webdavError maps a 404 status onto fs.ErrNotExist.
func webdavError(err error) error {
	if err == nil {
		return nil
	}
	if gowebdav.IsErrNotFound(err) {
		return fmt.Errorf("%w: %w", fs.ErrNotExist, err)
	}
	return err
}
