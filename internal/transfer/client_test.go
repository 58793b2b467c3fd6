package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scantocookbook/internal/logging"
	"scantocookbook/internal/retry"
	"scantocookbook/internal/services"
)

// memoryBackend is an in-memory Backend with per-operation failure injection.
type memoryBackend struct {
	mu       sync.Mutex
	files    map[string][]byte
	dirs     map[string]bool
	failures map[string]int
	calls    map[string]int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		files:    map[string][]byte{},
		dirs:     map[string]bool{"/": true},
		failures: map[string]int{},
		calls:    map[string]int{},
	}
}

func (m *memoryBackend) fail(op string) error {
	m.calls[op]++
	if m.failures[op] > 0 {
		m.failures[op]--
		return fmt.Errorf("%s: connection reset", op)
	}
	return nil
}

func (m *memoryBackend) List(_ context.Context, dir string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("list"); err != nil {
		return nil, err
	}
	if !m.dirs[dir] {
		return nil, fs.ErrNotExist
	}
	entries := []Entry{{Name: path.Base(dir), Path: dir, IsDir: true}}
	for p, data := range m.files {
		if path.Dir(p) == dir {
			entries = append(entries, Entry{Name: path.Base(p), Path: p, Size: int64(len(data))})
		}
	}
	for d := range m.dirs {
		if d != dir && path.Dir(d) == dir {
			entries = append(entries, Entry{Name: path.Base(d), Path: d, IsDir: true})
		}
	}
	return entries, nil
}

func (m *memoryBackend) Download(_ context.Context, p string, w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("download"); err != nil {
		_, _ = w.Write([]byte("partial"))
		return err
	}
	data, ok := m.files[p]
	if !ok {
		return fs.ErrNotExist
	}
	_, err := w.Write(data)
	return err
}

func (m *memoryBackend) Upload(_ context.Context, r io.Reader, p string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("upload"); err != nil {
		return err
	}
	if !m.dirs[path.Dir(p)] {
		return errors.New("409 conflict: parent missing")
	}
	m.files[p] = data
	return nil
}

func (m *memoryBackend) MkdirAll(_ context.Context, dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("mkdir"); err != nil {
		return err
	}
	for d := dir; d != "/"; d = path.Dir(d) {
		m.dirs[d] = true
	}
	return nil
}

func (m *memoryBackend) Remove(_ context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("remove"); err != nil {
		return err
	}
	if _, ok := m.files[p]; !ok {
		return fs.ErrNotExist
	}
	delete(m.files, p)
	return nil
}

func (m *memoryBackend) Stat(_ context.Context, p string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("stat"); err != nil {
		return Entry{}, err
	}
	if data, ok := m.files[p]; ok {
		return Entry{Name: path.Base(p), Path: p, Size: int64(len(data))}, nil
	}
	if m.dirs[p] {
		return Entry{Name: path.Base(p), Path: p, IsDir: true}, nil
	}
	return Entry{}, fs.ErrNotExist
}

func newTestClient(backend Backend, attempts int) (*Client, *[]time.Duration) {
	var sleeps []time.Duration
	policy := retry.New(attempts, 2*time.Second, retry.WithSleeper(func(d time.Duration) {
		sleeps = append(sleeps, d)
	}))
	return NewClient("source", backend, policy, logging.NewNop()), &sleeps
}

func TestListFiltersExtensionsCaseInsensitive(t *testing.T) {
	backend := newMemoryBackend()
	backend.dirs["/Screenshots"] = true
	backend.dirs["/Screenshots/sub"] = true
	backend.files["/Screenshots/a.JPG"] = []byte("a")
	backend.files["/Screenshots/b.png"] = []byte("b")
	backend.files["/Screenshots/notes.txt"] = []byte("c")
	client, _ := newTestClient(backend, 3)

	names, err := client.List(context.Background(), "/Screenshots", []string{"jpg", ".png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.JPG", "b.png"}, names)

	all, err := client.List(context.Background(), "/Screenshots/", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.JPG", "b.png", "notes.txt"}, all)
}

func TestListRetriesThenSucceeds(t *testing.T) {
	backend := newMemoryBackend()
	backend.files["/x.jpg"] = []byte("x")
	backend.failures["list"] = 2
	client, sleeps := newTestClient(backend, 3)

	names, err := client.List(context.Background(), "/", []string{"jpg"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x.jpg"}, names)
	assert.Equal(t, 3, backend.calls["list"])
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, *sleeps)
}

func TestDownloadWritesAtomically(t *testing.T) {
	backend := newMemoryBackend()
	backend.files["/Screenshots/soup.jpg"] = []byte("jpeg-bytes")
	backend.failures["download"] = 1
	client, _ := newTestClient(backend, 3)

	local := filepath.Join(t.TempDir(), "work", "soup.jpg")
	require.NoError(t, client.Download(context.Background(), "/Screenshots/soup.jpg", local))

	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(local), ".soup.jpg.part-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestDownloadExhaustedIsTransient(t *testing.T) {
	backend := newMemoryBackend()
	backend.files["/a.jpg"] = []byte("a")
	backend.failures["download"] = 5
	client, sleeps := newTestClient(backend, 3)

	local := filepath.Join(t.TempDir(), "a.jpg")
	err := client.Download(context.Background(), "/a.jpg", local)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrTransient)
	assert.Equal(t, 3, backend.calls["download"])
	assert.Len(t, *sleeps, 2)
	_, statErr := os.Stat(local)
	assert.True(t, errors.Is(statErr, fs.ErrNotExist))
}

func TestDownloadMissingIsNotRetried(t *testing.T) {
	backend := newMemoryBackend()
	client, sleeps := newTestClient(backend, 3)

	err := client.Download(context.Background(), "/missing.jpg", filepath.Join(t.TempDir(), "m.jpg"))
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.Equal(t, 1, backend.calls["download"])
	assert.Empty(t, *sleeps)
}

func TestUploadCreatesParentDirectory(t *testing.T) {
	backend := newMemoryBackend()
	client, _ := newTestClient(backend, 3)

	local := filepath.Join(t.TempDir(), "recipe.json")
	require.NoError(t, os.WriteFile(local, []byte(`{"name":"Soup"}`), 0o644))

	require.NoError(t, client.Upload(context.Background(), local, "/Rezepte/Soup/recipe.json"))
	assert.Equal(t, `{"name":"Soup"}`, string(backend.files["/Rezepte/Soup/recipe.json"]))
	assert.True(t, backend.dirs["/Rezepte/Soup"])
}

func TestUploadToRootSkipsMkdir(t *testing.T) {
	backend := newMemoryBackend()
	client, _ := newTestClient(backend, 3)

	local := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(local, []byte("a"), 0o644))
	require.NoError(t, client.Upload(context.Background(), local, "a.txt"))
	assert.Zero(t, backend.calls["mkdir"])
	assert.Contains(t, backend.files, "/a.txt")
}

func TestUploadRetriesAndReopensFile(t *testing.T) {
	backend := newMemoryBackend()
	backend.failures["upload"] = 2
	client, _ := newTestClient(backend, 3)

	local := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(local, []byte("complete"), 0o644))
	require.NoError(t, client.Upload(context.Background(), local, "/out/a.txt"))
	assert.Equal(t, "complete", string(backend.files["/out/a.txt"]))
	assert.Equal(t, 3, backend.calls["upload"])
}

func TestUploadMissingLocalFileIsValidationError(t *testing.T) {
	client, _ := newTestClient(newMemoryBackend(), 3)
	err := client.Upload(context.Background(), filepath.Join(t.TempDir(), "nope"), "/x")
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestExistsAndDelete(t *testing.T) {
	backend := newMemoryBackend()
	backend.files["/a.jpg"] = []byte("a")
	client, _ := newTestClient(backend, 3)
	ctx := context.Background()

	ok, err := client.Exists(ctx, "/a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, client.Delete(ctx, "/a.jpg"))

	ok, err = client.Exists(ctx, "/a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, backend.calls["stat"])
}

func TestExistsPropagatesPersistentFailure(t *testing.T) {
	backend := newMemoryBackend()
	backend.failures["stat"] = 10
	client, _ := newTestClient(backend, 2)

	_, err := client.Exists(context.Background(), "/a.jpg")
	assert.ErrorIs(t, err, services.ErrTransient)
}

func TestCreateDirectoryIsIdempotent(t *testing.T) {
	backend := newMemoryBackend()
	client, _ := newTestClient(backend, 3)
	require.NoError(t, client.CreateDirectory(context.Background(), "/Rezepte"))
	require.NoError(t, client.CreateDirectory(context.Background(), "/Rezepte"))
	assert.True(t, backend.dirs["/Rezepte"])
}

func TestInfoReportsSize(t *testing.T) {
	backend := newMemoryBackend()
	backend.files["/a.jpg"] = bytes.Repeat([]byte("x"), 42)
	client, _ := newTestClient(backend, 1)

	entry, err := client.Info(context.Background(), "/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(42), entry.Size)
	assert.Equal(t, "a.jpg", entry.Name)
}
