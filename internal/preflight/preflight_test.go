package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	names []string
	err   error
}

func (f fakeLister) List(context.Context, string, []string) ([]string, error) {
	return f.names, f.err
}

type fakeDirs struct {
	created []string
	deleted []string
	err     error
}

func (f *fakeDirs) CreateDirectory(_ context.Context, dir string) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, dir)
	return nil
}

func (f *fakeDirs) Delete(_ context.Context, p string) error {
	f.deleted = append(f.deleted, p)
	return nil
}

type fakeModel struct{ err error }

func (f fakeModel) HealthCheck(context.Context) error { return f.err }

type fakeNotifier struct{ err error }

func (f fakeNotifier) TestNotification(context.Context) error { return f.err }

func TestCheckDirectoryAccess(t *testing.T) {
	assert.True(t, CheckDirectoryAccess("tmp", t.TempDir()).Passed)

	missing := CheckDirectoryAccess("tmp", filepath.Join(t.TempDir(), "nope"))
	assert.False(t, missing.Passed)
	assert.Contains(t, missing.Detail, "does not exist")

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.False(t, CheckDirectoryAccess("tmp", file).Passed)
}

func TestCheckOutputDirectoryAllowsMissingUnderWritableParent(t *testing.T) {
	result := CheckOutputDirectory("out", filepath.Join(t.TempDir(), "a", "b"))
	assert.True(t, result.Passed)
	assert.Contains(t, result.Detail, "will be created")
}

func TestRunAllPass(t *testing.T) {
	dirs := &fakeDirs{}
	results := Run(context.Background(), Checks{
		TempDir:     t.TempDir(),
		Source:      fakeLister{names: []string{"a.jpg", "b.png"}},
		SourceDir:   "/",
		Destination: dirs,
		DestDir:     "/Rezepte",
		Model:       fakeModel{},
		ModelName:   "gpt-test",
	})
	require.Len(t, results, 4)
	assert.True(t, AllPassed(results))
	assert.Contains(t, results[1].Detail, "2 images")
	require.Len(t, dirs.created, 1)
	assert.True(t, strings.HasPrefix(dirs.created[0], "/Rezepte/.scantocookbook-probe-"))
	assert.Equal(t, dirs.created, dirs.deleted)
	assert.Contains(t, results[3].Detail, "gpt-test")
}

func TestRunReportsFailures(t *testing.T) {
	results := Run(context.Background(), Checks{
		Source:      fakeLister{err: errors.New("401 unauthorized")},
		Destination: &fakeDirs{err: errors.New("forbidden")},
		Model:       fakeModel{err: context.DeadlineExceeded},
		Notifier:    fakeNotifier{err: errors.New("ntfy returned 403")},
	})
	require.Len(t, results, 4)
	assert.False(t, AllPassed(results))
	for _, r := range results {
		assert.False(t, r.Passed, r.Name)
	}
	assert.Contains(t, results[0].Detail, "401")
	assert.Equal(t, "timed out", results[2].Detail)
	assert.Equal(t, "Notifications", results[3].Name)
}

func TestCheckNotifications(t *testing.T) {
	ok := CheckNotifications(context.Background(), fakeNotifier{})
	assert.True(t, ok.Passed)
	assert.Equal(t, "test message delivered", ok.Detail)
}

func TestRunLocalChecks(t *testing.T) {
	results := Run(context.Background(), Checks{
		InputDir:  t.TempDir(),
		OutputDir: t.TempDir(),
	})
	require.Len(t, results, 2)
	assert.True(t, AllPassed(results))
}
