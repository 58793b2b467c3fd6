package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFilePreservesContentAndMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o600))

	require.NoError(t, CopyFile(src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")
	content := make([]byte, 100*1024)
	for i := range content {
		content[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(src, content, 0o644))

	require.NoError(t, CopyFileVerified(src, dst))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFileVerified(filepath.Join(dir, "missing"), filepath.Join(dir, "dst"))
	require.Error(t, err)
}

func TestBackupAndRestore(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(original, []byte("original"), 0o644))

	backup, err := Backup(original)
	require.NoError(t, err)
	assert.Equal(t, original+BackupSuffix, backup)

	require.NoError(t, os.WriteFile(original, []byte("half-written"), 0o644))
	require.NoError(t, Restore(backup, original))

	got, err := os.ReadFile(original)
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))
	_, err = os.Stat(backup)
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	removed, err := RemoveIfExists(path)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = RemoveIfExists(path)
	require.NoError(t, err)
	assert.False(t, removed)
}
