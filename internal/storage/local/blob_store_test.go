package local_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/misheard-crawler/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NoError(t, store.Close())
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "archive")
		store, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		defer store.Close()
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestPutObject(t *testing.T) {
	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)
	defer store.Close()

	uri, err := store.PutObject(context.Background(), "pages/run-1/Q/misheard-queen.html", "text/html",
		strings.NewReader("<html>queen</html>"))
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.Join(dir, "pages", "run-1", "Q", "misheard-queen.html"), uri)

	data, err := os.ReadFile(filepath.Join(dir, "pages", "run-1", "Q", "misheard-queen.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html>queen</html>", string(data))

	_, err = store.PutObject(context.Background(), "pages/run-1/Q/misheard-queen.html", "text/html",
		strings.NewReader("short"))
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(dir, "pages", "run-1", "Q", "misheard-queen.html"))
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))
}

func TestPutObjectRejectsBadPaths(t *testing.T) {
	store, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()

	_, err = store.PutObject(context.Background(), "  ", "text/html", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = store.PutObject(context.Background(), "../../escape.html", "text/html", strings.NewReader("x"))
	assert.Error(t, err)
}
