package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"recipe-keeper/internal/infrastructure/config"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore 所有後端共用的行為檢查
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "SavedRecipes")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "SavedRecipes", `[{"name":"Soup"}]`))
	value, ok, err := s.Get(ctx, "SavedRecipes")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"name":"Soup"}]`, value)

	require.NoError(t, s.Set(ctx, "SavedRecipes", `[]`))
	value, _, err = s.Get(ctx, "SavedRecipes")
	require.NoError(t, err)
	assert.Equal(t, `[]`, value)

	require.NoError(t, s.Set(ctx, "SavedRecipes.corrupt", "{"))
	require.NoError(t, s.Remove(ctx, "SavedRecipes"))
	_, ok, err = s.Get(ctx, "SavedRecipes")
	require.NoError(t, err)
	assert.False(t, ok)

	value, ok, err = s.Get(ctx, "SavedRecipes.corrupt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "{", value)

	require.NoError(t, s.Remove(ctx, "missing"))
}

func TestFileStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := NewFileStore(fs, "/data")
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)

	require.NoError(t, s.Set(context.Background(), "a/b", "x"))
	exists, err := afero.Exists(fs, "/data/a%2Fb.json")
	require.NoError(t, err)
	assert.True(t, exists, "keys never escape the storage directory")

	leftovers, err := afero.Glob(fs, "/data/*.tmp")
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "recipes.db")
	s, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 15)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(context.Background(), config.StorageConfig{Driver: DriverFile, Dir: filepath.Join(dir, "files")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), config.StorageConfig{Driver: DriverSQLite, SQLitePath: filepath.Join(dir, "r.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(context.Background(), config.StorageConfig{Driver: "mongo"})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
