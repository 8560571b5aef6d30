package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astromechza/todoboard/pkg/board"
)

func openFileStore(t *testing.T) Store {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "data", "db.json"), 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFileStore(t *testing.T) {
	assertStoreContract(t, openFileStore)
}

func TestFileStorePersistsDefaultBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := NewFileStore(path, 2)
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	b, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, board.Default(2), b)
	assert.NoFileExists(t, path+".tmp")
}

func TestFileStoreRecoversFromCorruption(t *testing.T) {
	for name, content := range map[string]string{
		"garbage":     "}}} not json",
		"wrong shape": `{"todos": []}`,
		"empty file":  "",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "db.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			s, err := NewFileStore(path, 4)
			require.NoError(t, err)

			b, err := s.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, board.Default(4), b)

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			_, err = Decode(raw)
			assert.NoError(t, err, "corrupt file should be replaced by the default board")
		})
	}
}

func TestFileStoreSharedAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	a, err := NewFileStore(path, 3)
	require.NoError(t, err)
	b, err := NewFileStore(path, 3)
	require.NoError(t, err)

	want := sampleBoard(t)
	require.NoError(t, a.Save(context.Background(), want))
	got, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStoreUpdate(t *testing.T) {
	assertUpdaterContract(t, func(t *testing.T) (sharedStore, sharedStore) {
		path := filepath.Join(t.TempDir(), "db.json")
		a, err := NewFileStore(path, 3)
		require.NoError(t, err)
		t.Cleanup(func() { _ = a.Close() })
		b, err := NewFileStore(path, 3)
		require.NoError(t, err)
		t.Cleanup(func() { _ = b.Close() })
		return a, b
	})
}
