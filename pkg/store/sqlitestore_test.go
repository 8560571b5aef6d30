package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astromechza/todoboard/pkg/board"
)

func openSQLiteStore(t *testing.T) Store {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "board.sqlite3"), 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	assertStoreContract(t, openSQLiteStore)
}

func TestSQLiteStoreUpdate(t *testing.T) {
	assertUpdaterContract(t, func(t *testing.T) (sharedStore, sharedStore) {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "board.sqlite3")
		a, err := OpenSQLite(ctx, path, 3)
		require.NoError(t, err)
		t.Cleanup(func() { _ = a.Close() })
		b, err := OpenSQLite(ctx, path, 3)
		require.NoError(t, err)
		t.Cleanup(func() { _ = b.Close() })
		return a, b
	})
}

func TestSQLiteStoreUpdateNamesRevision(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "board.sqlite3"), 2)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Update(ctx, "add todo to list-0", addTodoFunc(1))
	require.NoError(t, err)

	doc, err := s.History(ctx)
	require.NoError(t, err)
	changes, err := doc.Changes()
	require.NoError(t, err)
	require.NotEmpty(t, changes)
	assert.Equal(t, "add todo to list-0", changes[len(changes)-1].Message())
}

func TestSQLiteStoreKeepsRevisions(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "board.sqlite3")
	s, err := OpenSQLite(ctx, path, 3)
	require.NoError(t, err)
	defer s.Close()

	b, err := s.Load(ctx)
	require.NoError(t, err)
	b, _, err = board.AddTodo(b, "list-0", "first", 1)
	require.NoError(t, err)
	require.NoError(t, s.SaveRevision(ctx, b, "add todo to list-0"))
	b, _ = board.RenameList(b, "list-0", "Inbox")
	require.NoError(t, s.SaveRevision(ctx, b, "rename list-0"))

	reopened, err := OpenSQLite(ctx, path, 3)
	require.NoError(t, err)
	defer reopened.Close()

	doc, err := reopened.History(ctx)
	require.NoError(t, err)
	changes, err := doc.Changes()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(changes), 3)

	latest, found, err := BoardAt(doc)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, b, latest)

	first, err := doc.Fork(changes[0].Hash())
	require.NoError(t, err)
	initial, found, err := BoardAt(first)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, board.Default(3), initial)
}

func TestSQLiteStoreRecoversFromCorruption(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "board.sqlite3"), 2)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.database.ExecContext(ctx, `INSERT INTO boards (id, content) VALUES (?, ?)`, defaultBoardID, "%%% not base64")
	require.NoError(t, err)

	b, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, board.Default(2), b)

	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, board.Default(2), again)
}
