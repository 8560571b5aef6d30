package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astromechza/todoboard/pkg/board"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	s, err := NewRedisStore(&redis.Options{Addr: mr.Addr()}, "test-instance", 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	assertStoreContract(t, func(t *testing.T) Store {
		s, _ := setupRedisStore(t)
		return s
	})
}

func TestRedisStoreUpdate(t *testing.T) {
	assertUpdaterContract(t, func(t *testing.T) (sharedStore, sharedStore) {
		a, mr := setupRedisStore(t)
		b, err := NewRedisStore(&redis.Options{Addr: mr.Addr()}, "test-instance", 3)
		require.NoError(t, err)
		t.Cleanup(func() { _ = b.Close() })
		return a, b
	})
}

func TestRedisStoreUpdateRetriesOnConflict(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, board.Default(3)))

	calls := 0
	next, err := s.Update(ctx, "add", func(latest board.Board) (board.Board, error) {
		calls++
		if calls == 1 {
			// Another process writes between our read and our write.
			concurrent, _, err := board.AddTodo(latest, "list-1", "from elsewhere", 7)
			require.NoError(t, err)
			raw, err := Encode(concurrent)
			require.NoError(t, err)
			require.NoError(t, mr.Set(BoardKey("test-instance"), string(raw)))
		}
		return addTodoFunc(8)(latest)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	total, _ := next.TodoCount()
	assert.Equal(t, 2, total)
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, got)
}

func TestRedisStoreRejectsEmptyInstance(t *testing.T) {
	_, err := NewRedisStore(&redis.Options{Addr: "localhost:6379"}, "", 3)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "instance name cannot be empty")
}

func TestRedisStoreNamespacedKey(t *testing.T) {
	s, mr := setupRedisStore(t)
	require.NoError(t, s.Save(context.Background(), board.Default(1)))

	assert.True(t, mr.Exists("todoboard:test-instance:board"))
	raw, err := mr.Get(BoardKey("test-instance"))
	require.NoError(t, err)
	b, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, board.Default(1), b)
}

func TestRedisStoreRecoversFromCorruption(t *testing.T) {
	s, mr := setupRedisStore(t)
	require.NoError(t, mr.Set(BoardKey("test-instance"), "not a board"))

	b, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, board.Default(3), b)

	raw, err := mr.Get(BoardKey("test-instance"))
	require.NoError(t, err)
	_, err = Decode([]byte(raw))
	assert.NoError(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	s, err := Open(ctx, Options{Driver: DriverRedis, Lists: 1, InstanceName: "x", Redis: &redis.Options{Addr: mr.Addr()}})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Driver: DriverRedis, Lists: 1, InstanceName: "x"})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Driver: "mongo"})
	assert.ErrorContains(t, err, "unknown store driver")
}
