package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/astromechza/todoboard/pkg/board"
)

// maxUpdateAttempts bounds the optimistic retries of Update when another
// process keeps changing the board between read and write.
const maxUpdateAttempts = 50

// RedisStore keeps the board json under a single key namespaced with the
// instance name, so several boards can share one Redis.
type RedisStore struct {
	rdb          *redis.Client
	instanceName string
	lists        int
}

func NewRedisStore(redisOpts *redis.Options, instanceName string, lists int) (*RedisStore, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	return &RedisStore{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
		lists:        lists,
	}, nil
}

// BoardKey returns the key holding the board of an instance.
func BoardKey(instanceName string) string {
	return fmt.Sprintf("todoboard:%s:board", instanceName)
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Load(ctx context.Context) (board.Board, error) {
	raw, err := s.rdb.Get(ctx, BoardKey(s.instanceName)).Bytes()
	found := true
	if errors.Is(err, redis.Nil) {
		found = false
	} else if err != nil {
		return board.Board{}, fmt.Errorf("failed to read board from Redis: %w", err)
	}
	return resolve(ctx, raw, found, s.lists, s.Save)
}

func (s *RedisStore) Save(ctx context.Context, b board.Board) error {
	raw, err := Encode(b)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, BoardKey(s.instanceName), raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to write board to Redis: %w", err)
	}
	return nil
}

// Update watches the board key, applies fn to the board read under the watch
// and writes the result in a MULTI/EXEC block. When another process writes the
// key in between, the transaction fails and the whole step is retried against
// the newer board.
func (s *RedisStore) Update(ctx context.Context, _ string, fn UpdateFunc) (board.Board, error) {
	key := BoardKey(s.instanceName)
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		var latest, next board.Board
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			found := true
			if errors.Is(err, redis.Nil) {
				found = false
			} else if err != nil {
				return fmt.Errorf("failed to read board from Redis: %w", err)
			}
			latest, _ = decodeOrDefault(raw, found, s.lists)
			if next, err = fn(latest); err != nil {
				return err
			}
			encoded, err := Encode(next)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				return nil
			})
			return err
		}, key)
		switch {
		case err == nil:
			return next, nil
		case errors.Is(err, redis.TxFailedErr):
			slog.Debug("board changed during update, retrying", "attempt", attempt)
			continue
		default:
			return latest, err
		}
	}
	return board.Board{}, fmt.Errorf("failed to update board after %d attempts: %w", maxUpdateAttempts, redis.TxFailedErr)
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
