// Package store persists the whole board as a single record. Every backend
// falls back to a freshly initialized board when the record is missing or
// unreadable, and writes that board back as the new baseline.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/astromechza/todoboard/pkg/board"
)

// ErrCorrupt marks a persisted record that could not be decoded into a valid board.
var ErrCorrupt = errors.New("corrupt board record")

// Store loads and saves the entire board.
type Store interface {
	Load(ctx context.Context) (board.Board, error)
	Save(ctx context.Context, b board.Board) error
	Close() error
}

// Revisioner is implemented by stores that keep a revision per save.
type Revisioner interface {
	SaveRevision(ctx context.Context, b board.Board, message string) error
}

// UpdateFunc derives the next board from the latest persisted one. An error
// aborts the update and nothing is written.
type UpdateFunc func(latest board.Board) (board.Board, error)

// Updater is implemented by stores that can be shared between processes.
// Update re-reads the persisted board, applies fn and writes the result as one
// atomic step, so a write made by another process is never overwritten by a
// board derived from an older copy. fn may run more than once. message names
// the change for stores that keep revisions.
type Updater interface {
	Update(ctx context.Context, message string, fn UpdateFunc) (board.Board, error)
}

// Decode parses a persisted record. The record must be an object with a
// "lists" array that satisfies board.Validate.
func Decode(raw []byte) (board.Board, error) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		return board.Board{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	lists, ok := shape["lists"]
	if !ok {
		return board.Board{}, fmt.Errorf("%w: missing lists", ErrCorrupt)
	}
	var b board.Board
	if err := json.Unmarshal(lists, &b.Lists); err != nil {
		return board.Board{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := b.Validate(); err != nil {
		return board.Board{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return b.Normalize(), nil
}

// Encode serializes a board as indented json.
func Encode(b board.Board) ([]byte, error) {
	raw, err := json.MarshalIndent(b.Normalize(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal board: %w", err)
	}
	return raw, nil
}

// resolve turns the raw persisted bytes into a board. found is false when no
// record exists. A missing or corrupt record is replaced by the default board,
// which is persisted through save before being returned.
func resolve(ctx context.Context, raw []byte, found bool, lists int, save func(context.Context, board.Board) error) (board.Board, error) {
	b, ok := decodeOrDefault(raw, found, lists)
	if ok {
		return b, nil
	}
	if err := save(ctx, b); err != nil {
		return board.Board{}, fmt.Errorf("failed to persist default board: %w", err)
	}
	return b, nil
}

// decodeOrDefault returns the persisted board, or the default board with ok
// set to false when the record is missing or unreadable.
func decodeOrDefault(raw []byte, found bool, lists int) (board.Board, bool) {
	if found {
		b, err := Decode(raw)
		if err == nil {
			return b, true
		}
		slog.Warn("discarding unreadable board", "err", err)
	}
	return board.Default(lists), false
}
