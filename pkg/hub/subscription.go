package hub

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/astromechza/todoboard/pkg/board"
)

const subscriptionBuffer = 4

// Subscription delivers board snapshots to a single observer.
type Subscription struct {
	id     uuid.UUID
	events chan board.Board
	hub    *Hub
	cancel context.CancelFunc
	once   sync.Once
}

func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// Events returns the snapshot channel. It is closed once the subscription is
// closed. Snapshots must be treated as read-only.
func (s *Subscription) Events() <-chan board.Board {
	return s.events
}

// Close unsubscribes. Safe to call more than once. Implements io.Closer.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.hub.unsubscribe(s.id)
		s.cancel()
	})
	return nil
}

// deliver never blocks. Each snapshot is the whole board, so when the
// observer has fallen behind the oldest queued snapshot is dropped.
// Callers must hold the hub lock.
func (s *Subscription) deliver(b board.Board) {
	for {
		select {
		case s.events <- b:
			return
		default:
		}
		select {
		case <-s.events:
		default:
		}
	}
}
