// Package hub is the single serialization point for the board. It owns the
// cached board, runs every load, mutate, save and broadcast sequence under one
// lock, and fans the resulting snapshots out to subscribed observers.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/astromechza/todoboard/pkg/board"
	"github.com/astromechza/todoboard/pkg/store"
)

// Publisher forwards snapshots beyond this process.
type Publisher interface {
	Publish(ctx context.Context, b board.Board) error
}

type Hub struct {
	store     store.Store
	now       func() time.Time
	publisher Publisher

	mu          sync.Mutex
	current     *board.Board
	ids         *board.IDSource
	subscribers map[uuid.UUID]*Subscription
}

type Option func(*Hub)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// WithPublisher sends every new snapshot to p after it has been saved.
func WithPublisher(p Publisher) Option {
	return func(h *Hub) { h.publisher = p }
}

func New(s store.Store, opts ...Option) *Hub {
	h := &Hub{
		store:       s,
		now:         time.Now,
		subscribers: make(map[uuid.UUID]*Subscription),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// loadLocked returns the cached board, loading it from the store on first use.
func (h *Hub) loadLocked(ctx context.Context) (board.Board, error) {
	if h.current != nil {
		return *h.current, nil
	}
	b, err := h.store.Load(ctx)
	if err != nil {
		return board.Board{}, fmt.Errorf("failed to load board: %w", err)
	}
	h.current = &b
	h.ids = board.NewIDSource(b)
	return b, nil
}

// Snapshot returns the current board.
func (h *Hub) Snapshot(ctx context.Context) (board.Board, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loadLocked(ctx)
}

// Apply runs cmd against the current board, persists the result and notifies
// every observer. Validation and not-found errors leave the board untouched
// and are returned without saving or notifying. Once accepted, a command runs
// to completion even if ctx is cancelled by a departing caller.
func (h *Hub) Apply(ctx context.Context, cmd board.Command) (board.Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ctx = context.WithoutCancel(ctx)

	var (
		res board.Result
		err error
	)
	if u, ok := h.store.(store.Updater); ok {
		res, err = h.applySharedLocked(ctx, u, cmd)
	} else {
		res, err = h.applyCachedLocked(ctx, cmd)
	}
	if err != nil {
		return res, err
	}
	h.current = &res.Board
	slog.Debug("applied", "command", cmd.String(), "subscribers", len(h.subscribers))
	h.notifyAllLocked(res.Board)
	h.publishLocked(ctx, res.Board)
	return res, nil
}

// applySharedLocked applies cmd to the latest board in the store rather than
// the cached copy, so changes saved by other processes are never overwritten.
func (h *Hub) applySharedLocked(ctx context.Context, u store.Updater, cmd board.Command) (board.Result, error) {
	if h.ids == nil {
		h.ids = board.NewIDSource(board.Board{})
	}
	now := h.now()
	var res board.Result
	latest, err := u.Update(ctx, cmd.String(), func(stored board.Board) (board.Board, error) {
		h.ids.Observe(stored)
		var applyErr error
		res, applyErr = board.Apply(stored, cmd, h.ids, now)
		return res.Board, applyErr
	})
	if err != nil {
		if errors.Is(err, board.ErrValidation) || errors.Is(err, board.ErrNotFound) {
			return board.Result{Board: latest}, err
		}
		return board.Result{Board: latest}, fmt.Errorf("failed to save board: %w", err)
	}
	return res, nil
}

func (h *Hub) applyCachedLocked(ctx context.Context, cmd board.Command) (board.Result, error) {
	current, err := h.loadLocked(ctx)
	if err != nil {
		return board.Result{}, err
	}
	res, err := board.Apply(current, cmd, h.ids, h.now())
	if err != nil {
		return res, err
	}
	if err := h.saveLocked(ctx, res.Board, cmd.String()); err != nil {
		return board.Result{Board: current}, err
	}
	return res, nil
}

// Broadcast re-sends the current board to every observer without changing it.
func (h *Hub) Broadcast(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	current, err := h.loadLocked(ctx)
	if err != nil {
		return err
	}
	h.notifyAllLocked(current)
	return nil
}

// Refresh reloads the board from the store, typically after another process
// sharing the store has changed it, and notifies local observers.
func (h *Hub) Refresh(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, err := h.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload board: %w", err)
	}
	h.current = &b
	if h.ids == nil {
		h.ids = board.NewIDSource(b)
	} else {
		h.ids.Observe(b)
	}
	h.notifyAllLocked(b)
	return nil
}

// Subscribe registers a new observer. The current board is queued as its
// first event under the same lock that guards mutations, so no mutation can
// slip in between the catch-up snapshot and the live stream. The
// subscription is closed when ctx is done.
func (h *Hub) Subscribe(ctx context.Context) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, err := h.loadLocked(ctx)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		id:     uuid.New(),
		events: make(chan board.Board, subscriptionBuffer),
		hub:    h,
		cancel: cancel,
	}
	sub.deliver(current)
	h.subscribers[sub.id] = sub
	slog.Debug("subscribed", "subscription", sub.id, "subscribers", len(h.subscribers))

	go func() {
		<-subCtx.Done()
		_ = sub.Close()
	}()
	return sub, nil
}

// Subscribers returns the number of connected observers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(sub.events)
		slog.Debug("unsubscribed", "subscription", id, "subscribers", len(h.subscribers))
	}
}

func (h *Hub) notifyAllLocked(b board.Board) {
	for _, sub := range h.subscribers {
		sub.deliver(b)
	}
}

func (h *Hub) saveLocked(ctx context.Context, b board.Board, message string) error {
	if r, ok := h.store.(store.Revisioner); ok {
		if err := r.SaveRevision(ctx, b, message); err != nil {
			return fmt.Errorf("failed to save board: %w", err)
		}
		return nil
	}
	if err := h.store.Save(ctx, b); err != nil {
		return fmt.Errorf("failed to save board: %w", err)
	}
	return nil
}

func (h *Hub) publishLocked(ctx context.Context, b board.Board) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(ctx, b); err != nil {
		slog.Error("failed to publish board", "err", err)
	}
}
