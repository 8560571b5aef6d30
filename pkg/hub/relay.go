package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/astromechza/todoboard/pkg/board"
)

// Relay bridges hubs running in different processes over Redis pub/sub.
// Every published snapshot carries the origin of the publishing relay so a
// relay never feeds its own snapshots back into its hub. Events can arrive
// out of order, so a receiving hub reloads the board from the shared store
// instead of taking the snapshot in the event.
type Relay struct {
	rdb          *redis.Client
	instanceName string
	origin       uuid.UUID
}

type relayEvent struct {
	Origin uuid.UUID   `json:"origin"`
	Board  board.Board `json:"board"`
}

func NewRelay(redisOpts *redis.Options, instanceName string) (*Relay, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	return &Relay{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
		origin:       uuid.New(),
	}, nil
}

// BoardEventsChannel returns the pub/sub channel snapshots are relayed on.
func BoardEventsChannel(instanceName string) string {
	return fmt.Sprintf("todoboard:%s:board_events", instanceName)
}

func (r *Relay) Origin() uuid.UUID {
	return r.origin
}

// Publish implements Publisher.
func (r *Relay) Publish(ctx context.Context, b board.Board) error {
	payload, err := json.Marshal(relayEvent{Origin: r.origin, Board: b})
	if err != nil {
		return fmt.Errorf("failed to marshal board event: %w", err)
	}
	if err := r.rdb.Publish(ctx, BoardEventsChannel(r.instanceName), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish board event: %w", err)
	}
	return nil
}

// Listen subscribes to the relay channel and, once the subscription is
// confirmed, refreshes h on every event from another origin until ctx is done.
func (r *Relay) Listen(ctx context.Context, h *Hub) error {
	pubsub := r.rdb.Subscribe(ctx, BoardEventsChannel(r.instanceName))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to board events: %w", err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event relayEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					slog.Error("failed to unmarshal board event", "err", err)
					continue
				}
				if event.Origin == r.origin {
					continue
				}
				total, _ := event.Board.TodoCount()
				slog.Debug("board changed elsewhere", "origin", event.Origin, "todos", total)
				if err := h.Refresh(ctx); err != nil {
					slog.Error("failed to refresh relayed board", "origin", event.Origin, "err", err)
				}
			}
		}
	}()
	return nil
}

func (r *Relay) Close() error {
	return r.rdb.Close()
}
