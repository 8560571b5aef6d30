// Package push carries board snapshots and commands over a websocket. Frames
// are json envelopes {"type": ..., "payload": ...}.
package push

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/astromechza/todoboard/pkg/board"
)

// EventListsUpdated is the server event carrying the whole board.
const EventListsUpdated = "lists_updated"

type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EncodeBoard wraps a snapshot in a lists_updated envelope.
func EncodeBoard(b board.Board) ([]byte, error) {
	payload, err := json.Marshal(b.Normalize())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal board: %w", err)
	}
	return json.Marshal(Envelope{Type: EventListsUpdated, Payload: payload})
}

// DecodeBoard parses a lists_updated envelope.
func DecodeBoard(raw []byte) (board.Board, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return board.Board{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if env.Type != EventListsUpdated {
		return board.Board{}, fmt.Errorf("unexpected event %q", env.Type)
	}
	var b board.Board
	if err := json.Unmarshal(env.Payload, &b); err != nil {
		return board.Board{}, fmt.Errorf("failed to decode board: %w", err)
	}
	return b.Normalize(), nil
}

// EncodeCommand wraps a command in an envelope named after its kind.
func EncodeCommand(cmd board.Command) ([]byte, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}
	return json.Marshal(Envelope{Type: string(cmd.Kind), Payload: payload})
}

// DecodeCommand maps a client frame onto the typed command schema. The
// payload of toggle_todo and delete_todo may be a bare todo id, and add_todo
// accepts "user" in place of "listId".
func DecodeCommand(raw []byte) (board.Command, error) {
	if !gjson.ValidBytes(raw) {
		return board.Command{}, fmt.Errorf("invalid json frame: %w", board.ErrValidation)
	}
	kind := board.Kind(gjson.GetBytes(raw, "type").String())
	payload := gjson.GetBytes(raw, "payload")
	listID := payload.Get("listId").String()
	if listID == "" {
		listID = payload.Get("user").String()
	}

	cmd := board.Command{Kind: kind, ListID: listID}
	switch kind {
	case board.KindAddTodo:
		cmd.Text = payload.Get("text").String()
	case board.KindToggleTodo, board.KindDeleteTodo:
		if payload.Type == gjson.Number {
			cmd.TodoID = payload.Int()
		} else {
			cmd.TodoID = payload.Get("id").Int()
		}
	case board.KindUpdateListName:
		cmd.Name = payload.Get("name").String()
	}
	if err := cmd.Validate(); err != nil {
		return board.Command{}, err
	}
	return cmd, nil
}
