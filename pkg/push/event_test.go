package push

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astromechza/todoboard/pkg/board"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  board.Command
	}{
		{
			name:  "add",
			frame: `{"type":"add_todo","payload":{"listId":"list-0","text":"buy milk"}}`,
			want:  board.Command{Kind: board.KindAddTodo, ListID: "list-0", Text: "buy milk"},
		},
		{
			name:  "add with user alias",
			frame: `{"type":"add_todo","payload":{"user":"list-3","text":"x"}}`,
			want:  board.Command{Kind: board.KindAddTodo, ListID: "list-3", Text: "x"},
		},
		{
			name:  "toggle with object payload",
			frame: `{"type":"toggle_todo","payload":{"listId":"list-1","id":1712345678901}}`,
			want:  board.Command{Kind: board.KindToggleTodo, ListID: "list-1", TodoID: 1712345678901},
		},
		{
			name:  "toggle with bare id",
			frame: `{"type":"toggle_todo","payload":42}`,
			want:  board.Command{Kind: board.KindToggleTodo, TodoID: 42},
		},
		{
			name:  "delete",
			frame: `{"type":"delete_todo","payload":{"id":7}}`,
			want:  board.Command{Kind: board.KindDeleteTodo, TodoID: 7},
		},
		{
			name:  "rename",
			frame: `{"type":"update_list_name","payload":{"listId":"list-2","name":"Groceries"}}`,
			want:  board.Command{Kind: board.KindUpdateListName, ListID: "list-2", Name: "Groceries"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCommand([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeCommandRejects(t *testing.T) {
	for name, frame := range map[string]string{
		"not json":       `{"type":`,
		"unknown type":   `{"type":"drop_table","payload":{}}`,
		"blank text":     `{"type":"add_todo","payload":{"listId":"list-0","text":""}}`,
		"missing id":     `{"type":"toggle_todo","payload":{}}`,
		"blank name":     `{"type":"update_list_name","payload":{"listId":"list-0"}}`,
		"no type at all": `{"payload":{"listId":"list-0","text":"x"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCommand([]byte(frame))
			assert.ErrorIs(t, err, board.ErrValidation)
		})
	}
}

func TestEncodeCommandDecodes(t *testing.T) {
	cmd := board.Command{Kind: board.KindUpdateListName, ListID: "list-4", Name: "Home"}
	frame, err := EncodeCommand(cmd)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"update_list_name","payload":{"listId":"list-4","name":"Home"}}`, string(frame))

	back, err := DecodeCommand(frame)
	require.NoError(t, err)
	assert.Equal(t, cmd, back)
}

func TestBoardEnvelope(t *testing.T) {
	b := board.Default(2)
	frame, err := EncodeBoard(b)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	assert.Equal(t, EventListsUpdated, env.Type)

	back, err := DecodeBoard(frame)
	require.NoError(t, err)
	assert.Equal(t, b, back)

	_, err = DecodeBoard([]byte(`{"type":"add_todo","payload":{}}`))
	assert.ErrorContains(t, err, "unexpected event")
}
