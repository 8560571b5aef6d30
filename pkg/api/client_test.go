package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astromechza/todoboard/pkg/board"
)

func TestClientApply(t *testing.T) {
	h, srv := setupServer(t)
	ctx := context.Background()
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	require.NoError(t, c.Apply(ctx, board.Command{Kind: board.KindAddTodo, ListID: "list-1", Text: "over rest"}))
	b, err := c.Board(ctx)
	require.NoError(t, err)
	require.Len(t, b.Lists[1].Todos, 1)
	id := b.Lists[1].Todos[0].ID

	// A peer changes the board between our commands; the outcome of each
	// command is still decided by its own response.
	_, err = h.Apply(ctx, board.Command{Kind: board.KindAddTodo, ListID: "list-0", Text: "from a peer"})
	require.NoError(t, err)

	require.NoError(t, c.Apply(ctx, board.Command{Kind: board.KindToggleTodo, TodoID: id, ListID: "list-1"}))
	require.NoError(t, c.Apply(ctx, board.Command{Kind: board.KindUpdateListName, ListID: "list-1", Name: "Errands"}))

	b, err = c.Board(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Errands", b.Lists[1].Name)
	assert.True(t, b.Lists[1].Todos[0].Completed)
	assert.Len(t, b.Lists[0].Todos, 1)

	require.NoError(t, c.Apply(ctx, board.Command{Kind: board.KindDeleteTodo, TodoID: id}))
	err = c.Apply(ctx, board.Command{Kind: board.KindDeleteTodo, TodoID: id})
	assert.ErrorIs(t, err, board.ErrNotFound)
}

func TestClientErrors(t *testing.T) {
	_, srv := setupServer(t)
	ctx := context.Background()
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	err = c.Apply(ctx, board.Command{Kind: board.KindAddTodo, ListID: "list-99", Text: "x"})
	assert.ErrorIs(t, err, board.ErrNotFound)

	err = c.Apply(ctx, board.Command{Kind: board.KindUpdateListName, ListID: "list-99", Name: "x"})
	assert.ErrorIs(t, err, board.ErrNotFound)

	err = c.Apply(ctx, board.Command{Kind: board.KindAddTodo, ListID: "list-0", Text: "  "})
	assert.ErrorIs(t, err, board.ErrValidation)

	_, err = NewClient("ftp://example.com")
	assert.ErrorContains(t, err, "unsupported url scheme")
}
