package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/astromechza/todoboard/pkg/api"
	"github.com/astromechza/todoboard/pkg/board"
	"github.com/astromechza/todoboard/pkg/printer"
	"github.com/astromechza/todoboard/pkg/render"
)

var mutations []*cobra.Command

// mutationCmds returns the one-shot commands that send a single mutation over
// REST and print the board afterwards.
func mutationCmds() []*cobra.Command {
	if mutations != nil {
		return mutations
	}
	mutations = []*cobra.Command{
		{
			Use:   "add <list-id> <text...>",
			Short: "Add a todo to a list",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return sendCommand(cmd.Context(), board.Command{
					Kind:   board.KindAddTodo,
					ListID: args[0],
					Text:   strings.Join(args[1:], " "),
				})
			},
		},
		{
			Use:   "toggle <todo-id>",
			Short: "Mark a todo done, or not done",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseTodoID(args[0])
				if err != nil {
					return err
				}
				return sendCommand(cmd.Context(), board.Command{Kind: board.KindToggleTodo, TodoID: id})
			},
		},
		{
			Use:     "rm <todo-id>",
			Aliases: []string{"delete"},
			Short:   "Delete a todo",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseTodoID(args[0])
				if err != nil {
					return err
				}
				return sendCommand(cmd.Context(), board.Command{Kind: board.KindDeleteTodo, TodoID: id})
			},
		},
		{
			Use:   "rename <list-id> <name...>",
			Short: "Rename a list",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return sendCommand(cmd.Context(), board.Command{
					Kind:   board.KindUpdateListName,
					ListID: args[0],
					Name:   strings.Join(args[1:], " "),
				})
			},
		},
	}
	return mutations
}

func parseTodoID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil {
		return 0, printer.Error(
			fmt.Sprintf("invalid todo id '%s'", raw),
			"Todo ids are the numbers shown after each todo by 'todoboard watch'.",
			[]string{"todoboard watch", "todoboard toggle 1712345678901"},
		)
	}
	return id, nil
}

func sendCommand(ctx context.Context, cmd board.Command) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c, err := api.NewClient(serverURL)
	if err != nil {
		return printer.Error("invalid server address", err.Error(), []string{"--server http://127.0.0.1:5000"})
	}
	b, changed, err := runCommand(ctx, c, cmd)
	if err != nil {
		return err
	}
	fmt.Print(render.Board(b, render.Options{ShowEmpty: showEmpty}))
	if !changed {
		printer.Warning("nothing changed: %s did not match anything on the board\n", cmd)
		return nil
	}
	printer.Success("%s\n", cmd)
	return nil
}

// runCommand applies cmd and fetches the board afterwards. changed is false
// when the server answered that the command matched nothing.
func runCommand(ctx context.Context, c *api.Client, cmd board.Command) (board.Board, bool, error) {
	changed := true
	err := c.Apply(ctx, cmd)
	switch {
	case errors.Is(err, board.ErrNotFound):
		changed = false
	case errors.Is(err, board.ErrValidation):
		return board.Board{}, false, printer.Error("invalid command", err.Error(), nil)
	case err != nil:
		return board.Board{}, false, printer.Error(
			"cannot reach the todoboard server",
			err.Error(),
			[]string{"todoboard serve", fmt.Sprintf("todoboard %s --server http://host:port", cmd.Kind)},
		)
	}
	b, err := c.Board(ctx)
	if err != nil {
		return board.Board{}, false, err
	}
	return b, changed, nil
}
