package board

import (
	"fmt"
	"strings"
	"time"
)

// Kind names a mutation. The values double as push event names.
type Kind string

const (
	KindAddTodo        Kind = "add_todo"
	KindToggleTodo     Kind = "toggle_todo"
	KindDeleteTodo     Kind = "delete_todo"
	KindUpdateListName Kind = "update_list_name"
)

// Command is the single typed shape every transport decodes inbound requests into.
type Command struct {
	Kind   Kind   `json:"-"`
	ListID string `json:"listId,omitempty"`
	TodoID int64  `json:"id,omitempty"`
	Text   string `json:"text,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Result is the outcome of applying a command. Todo is set for add and toggle,
// List for a rename that matched a list.
type Result struct {
	Board Board
	Todo  *Todo
	List  *List
}

func (c Command) String() string {
	switch c.Kind {
	case KindAddTodo:
		return fmt.Sprintf("add todo to %s", c.ListID)
	case KindToggleTodo:
		return fmt.Sprintf("toggle todo %d", c.TodoID)
	case KindDeleteTodo:
		return fmt.Sprintf("delete todo %d", c.TodoID)
	case KindUpdateListName:
		return fmt.Sprintf("rename %s to %q", c.ListID, c.Name)
	default:
		return fmt.Sprintf("unknown command %q", string(c.Kind))
	}
}

// Validate checks that the fields required by the command kind are present.
func (c Command) Validate() error {
	switch c.Kind {
	case KindAddTodo:
		if strings.TrimSpace(c.ListID) == "" || strings.TrimSpace(c.Text) == "" {
			return fmt.Errorf("text and listId are required: %w", ErrValidation)
		}
	case KindToggleTodo, KindDeleteTodo:
		if c.TodoID == 0 {
			return fmt.Errorf("todo id is required: %w", ErrValidation)
		}
	case KindUpdateListName:
		if strings.TrimSpace(c.ListID) == "" || strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("listId and name are required: %w", ErrValidation)
		}
	default:
		return fmt.Errorf("unknown command %q: %w", string(c.Kind), ErrValidation)
	}
	return nil
}

// Apply validates and applies a command to b. On error the returned result
// carries the unchanged board. Toggling or deleting an unknown todo is
// ErrNotFound.
func Apply(b Board, c Command, ids *IDSource, now time.Time) (Result, error) {
	if err := c.Validate(); err != nil {
		return Result{Board: b}, err
	}
	switch c.Kind {
	case KindAddTodo:
		next, todo, err := AddTodo(b, c.ListID, c.Text, ids.Next(now))
		if err != nil {
			return Result{Board: b}, err
		}
		return Result{Board: next, Todo: &todo}, nil
	case KindToggleTodo:
		next, todo := ToggleTodo(b, c.TodoID, c.ListID, now)
		if todo == nil {
			return Result{Board: b}, fmt.Errorf("todo %d: %w", c.TodoID, ErrNotFound)
		}
		return Result{Board: next, Todo: todo}, nil
	case KindDeleteTodo:
		next, ok := DeleteTodo(b, c.TodoID, c.ListID)
		if !ok {
			return Result{Board: b}, fmt.Errorf("todo %d: %w", c.TodoID, ErrNotFound)
		}
		return Result{Board: next}, nil
	default:
		// Renaming an unknown list succeeds and changes nothing.
		next, ok := RenameList(b, c.ListID, strings.TrimSpace(c.Name))
		if !ok {
			return Result{Board: b}, nil
		}
		l, _ := next.List(c.ListID)
		return Result{Board: next, List: &l}, nil
	}
}
