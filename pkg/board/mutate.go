package board

import (
	"fmt"
	"strings"
	"time"
)

// Every mutation works on a clone; the board passed in is never modified.

// RenameList replaces the name of the list with the given id. An unknown id
// leaves the board unchanged and reports false.
func RenameList(b Board, listID string, name string) (Board, bool) {
	idx := listIndex(b, listID)
	if idx < 0 {
		return b, false
	}
	out := b.Clone()
	out.Lists[idx].Name = name
	return out, true
}

// AddTodo appends a new incomplete todo to the end of the list.
func AddTodo(b Board, listID string, text string, id int64) (Board, Todo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return b, Todo{}, fmt.Errorf("todo text is required: %w", ErrValidation)
	}
	idx := listIndex(b, listID)
	if idx < 0 {
		return b, Todo{}, fmt.Errorf("list %q: %w", listID, ErrNotFound)
	}
	todo := Todo{ID: id, Text: text}
	out := b.Clone()
	out.Lists[idx].Todos = append(out.Lists[idx].Todos, todo)
	return out, todo, nil
}

// ToggleTodo flips the completion state of a todo. When listID is empty every
// list is searched. The returned todo is nil when nothing matched.
func ToggleTodo(b Board, todoID int64, listID string, now time.Time) (Board, *Todo) {
	li, ti := todoIndex(b, todoID, listID)
	if li < 0 {
		return b, nil
	}
	out := b.Clone()
	t := &out.Lists[li].Todos[ti]
	t.Completed = !t.Completed
	if t.Completed {
		at := now.UTC().Truncate(time.Millisecond)
		t.CompletedAt = &at
	} else {
		t.CompletedAt = nil
	}
	toggled := t.clone()
	return out, &toggled
}

// DeleteTodo removes a todo. The board is returned unchanged, with false, when
// nothing matched.
func DeleteTodo(b Board, todoID int64, listID string) (Board, bool) {
	li, ti := todoIndex(b, todoID, listID)
	if li < 0 {
		return b, false
	}
	out := b.Clone()
	todos := out.Lists[li].Todos
	out.Lists[li].Todos = append(todos[:ti:ti], todos[ti+1:]...)
	return out, true
}

func listIndex(b Board, listID string) int {
	for i, l := range b.Lists {
		if l.ID == listID {
			return i
		}
	}
	return -1
}

func todoIndex(b Board, todoID int64, listID string) (int, int) {
	for li, l := range b.Lists {
		if listID != "" && l.ID != listID {
			continue
		}
		for ti, t := range l.Todos {
			if t.ID == todoID {
				return li, ti
			}
		}
	}
	return -1, -1
}
