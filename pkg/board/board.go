// Package board holds the todo board document and the pure mutations applied to it.
package board

import (
	"fmt"
	"time"
)

// Todo is a single task. CompletedAt is non-nil exactly when Completed is true.
type Todo struct {
	ID          int64      `json:"id"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
}

// List is a named, ordered container of todos. ID never changes once created.
type List struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Todos []Todo `json:"todos"`
}

// Board is the whole shared document.
type Board struct {
	Lists []List `json:"lists"`
}

// Default returns a board with n empty lists named "List 1" to "List n".
func Default(n int) Board {
	b := Board{Lists: make([]List, 0, n)}
	for i := 0; i < n; i++ {
		b.Lists = append(b.Lists, List{
			ID:    fmt.Sprintf("list-%d", i),
			Name:  fmt.Sprintf("List %d", i+1),
			Todos: []Todo{},
		})
	}
	return b
}

// Clone returns a deep copy so that callers can never observe each other's edits.
func (b Board) Clone() Board {
	out := Board{Lists: make([]List, len(b.Lists))}
	for i, l := range b.Lists {
		out.Lists[i] = l.clone()
	}
	return out
}

func (l List) clone() List {
	out := List{ID: l.ID, Name: l.Name, Todos: make([]Todo, len(l.Todos))}
	for i, t := range l.Todos {
		out.Todos[i] = t.clone()
	}
	return out
}

func (t Todo) clone() Todo {
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		t.CompletedAt = &at
	}
	return t
}

// List returns the list with the given id.
func (b Board) List(id string) (List, bool) {
	for _, l := range b.Lists {
		if l.ID == id {
			return l, true
		}
	}
	return List{}, false
}

// TodoCount returns the number of todos on the board and how many are completed.
func (b Board) TodoCount() (total int, completed int) {
	for _, l := range b.Lists {
		for _, t := range l.Todos {
			total++
			if t.Completed {
				completed++
			}
		}
	}
	return total, completed
}

// Validate checks the structural invariants of a board read from storage.
func (b Board) Validate() error {
	if b.Lists == nil {
		return fmt.Errorf("board has no lists: %w", ErrValidation)
	}
	listIDs := make(map[string]bool, len(b.Lists))
	todoIDs := make(map[int64]bool)
	for _, l := range b.Lists {
		if l.ID == "" {
			return fmt.Errorf("list with empty id: %w", ErrValidation)
		}
		if listIDs[l.ID] {
			return fmt.Errorf("duplicate list id %q: %w", l.ID, ErrValidation)
		}
		listIDs[l.ID] = true
		for _, t := range l.Todos {
			if todoIDs[t.ID] {
				return fmt.Errorf("duplicate todo id %d: %w", t.ID, ErrValidation)
			}
			todoIDs[t.ID] = true
			if t.Completed != (t.CompletedAt != nil) {
				return fmt.Errorf("todo %d completion state is inconsistent: %w", t.ID, ErrValidation)
			}
		}
	}
	return nil
}

// Normalize replaces nil todo slices with empty ones so that the board always
// serializes lists as arrays.
func (b Board) Normalize() Board {
	for i := range b.Lists {
		if b.Lists[i].Todos == nil {
			b.Lists[i].Todos = []Todo{}
		}
	}
	return b
}

func maxTodoID(b Board) int64 {
	var highest int64
	for _, l := range b.Lists {
		for _, t := range l.Todos {
			if t.ID > highest {
				highest = t.ID
			}
		}
	}
	return highest
}
