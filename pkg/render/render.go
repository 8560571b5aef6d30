// Package render draws a board for the terminal.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/astromechza/todoboard/pkg/board"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Faint(true)
	doneStyle  = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	boxChecked   = "☑"
	boxUnchecked = "☐"
)

// Options tune what Board draws.
type Options struct {
	// ShowEmpty draws lists without todos as well.
	ShowEmpty bool
	// Location is used for completion times. Defaults to time.Local.
	Location *time.Location
}

// Board renders every list as a bordered panel, one below the other.
func Board(b board.Board, opts Options) string {
	panels := make([]string, 0, len(b.Lists))
	for _, l := range b.Lists {
		if len(l.Todos) == 0 && !opts.ShowEmpty {
			continue
		}
		panels = append(panels, List(l, opts))
	}
	total, completed := b.TodoCount()
	summary := mutedStyle.Render(fmt.Sprintf("%d lists, %d/%d done", len(b.Lists), completed, total))
	if len(panels) == 0 {
		return summary + "\n"
	}
	return lipgloss.JoinVertical(lipgloss.Left, append(panels, summary)...) + "\n"
}

// List renders a single list panel.
func List(l board.List, opts Options) string {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	lines := []string{titleStyle.Render(l.Name) + " " + mutedStyle.Render("("+l.ID+")")}
	if len(l.Todos) == 0 {
		lines = append(lines, mutedStyle.Render("nothing here"))
	}
	for _, t := range l.Todos {
		lines = append(lines, todoLine(t, loc))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func todoLine(t board.Todo, loc *time.Location) string {
	id := mutedStyle.Render(fmt.Sprintf("#%d", t.ID))
	if !t.Completed {
		return fmt.Sprintf("%s %s %s", boxUnchecked, t.Text, id)
	}
	line := fmt.Sprintf("%s %s %s", boxChecked, doneStyle.Render(t.Text), id)
	if t.CompletedAt != nil {
		line += " " + mutedStyle.Render("completed "+t.CompletedAt.In(loc).Format(time.DateTime))
	}
	return line
}
