// Package viz renders the revision history of a board document as a graph.
package viz

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/automerge/automerge-go"
	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/astromechza/todoboard/pkg/store"
)

// Revision summarizes the board as it was right after one change.
type Revision struct {
	Hash         string
	Actor        string
	Seq          uint64
	Message      string
	Dependencies []string
	Lists        int
	Todos        int
	Completed    int
}

func (r Revision) Label() string {
	short := r.Hash
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s %s@%d\n%s\n%d lists, %d/%d done", short, r.Actor, r.Seq, r.Message, r.Lists, r.Completed, r.Todos)
}

// Revisions walks every change of doc in order and summarizes the board at
// that point of the history.
func Revisions(doc *automerge.Doc) ([]Revision, error) {
	changes, err := doc.Changes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate changes: %w", err)
	}
	out := make([]Revision, 0, len(changes))
	for _, change := range changes {
		docAt, err := doc.Fork(change.Hash())
		if err != nil {
			return nil, fmt.Errorf("failed to checkout %s: %w", change.Hash(), err)
		}
		rev := Revision{
			Hash:    change.Hash().String(),
			Actor:   change.ActorID(),
			Seq:     change.ActorSeq(),
			Message: change.Message(),
		}
		for _, dep := range change.Dependencies() {
			rev.Dependencies = append(rev.Dependencies, dep.String())
		}
		if b, found, err := store.BoardAt(docAt); err == nil && found {
			rev.Lists = len(b.Lists)
			rev.Todos, rev.Completed = b.TodoCount()
		}
		out = append(out, rev)
	}
	return out, nil
}

func RenderDocToSvg(doc *automerge.Doc, outputPath string) error {
	revisions, err := Revisions(doc)
	if err != nil {
		return err
	}

	g := graphviz.New()
	graph, err := g.Graph()
	if err != nil {
		return fmt.Errorf("failed to setup graph: %w", err)
	}
	defer func() {
		_ = graph.Close()
		_ = g.Close()
	}()

	nodeMap := make(map[string]*cgraph.Node)
	var edgeCounter uint64
	for _, rev := range revisions {
		n, err := graph.CreateNode(rev.Hash)
		if err != nil {
			return fmt.Errorf("failed to create node: %w", err)
		}
		n.SetLabel(rev.Label())
		nodeMap[rev.Hash] = n

		for _, dep := range rev.Dependencies {
			parent, ok := nodeMap[dep]
			if !ok {
				continue
			}
			if _, err := graph.CreateEdge(strconv.FormatUint(atomic.AddUint64(&edgeCounter, 1), 10), parent, n); err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
		}
	}

	var buff bytes.Buffer
	if err := g.Render(graph, graphviz.SVG, &buff); err != nil {
		return fmt.Errorf("failed to render: %w", err)
	}
	if err := os.WriteFile(outputPath, buff.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return nil
}

func RenderToTemp(doc *automerge.Doc) (string, error) {
	tf := filepath.Join(os.TempDir(), fmt.Sprintf("todoboard-history-%d.svg", time.Now().UnixNano()))
	if err := RenderDocToSvg(doc, tf); err != nil {
		return "", err
	}
	return tf, nil
}
