package board

import (
	"sync"
	"time"
)

// IDSource hands out todo ids. Ids look like millisecond timestamps but are
// strictly increasing, so two todos created in the same millisecond never collide.
type IDSource struct {
	mu   sync.Mutex
	last int64
}

// NewIDSource returns a source that will never reissue an id already present on b.
func NewIDSource(b Board) *IDSource {
	s := &IDSource{}
	s.Observe(b)
	return s
}

// Observe raises the floor of the source to the highest id on b.
func (s *IDSource) Observe(b Board) {
	highest := maxTodoID(b)
	s.mu.Lock()
	defer s.mu.Unlock()
	if highest > s.last {
		s.last = highest
	}
}

// Next returns a fresh id for a todo created at now.
func (s *IDSource) Next(now time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := now.UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}
