package engine

import (
	"context"
	"sync"
)

// Settler signals when a token's movement segment has finished animating
type Settler interface {
	// Expect registers interest in the next completion of the token's segment
	Expect(sceneID, tokenID string) *Ticket
	// Complete releases every ticket waiting on the token
	Complete(sceneID, tokenID string)
}

// Ticket is released when the awaited segment completes
type Ticket struct {
	done chan struct{}
	once sync.Once
	// drop withdraws an abandoned ticket from its settler
	drop func()
}

func newTicket() *Ticket {
	return &Ticket{done: make(chan struct{})}
}

func (t *Ticket) release() {
	t.once.Do(func() { close(t.done) })
}

// Wait blocks until the segment completes or ctx ends. A nil ticket returns
// immediately; an abandoned ticket is withdrawn from its settler.
func (t *Ticket) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		if t.drop != nil {
			t.drop()
		}
		return ctx.Err()
	}
}

// SegmentTracker is a Settler fed by movement-segment-complete events
type SegmentTracker struct {
	mu      sync.Mutex
	waiting map[string][]*Ticket
}

// NewSegmentTracker creates an empty tracker
func NewSegmentTracker() *SegmentTracker {
	return &SegmentTracker{waiting: make(map[string][]*Ticket)}
}

// Expect implements Settler
func (s *SegmentTracker) Expect(sceneID, tokenID string) *Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := newTicket()
	key := sceneID + "/" + tokenID
	t.drop = func() { s.forget(key, t) }
	s.waiting[key] = append(s.waiting[key], t)
	return t
}

func (s *SegmentTracker) forget(key string, t *Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.waiting[key][:0]
	for _, w := range s.waiting[key] {
		if w != t {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		delete(s.waiting, key)
		return
	}
	s.waiting[key] = kept
}

// Complete implements Settler
func (s *SegmentTracker) Complete(sceneID, tokenID string) {
	s.mu.Lock()
	key := sceneID + "/" + tokenID
	tickets := s.waiting[key]
	delete(s.waiting, key)
	s.mu.Unlock()

	for _, t := range tickets {
		t.release()
	}
}
