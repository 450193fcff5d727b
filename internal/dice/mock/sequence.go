package mockdice

import (
	"sync"

	"github.com/KirkDiggler/auras/internal/dice"
	"github.com/KirkDiggler/auras/internal/errors"
)

// Sequence returns preset die faces in order
type Sequence struct {
	mu    sync.Mutex
	faces []int
	next  int
}

// NewSequence creates a roller that yields faces in order
func NewSequence(faces ...int) *Sequence {
	return &Sequence{faces: faces}
}

// Roll implements dice.Roller
func (s *Sequence) Roll(term dice.Term) (*dice.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &dice.Result{Term: term}
	for i := 0; i < term.Count; i++ {
		if s.next >= len(s.faces) {
			return nil, errors.Internalf("sequence exhausted after %d faces", len(s.faces))
		}
		face := s.faces[s.next]
		s.next++
		if face < 1 || face > term.Sides {
			return nil, errors.InvalidArgumentf("face %d cannot come up on a d%d", face, term.Sides)
		}
		res.Rolls = append(res.Rolls, face)
		res.Total += face
	}
	return res, nil
}
