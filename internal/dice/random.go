package dice

import (
	"math/rand"
	"sync"
	"time"
)

// RandomRoller rolls with a math/rand source. It is safe for concurrent use.
type RandomRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomRoller creates a roller seeded from the clock
func NewRandomRoller() *RandomRoller {
	return NewSeededRoller(time.Now().UnixNano())
}

// NewSeededRoller creates a roller with a fixed seed
func NewSeededRoller(seed int64) *RandomRoller {
	return &RandomRoller{rng: rand.New(rand.NewSource(seed))}
}

// Roll implements Roller
func (r *RandomRoller) Roll(term Term) (*Result, error) {
	if err := term.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res := &Result{Term: term, Rolls: make([]int, term.Count)}
	for i := range res.Rolls {
		res.Rolls[i] = r.rng.Intn(term.Sides) + 1
		res.Total += res.Rolls[i]
	}
	return res, nil
}
