// Package picker chooses coordinators at random, weighted by their
// remaining stars.
package picker

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/starboard/internal/domain/model"
)

// ErrNoEligibleCoordinator is returned when the pool is empty. Callers
// treat it as a normal outcome and leave the slot unassigned.
var ErrNoEligibleCoordinator = errors.New("no eligible coordinator")

// Source yields uniform values in [0, 1).
type Source interface {
	Float64() float64
}

// Option applies a configuration option to the Picker.
type Option func(*Picker)

// WithSource replaces the random source.
func WithSource(src Source) Option {
	return func(p *Picker) {
		if src != nil {
			p.src = src
		}
	}
}

// WithSeed uses a deterministic math/rand source.
func WithSeed(seed int64) Option {
	return func(p *Picker) {
		p.src = rand.New(rand.NewSource(seed)) //nolint:gosec // scheduling fairness, not security
	}
}

// Picker performs weighted random selection. It is safe for concurrent use.
type Picker struct {
	mu  sync.Mutex
	src Source
}

// New creates a picker seeded from the wall clock unless a source is given.
func New(opts ...Option) *Picker {
	p := &Picker{
		src: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // scheduling fairness, not security
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Weight is stars+1, so zero-star coordinators can still be drawn.
func Weight(c model.Coordinator) int {
	if c.Stars < 0 {
		return 1
	}
	return c.Stars + 1
}

// Pick draws one coordinator from pool with probability Weight/total.
//
// A single draw r in [0, total) walks the pool subtracting weights and stops
// at the first candidate where r drops to zero or below. The last candidate
// absorbs any floating point remainder.
func (p *Picker) Pick(pool []model.Coordinator) (model.Coordinator, error) {
	if len(pool) == 0 {
		return model.Coordinator{}, ErrNoEligibleCoordinator
	}
	total := 0
	for _, c := range pool {
		total += Weight(c)
	}

	p.mu.Lock()
	r := p.src.Float64() * float64(total)
	p.mu.Unlock()

	for _, c := range pool {
		r -= float64(Weight(c))
		if r <= 0 {
			return c, nil
		}
	}
	return pool[len(pool)-1], nil
}

// Eligible returns the available coordinators whose id is not in exclude,
// preserving roster order.
func Eligible(coords []model.Coordinator, exclude map[string]struct{}) []model.Coordinator {
	pool := make([]model.Coordinator, 0, len(coords))
	for _, c := range coords {
		if !c.Available {
			continue
		}
		if _, used := exclude[c.ID]; used {
			continue
		}
		pool = append(pool, c)
	}
	return pool
}

// Sequence replays fixed values, cycling when exhausted. Tests use it to
// drive picks deterministically.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewSequence returns a Source over values. An empty sequence always yields 0.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

// Float64 implements Source.
func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}
