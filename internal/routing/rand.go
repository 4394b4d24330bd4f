package routing

import (
	"math/rand"
	"sync"
)

// Source is the entropy source behind every probabilistic decision:
// weighted cluster selection, fault percentage gates and exponential
// delay sampling. Production code uses NewLockedSource; tests inject a
// ScriptedSource to assert exact outcomes.
type Source interface {
	// IntN returns a uniform integer in [0, n).
	IntN(n int) int
	// Float64 returns a uniform float in [0, 1).
	Float64() float64
	// ExpFloat64 returns an exponentially distributed float with mean 1.
	ExpFloat64() float64
}

type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLockedSource returns a Source backed by a seeded PRNG guarded by a
// mutex, safe for concurrent evaluations. Callers that need to avoid
// contention entirely can hold one engine (and thus one source) per
// worker.
func NewLockedSource(seed int64) Source {
	return &lockedSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *lockedSource) ExpFloat64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.ExpFloat64()
}

// ScriptedSource replays a fixed sequence of draws, giving tests full
// control over every probabilistic branch. Integer draws consume from
// Ints, float draws from Floats, exponential draws from Exps; each
// sequence wraps around when exhausted.
type ScriptedSource struct {
	Ints   []int
	Floats []float64
	Exps   []float64

	intIdx   int
	floatIdx int
	expIdx   int
}

func (s *ScriptedSource) IntN(n int) int {
	if len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[s.intIdx%len(s.Ints)]
	s.intIdx++
	return v % n
}

func (s *ScriptedSource) Float64() float64 {
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[s.floatIdx%len(s.Floats)]
	s.floatIdx++
	return v
}

func (s *ScriptedSource) ExpFloat64() float64 {
	if len(s.Exps) == 0 {
		return 1
	}
	v := s.Exps[s.expIdx%len(s.Exps)]
	s.expIdx++
	return v
}
