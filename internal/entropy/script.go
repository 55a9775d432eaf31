// Deterministic sources for tests and dry runs.
package entropy

import "sync"

// Fixed always returns the same value.
type Fixed float64

// Float64 implements Source.
func (f Fixed) Float64() float64 { return float64(f) }

// Script replays a list of values, then falls back to a fixed value once
// exhausted.
type Script struct {
	mu       sync.Mutex
	values   []float64
	fallback float64
	drawn    int
}

// NewScript returns a source that yields values in order, then fallback.
func NewScript(fallback float64, values ...float64) *Script {
	return &Script{values: values, fallback: fallback}
}

// Float64 implements Source.
func (s *Script) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawn++
	if len(s.values) == 0 {
		return s.fallback
	}
	v := s.values[0]
	s.values = s.values[1:]
	return v
}

// Push appends values to the script.
func (s *Script) Push(values ...float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, values...)
}

// Drawn returns how many values have been consumed.
func (s *Script) Drawn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawn
}
