package pedestrian

import (
	"math"
	"sync"
)

// DefaultScalesPerOctave is the number of pyramid levels between two
// successive halvings of the image size.
const DefaultScalesPerOctave = 5

// ScaleSchedule is a lazily grown, geometric sequence of scale factors
// starting at 1. Each octave adds lambda entries, every entry being the
// previous one multiplied by 2^(1/lambda), so entry i is 2^(i/lambda).
// Published entries are never modified, which makes the schedule safe to
// share between goroutines.
type ScaleSchedule struct {
	mu     sync.RWMutex
	lambda int
	step   float64
	cache  []float64
}

// NewScaleSchedule returns a schedule with lambda scales per octave and
// the first octave already materialized.
func NewScaleSchedule(lambda int) *ScaleSchedule {
	if lambda < 1 {
		lambda = DefaultScalesPerOctave
	}
	s := &ScaleSchedule{
		lambda: lambda,
		step:   math.Pow(2, 1/float64(lambda)),
		cache:  make([]float64, 1, 2*lambda),
	}
	s.cache[0] = 1
	for i := 1; i < lambda; i++ {
		s.cache = append(s.cache, s.cache[i-1]*s.step)
	}
	return s
}

// Lambda returns the number of scales per octave.
func (s *ScaleSchedule) Lambda() int {
	return s.lambda
}

// Len returns the number of materialized scales.
func (s *ScaleSchedule) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.cache)
}

// At returns the i-th scale, growing the schedule by whole octaves when i
// lies beyond the materialized entries.
func (s *ScaleSchedule) At(i int) float64 {
	if i < 0 {
		panic("pedestrian: negative scale index")
	}
	s.mu.RLock()
	if i < len(s.cache) {
		v := s.cache[i]
		s.mu.RUnlock()
		return v
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have grown the cache in the meantime.
	for i >= len(s.cache) {
		s.pushOctave()
	}
	return s.cache[i]
}

// pushOctave appends lambda entries. Caller must hold the write lock.
func (s *ScaleSchedule) pushOctave() {
	for n := 0; n < s.lambda; n++ {
		s.cache = append(s.cache, s.cache[len(s.cache)-1]*s.step)
	}
}
