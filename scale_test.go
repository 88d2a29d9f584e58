package pedestrian

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScale_Geometric(t *testing.T) {
	assert := assert.New(t)

	s := NewScaleSchedule(5)
	assert.Equal(1.0, s.At(0))
	for i := 1; i < 23; i++ {
		assert.Greater(s.At(i), s.At(i-1))
		assert.InDelta(math.Pow(2, float64(i)/5), s.At(i), 1e-9)
	}
	assert.InDelta(2.0, s.At(5), 1e-12)
	assert.InDelta(4.0, s.At(10), 1e-12)
}

func TestScale_GrowsByOctave(t *testing.T) {
	assert := assert.New(t)

	s := NewScaleSchedule(5)
	assert.Equal(5, s.Len())

	s.At(4)
	assert.Equal(5, s.Len(), "index inside the first octave must not grow the schedule")

	s.At(5)
	assert.Equal(10, s.Len(), "exactly one octave is appended")

	s.At(31)
	assert.Equal(35, s.Len())
}

func TestScale_InvalidLambda(t *testing.T) {
	s := NewScaleSchedule(0)
	assert.Equal(t, DefaultScalesPerOctave, s.Lambda())
}

func TestScale_ConcurrentGrowth(t *testing.T) {
	s := NewScaleSchedule(5)

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.At((i * (g + 1)) % 60)
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 60, s.Len())
	for i := 1; i < s.Len(); i++ {
		assert.InDelta(t, math.Pow(2, float64(i)/5), s.At(i), 1e-9)
	}
}
