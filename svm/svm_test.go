package svm

import (
	"bytes"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSVM_SeparatesLinearData(t *testing.T) {
	samples := []Sample{
		{Features: []float64{2, 2}, Label: 1},
		{Features: []float64{3, 1}, Label: 1},
		{Features: []float64{-2, -1}, Label: -1},
		{Features: []float64{-1, -3}, Label: -1},
	}

	m, err := Train(samples, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Dim())

	for _, s := range samples {
		score, err := m.Score(s.Features)
		require.NoError(t, err)
		assert.Equal(t, s.Label > 0, score > 0, "sample %v scored %v", s.Features, score)
	}
}

func TestSVM_ManyNoisyPoints(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	var samples []Sample
	for i := 0; i < 200; i++ {
		x := []float64{rng.Float64() + 0.5, rng.Float64()}
		samples = append(samples, Sample{Features: x, Label: 1})
		y := []float64{-rng.Float64() - 0.5, rng.Float64()}
		samples = append(samples, Sample{Features: y, Label: -1})
	}

	m, err := Train(samples, 0.5, WithRand(rand.New(rand.NewSource(1))), WithTolerance(0.01))
	require.NoError(t, err)

	var correct int
	for _, s := range samples {
		score, err := m.Score(s.Features)
		require.NoError(t, err)
		if (score > 0) == (s.Label > 0) {
			correct++
		}
	}
	assert.GreaterOrEqual(t, correct, len(samples)*98/100)
	assert.Equal(t, 0.5, m.C())
}

func TestSVM_TrainErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := Train(nil, 0.01)
	assert.ErrorIs(err, ErrNoExamples)

	_, err = Train([]Sample{{Features: []float64{1}, Label: 1}}, 0)
	assert.Error(err)

	_, err = Train([]Sample{
		{Features: []float64{1, 2}, Label: 1},
		{Features: []float64{1}, Label: -1},
	}, 0.01)
	assert.ErrorIs(err, ErrDimension)

	_, err = Train([]Sample{{Features: []float64{1}, Label: 0}}, 0.01)
	assert.Error(err)

	_, err = Train([]Sample{{Features: nil, Label: 1}}, 0.01)
	assert.ErrorIs(err, ErrDimension)
}

func TestSVM_ScoreDimension(t *testing.T) {
	m := NewModel([]float64{1, -1, 0.5}, 0.25)

	score, err := m.Score([]float64{2, 1, 2})
	require.NoError(t, err)
	assert.InDelta(t, 2.25, score, 1e-12)

	_, err = m.Score([]float64{1})
	assert.ErrorIs(t, err, ErrDimension)
}

func TestSVM_SaveLoad(t *testing.T) {
	m := NewModel([]float64{0.125, -3, 1e-9, 42}, -0.75)
	m.c = 0.01

	path := filepath.Join(t.TempDir(), "model.svm")
	require.NoError(t, m.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.Weights(), got.Weights())
	assert.Equal(t, m.Bias(), got.Bias())
	assert.Equal(t, m.C(), got.C())
}

func TestSVM_ReadRejectsGarbage(t *testing.T) {
	_, err := Read(bytes.NewBufferString("not a model\n"))
	assert.Error(t, err)

	_, err = Read(bytes.NewBufferString("linear-svm v1\ndim 2\nbias 0\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.svm"))
	assert.Error(t, err)
}
