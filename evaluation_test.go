package pedestrian

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/esimov/pedestrian/svm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluation_Curve(t *testing.T) {
	assert := assert.New(t)

	ev := &Evaluation{
		Labels: []float64{1, -1, 1, -1, 1},
		Scores: []float64{0.9, 0.8, 0.7, 0.7, 0.1},
	}
	pts := ev.Curve()
	require.Len(t, pts, 4)

	assert.Equal(CurvePoint{Threshold: 0.9, FalsePositiveRate: 0, MissRate: 1 - 1.0/3}, pts[0])
	assert.Equal(0.5, pts[1].FalsePositiveRate)
	// both detections scoring 0.7 enter at once
	assert.Equal(0.7, pts[2].Threshold)
	assert.Equal(1.0, pts[2].FalsePositiveRate)
	assert.InDelta(1-2.0/3, pts[2].MissRate, 1e-12)
	assert.Equal(0.0, pts[3].MissRate)

	assert.Nil((&Evaluation{Labels: []float64{1}, Scores: []float64{1}}).Curve())
}

func TestEvaluation_Save(t *testing.T) {
	ev := &Evaluation{Labels: []float64{1, -1}, Scores: []float64{0.25, 1.5}}
	path := filepath.Join(t.TempDir(), "eval.m")
	require.NoError(t, ev.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, []string{
		"labels = [1, -1, ];",
		"scores = [0.25, 1.5, ];",
		"vl_det(labels, scores);",
		"axis([10^-6 10^-1 0.01 0.5]);",
	}, lines)
}

func TestEvaluation_Plot(t *testing.T) {
	ev := &Evaluation{
		Labels: []float64{1, -1, 1, -1, 1, -1, 1, -1},
		Scores: []float64{0.9, 0.85, 0.8, 0.6, 0.5, 0.4, 0.3, 0.2},
	}
	path := filepath.Join(t.TempDir(), "det.png")
	require.NoError(t, ev.Plot(path, "DET"))
	assert.FileExists(t, path)

	err := (&Evaluation{}).Plot(filepath.Join(t.TempDir(), "empty.png"), "DET")
	assert.Error(t, err)
}

func TestEvaluator_EvaluateImages(t *testing.T) {
	assert := assert.New(t)

	images := map[string]image.Image{
		"pos.png": newFigure(70, 134),
		"neg.png": newNoise(200, 300, 1),
	}
	cfg := testConfig(t)
	e, err := NewEvaluator(cfg, WithImageLoader(memoryLoader(images)))
	require.NoError(t, err)

	_, err = e.EvaluateImages(context.Background(), &Classifier{}, nil, nil)
	assert.ErrorIs(err, ErrNotLoaded)

	always := NewClassifier(svm.NewModel(make([]float64, WindowFeatureSize), 1))
	ev, err := e.EvaluateImages(context.Background(), always,
		[]string{"pos.png", "missing.png"}, []string{"neg.png"})
	require.NoError(t, err)

	// the trimmed positive holds exactly one window
	require.NotEmpty(t, ev.Labels)
	assert.Equal(1.0, ev.Labels[0])
	assert.Len(ev.Labels, len(ev.Scores))
	assert.Greater(len(ev.Labels), 1)
	for _, l := range ev.Labels[1:] {
		assert.Equal(-1.0, l)
	}
	assert.Equal(1, ev.Skipped)
}
