// Package svm trains and evaluates linear support vector machines.
//
// The solver is dual coordinate descent for the L1-loss (hinge) primal
//
//	min 1/2 w·w + C Σ max(0, 1 - y_i (w·x_i + b))
//
// with the bias learned as an extra feature of constant value one.
package svm

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNoExamples is returned when training is requested without data.
	ErrNoExamples = errors.New("no training examples")
	// ErrDimension is returned on feature vectors of inconsistent length.
	ErrDimension = errors.New("feature dimension mismatch")
)

// Sample is a labelled training vector. Label must be +1 or -1.
type Sample struct {
	Features []float64
	Label    float64
}

// Model is a trained linear decision function f(x) = w·x + b.
type Model struct {
	weights *mat.VecDense
	bias    float64
	c       float64
}

// NewModel returns a model with the given weights and bias.
func NewModel(weights []float64, bias float64) *Model {
	w := make([]float64, len(weights))
	copy(w, weights)
	return &Model{weights: mat.NewVecDense(len(w), w), bias: bias}
}

// Dim returns the expected feature vector length.
func (m *Model) Dim() int {
	return m.weights.Len()
}

// Bias returns the learned offset.
func (m *Model) Bias() float64 {
	return m.bias
}

// C returns the regularization constant the model was trained with.
func (m *Model) C() float64 {
	return m.c
}

// Weights returns a copy of the weight vector.
func (m *Model) Weights() []float64 {
	return mat.Col(nil, 0, m.weights)
}

// Score returns the decision value w·x + b. Positive values classify x as
// the positive class.
func (m *Model) Score(x []float64) (float64, error) {
	if len(x) != m.Dim() {
		return 0, errors.Wrapf(ErrDimension, "got %d, want %d", len(x), m.Dim())
	}
	return floats.Dot(m.weights.RawVector().Data, x) + m.bias, nil
}

type options struct {
	epsilon float64
	maxIter int
	rng     *rand.Rand
}

// Option configures the solver.
type Option func(*options)

// WithTolerance sets the projected gradient stopping tolerance.
func WithTolerance(eps float64) Option {
	return func(o *options) { o.epsilon = eps }
}

// WithMaxIterations bounds the number of passes over the data.
func WithMaxIterations(n int) Option {
	return func(o *options) { o.maxIter = n }
}

// WithRand sets the source used to shuffle the visiting order.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

// Train fits a linear SVM to samples with regularization constant c.
func Train(samples []Sample, c float64, opts ...Option) (*Model, error) {
	if len(samples) == 0 {
		return nil, ErrNoExamples
	}
	if c <= 0 {
		return nil, errors.Errorf("invalid regularization constant %v", c)
	}

	o := options{epsilon: 0.1, maxIter: 1000}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(1))
	}

	dim := len(samples[0].Features)
	if dim == 0 {
		return nil, errors.Wrap(ErrDimension, "empty feature vector")
	}
	qd := make([]float64, len(samples))
	for i, s := range samples {
		if len(s.Features) != dim {
			return nil, errors.Wrapf(ErrDimension, "sample %d has %d features, want %d", i, len(s.Features), dim)
		}
		if s.Label != 1 && s.Label != -1 {
			return nil, errors.Errorf("sample %d has label %v, want +1 or -1", i, s.Label)
		}
		qd[i] = floats.Dot(s.Features, s.Features) + 1
	}

	var (
		w     = make([]float64, dim)
		b     float64
		alpha = make([]float64, len(samples))
		order = make([]int, len(samples))
	)
	for i := range order {
		order[i] = i
	}

	for iter := 0; iter < o.maxIter; iter++ {
		o.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		maxPG, minPG := math.Inf(-1), math.Inf(1)
		for _, i := range order {
			s := samples[i]
			g := s.Label*(floats.Dot(w, s.Features)+b) - 1

			var pg float64
			switch {
			case alpha[i] == 0:
				pg = math.Min(g, 0)
			case alpha[i] == c:
				pg = math.Max(g, 0)
			default:
				pg = g
			}
			maxPG = math.Max(maxPG, pg)
			minPG = math.Min(minPG, pg)

			if math.Abs(pg) < 1e-12 {
				continue
			}
			prev := alpha[i]
			alpha[i] = math.Min(math.Max(alpha[i]-g/qd[i], 0), c)
			if d := (alpha[i] - prev) * s.Label; d != 0 {
				floats.AddScaled(w, d, s.Features)
				b += d
			}
		}
		if maxPG-minPG < o.epsilon {
			break
		}
	}

	return &Model{weights: mat.NewVecDense(dim, w), bias: b, c: c}, nil
}
