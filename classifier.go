package pedestrian

import (
	"github.com/esimov/pedestrian/svm"
	"github.com/pkg/errors"
)

// ErrNotLoaded is returned when a classifier is used before a model was
// trained or loaded.
var ErrNotLoaded = errors.New("classifier model not loaded")

var _ Scorer = (*Classifier)(nil)

// Classifier scores window feature vectors with a linear SVM model.
// The zero value is valid but unloaded.
type Classifier struct {
	model *svm.Model
}

// NewClassifier wraps an already trained model.
func NewClassifier(m *svm.Model) *Classifier {
	return &Classifier{model: m}
}

// LoadClassifier reads the model persisted at path.
func LoadClassifier(path string) (*Classifier, error) {
	m, err := svm.Load(path)
	if err != nil {
		return nil, err
	}
	return NewClassifier(m), nil
}

// Loaded reports whether a model is present.
func (c *Classifier) Loaded() bool {
	return c != nil && c.model != nil
}

// Model returns the wrapped model, nil when not loaded.
func (c *Classifier) Model() *svm.Model {
	if c == nil {
		return nil
	}
	return c.model
}

// Classify returns the decision value of features. Values above zero
// indicate a pedestrian.
func (c *Classifier) Classify(features []float64) (float64, error) {
	if !c.Loaded() {
		return 0, ErrNotLoaded
	}
	return c.model.Score(features)
}

// Save persists the model at path.
func (c *Classifier) Save(path string) error {
	if !c.Loaded() {
		return ErrNotLoaded
	}
	return c.model.Save(path)
}
