package pedestrian

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Default training parameters.
const (
	DefaultSvmC               = 0.01
	DefaultRandomsPerNegative = 10
	DefaultNumFalsePositives  = 1280
	DefaultPositiveOffset     = 16
	DefaultTestOffset         = 3
)

// Config describes an INRIA person dataset layout together with the
// training and evaluation parameters.
type Config struct {
	// Root is the dataset directory containing Train/ and Test/.
	Root string `yaml:"root"`
	// SVM and SVMHard are the model files written after the first and
	// after the hard negative training round.
	SVM     string `yaml:"svm"`
	SVMHard string `yaml:"svm_hard"`
	// Eval and EvalHard receive the labels/scores of the evaluation runs.
	Eval     string `yaml:"eval"`
	EvalHard string `yaml:"eval_hard"`
	// Plot, when set, is the directory the DET curves are rendered to.
	Plot string `yaml:"plot"`

	SvmC               float64 `yaml:"svm_c"`
	RandomsPerNegative int     `yaml:"randoms_per_negative"`
	NumFalsePositives  int     `yaml:"num_false_positives"`
	FlipPositives      bool    `yaml:"flip_positives"`

	PositiveOffsetX int `yaml:"positive_offset_x"`
	PositiveOffsetY int `yaml:"positive_offset_y"`
	TestOffsetX     int `yaml:"test_offset_x"`
	TestOffsetY     int `yaml:"test_offset_y"`

	ScalesPerOctave int     `yaml:"scales_per_octave"`
	Threshold       float64 `yaml:"threshold"`
	NMSOverlap      float64 `yaml:"nms_overlap"`
	Workers         int     `yaml:"workers"`
	Seed            int64   `yaml:"seed"`

	SkipTraining bool `yaml:"skip_training"`
	SkipEval     bool `yaml:"skip_eval"`
	SkipEvalHard bool `yaml:"skip_eval_hard"`
}

// DefaultConfig returns a configuration rooted at root with every
// parameter set to its default.
func DefaultConfig(root string) *Config {
	return &Config{
		Root:               root,
		SVM:                "svm.model",
		SVMHard:            "svm_hard.model",
		SvmC:               DefaultSvmC,
		RandomsPerNegative: DefaultRandomsPerNegative,
		NumFalsePositives:  DefaultNumFalsePositives,
		PositiveOffsetX:    DefaultPositiveOffset,
		PositiveOffsetY:    DefaultPositiveOffset,
		TestOffsetX:        DefaultTestOffset,
		TestOffsetY:        DefaultTestOffset,
		ScalesPerOctave:    DefaultScalesPerOctave,
		NMSOverlap:         DefaultNMSOverlap,
		Workers:            runtime.NumCPU(),
		Seed:               1,
	}
}

// LoadConfig reads a YAML configuration file. Missing keys keep their
// default value.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read config")
	}
	cfg := DefaultConfig("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "unable to parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Validate checks the required keys and the parameter ranges.
func (c *Config) Validate() error {
	switch {
	case c.Root == "":
		return errors.New("missing required key: root")
	case c.SVM == "":
		return errors.New("missing required key: svm")
	case c.SVMHard == "":
		return errors.New("missing required key: svm_hard")
	case c.SvmC <= 0:
		return errors.Errorf("svm_c must be positive, got %v", c.SvmC)
	case c.RandomsPerNegative < 0:
		return errors.Errorf("randoms_per_negative must not be negative, got %d", c.RandomsPerNegative)
	case c.NumFalsePositives < 0:
		return errors.Errorf("num_false_positives must not be negative, got %d", c.NumFalsePositives)
	case c.NMSOverlap <= 0 || c.NMSOverlap > 1:
		return errors.Errorf("nms_overlap must be in (0, 1], got %v", c.NMSOverlap)
	case c.PositiveOffsetX < 0 || c.PositiveOffsetY < 0 || c.TestOffsetX < 0 || c.TestOffsetY < 0:
		return errors.New("crop offsets must not be negative")
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ScalesPerOctave <= 0 {
		c.ScalesPerOctave = DefaultScalesPerOctave
	}
	return nil
}

// NegativeTrainPath is the directory of the negative training images.
func (c *Config) NegativeTrainPath() string {
	return filepath.Join(c.Root, "Train", "neg")
}

// NegativeTestPath is the directory of the negative test images.
func (c *Config) NegativeTestPath() string {
	return filepath.Join(c.Root, "Test", "neg")
}

// PositiveTrainPath is the directory of the normalized positive training
// crops, 96x160 pixels with the person centered.
func (c *Config) PositiveTrainPath() string {
	return filepath.Join(c.Root, "96X160H96", "Train", "pos")
}

// PositiveTestPath is the directory of the normalized positive test
// crops, 70x134 pixels.
func (c *Config) PositiveTestPath() string {
	return filepath.Join(c.Root, "70X134H96", "Test", "pos")
}

// AnnotationTrainPath is the directory of the training annotations.
func (c *Config) AnnotationTrainPath() string {
	return filepath.Join(c.Root, "Train", "annotations")
}

// AnnotationTestPath is the directory of the test annotations.
func (c *Config) AnnotationTestPath() string {
	return filepath.Join(c.Root, "Test", "annotations")
}
