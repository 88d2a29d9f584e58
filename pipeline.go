package pedestrian

import (
	"image"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Reporter receives a notification every time an image was processed.
type Reporter interface {
	Report(label string, current, total int, context string)
}

type nopReporter struct{}

func (nopReporter) Report(string, int, int, string) {}

// pipeline holds what the dataset wide operations share: configuration,
// collaborators and the per image failure accounting.
type pipeline struct {
	cfg      *Config
	scales   *ScaleSchedule
	ext      Extractor
	load     ImageLoader
	logger   *zap.SugaredLogger
	progress Reporter

	skipped int
	errs    error
}

// Option customizes a Trainer or an Evaluator.
type Option func(*pipeline)

// WithExtractor sets the feature extractor.
func WithExtractor(ext Extractor) Option {
	return func(p *pipeline) { p.ext = ext }
}

// WithImageLoader sets the function used to read images from disk.
func WithImageLoader(load ImageLoader) Option {
	return func(p *pipeline) { p.load = load }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *pipeline) { p.logger = l }
}

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) Option {
	return func(p *pipeline) { p.progress = r }
}

// WithScaleSchedule shares a scale schedule with other components.
func WithScaleSchedule(s *ScaleSchedule) Option {
	return func(p *pipeline) { p.scales = s }
}

func newPipeline(cfg *Config, opts []Option) (*pipeline, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &pipeline{
		cfg:      cfg,
		ext:      HOGExtractor{},
		load:     LoadImage,
		logger:   zap.NewNop().Sugar(),
		progress: nopReporter{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.scales == nil {
		p.scales = NewScaleSchedule(cfg.ScalesPerOctave)
	}
	if p.logger == nil {
		p.logger = zap.NewNop().Sugar()
	}
	if p.progress == nil {
		p.progress = nopReporter{}
	}
	return p, nil
}

// detect scans the pyramid of img with s and returns the detections
// scoring above threshold that survive non-maximum suppression.
func (p *pipeline) detect(s Scorer, img image.Image, threshold float64) ([]Detection, error) {
	pyr, err := NewPyramid(img, p.scales, p.ext)
	if err != nil {
		return nil, err
	}
	if err := pyr.Detect(s, threshold); err != nil {
		return nil, err
	}
	pyr.SuppressNonMaximum(p.cfg.NMSOverlap)
	return pyr.Detections(), nil
}

// Skipped returns the number of images that failed so far and the
// combined error.
func (p *pipeline) Skipped() (int, error) { return p.skipped, p.errs }

// skip records a per image failure. It reports whether err was non-nil.
func (p *pipeline) skip(path string, err error) bool {
	if err == nil {
		return false
	}
	p.skipped++
	p.errs = multierr.Append(p.errs, errors.Wrap(err, filepath.Base(path)))
	p.logger.Warnw("skipping image", "path", path, "error", err)
	return true
}
