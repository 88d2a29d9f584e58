package pedestrian

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Pyramid holds the multi-scale representation of a source image and the
// detections found on it.
type Pyramid struct {
	levels     []*Level
	detections []Detection
}

// NewPyramid builds the levels of src, finest first. Every level is the
// source shrunk by the next factor of the schedule, and construction stops
// at the first level that can no longer hold a whole window. The
// intermediate image is halved once per octave so that each level is
// resampled from an image at most two times larger.
func NewPyramid(src image.Image, scales *ScaleSchedule, ext Extractor) (*Pyramid, error) {
	if scales == nil {
		scales = NewScaleSchedule(DefaultScalesPerOctave)
	}
	if ext == nil {
		ext = HOGExtractor{}
	}

	p := &Pyramid{}
	if src == nil {
		return p, nil
	}

	lambda := scales.Lambda()
	base, work := src, src
	scale := 1.0
	for i := 1; fits(work); i++ {
		level, err := newLevel(work, scale, ext)
		if err != nil {
			return nil, errors.Wrapf(err, "level %d (scale %.3f)", len(p.levels), scale)
		}
		p.levels = append(p.levels, level)

		scale = scales.At(i)
		mod := i % lambda
		if mod == 0 {
			base = resize(base, 0.5)
		}
		work = resize(base, 1/scales.At(mod))
	}
	return p, nil
}

// fits reports whether img can hold a detection window.
func fits(img image.Image) bool {
	b := img.Bounds()
	return b.Dx() >= WindowWidth && b.Dy() >= WindowHeight
}

// resize scales img by factor, keeping the image untouched for a factor of one.
func resize(img image.Image, factor float64) image.Image {
	if factor == 1 {
		return img
	}
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * factor))
	h := int(math.Round(float64(b.Dy()) * factor))
	if w < 1 || h < 1 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	return imaging.Resize(img, w, h, imaging.Linear)
}

// Levels returns the pyramid levels, finest first.
func (p *Pyramid) Levels() []*Level {
	return p.levels
}

// NumWindows returns the total number of windows over all levels.
func (p *Pyramid) NumWindows() int {
	var n int
	for _, l := range p.levels {
		n += len(l.windows)
	}
	return n
}

// Scorer assigns a classification score to a window feature vector.
type Scorer interface {
	Classify(features []float64) (float64, error)
}

// Detect scores every window of every level in raster order and adds the
// windows scoring above threshold as detections.
func (p *Pyramid) Detect(s Scorer, threshold float64) error {
	for _, l := range p.levels {
		for i := range l.windows {
			w := &l.windows[i]
			feats, err := w.Features()
			if err != nil {
				return errors.Wrapf(err, "window (%d,%d) at scale %.3f", w.X, w.Y, w.scale)
			}
			score, err := s.Classify(feats)
			if err != nil {
				return err
			}
			if score > threshold {
				p.Add(Detection{Score: score, Rect: w.Rect(), Window: w})
			}
		}
	}
	return nil
}

// Detections returns the current detections. The slice is owned by the pyramid.
func (p *Pyramid) Detections() []Detection {
	return p.detections
}
