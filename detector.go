package pedestrian

import (
	"image"
	"io"

	"github.com/pkg/errors"
)

// Detector finds pedestrians in single images.
type Detector struct {
	Classifier *Classifier
	Scales     *ScaleSchedule
	Extractor  Extractor
	// Threshold is the minimum window score reported as a detection.
	Threshold float64
	// NMSOverlap is the IoU above which the weaker of two detections is
	// suppressed; zero selects DefaultNMSOverlap.
	NMSOverlap float64
	// GroundTruth, when set, is drawn in blue and splits the detections
	// into valid and false alarms.
	GroundTruth []image.Rectangle
	BoxColor    string
	LineWidth   float64
	ShowScores  bool
}

// Detect returns the pedestrians found in img, strongest first.
func (d *Detector) Detect(img image.Image) ([]Detection, error) {
	if !d.Classifier.Loaded() {
		return nil, ErrNotLoaded
	}
	pyr, err := NewPyramid(img, d.Scales, d.Extractor)
	if err != nil {
		return nil, err
	}
	if err := pyr.Detect(d.Classifier, d.Threshold); err != nil {
		return nil, err
	}

	overlap := d.NMSOverlap
	if overlap <= 0 {
		overlap = DefaultNMSOverlap
	}
	pyr.SuppressNonMaximum(overlap)
	return pyr.Detections(), nil
}

// Draw outlines dets on a copy of img.
func (d *Detector) Draw(img image.Image, dets []Detection) (image.Image, error) {
	pal, err := newPalette(d.BoxColor)
	if err != nil {
		return nil, err
	}
	width := d.LineWidth
	if width <= 0 {
		width = 2
	}
	return drawDetections(img, dets, d.GroundTruth, pal, width, d.ShowScores), nil
}

// Process decodes the image read from r, outlines the detected
// pedestrians and encodes the result into w.
// We are using the io package, since we can provide different input and output types,
// as long as they implement the io.Reader and io.Writer interface.
func (d *Detector) Process(r io.Reader, w io.Writer) ([]Detection, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode the source image")
	}

	dets, err := d.Detect(src)
	if err != nil {
		return nil, err
	}
	out, err := d.Draw(src, dets)
	if err != nil {
		return nil, err
	}
	if err := encodeImage(w, out); err != nil {
		return nil, errors.Wrap(err, "could not encode the result")
	}
	return dets, nil
}
