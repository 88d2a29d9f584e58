package pedestrian

import (
	"image"

	"github.com/esimov/pedestrian/hog"
)

// FeatureMap gives access to the descriptor of any cell aligned region
// of the image it was computed from.
type FeatureMap interface {
	Block(r image.Rectangle) ([]float64, error)
}

// Extractor computes the FeatureMap of an image.
type Extractor interface {
	Extract(img image.Image) (FeatureMap, error)
}

// HOGExtractor is the default Extractor, backed by dense UoCTTI HOG features.
type HOGExtractor struct{}

// Extract implements Extractor.
func (HOGExtractor) Extract(img image.Image) (FeatureMap, error) {
	fm, err := hog.Extract(img)
	if err != nil {
		return nil, err
	}
	return fm, nil
}

// WindowFeatureSize is the length of a window feature vector.
var WindowFeatureSize = hog.BlockSize(WindowWidth, WindowHeight)
