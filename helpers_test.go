package pedestrian

import (
	"image"
	"image/color"
	"math/rand"

	"github.com/pkg/errors"
)

// fakeMap returns the block origin as features, which lets tests tell
// windows apart without computing real descriptors.
type fakeMap struct {
	size image.Point
}

func (f fakeMap) Block(r image.Rectangle) ([]float64, error) {
	if !r.In(image.Rectangle{Max: f.size}) {
		return nil, errors.New("block out of bounds")
	}
	return []float64{float64(r.Min.X), float64(r.Min.Y), float64(f.size.X)}, nil
}

type fakeExtractor struct {
	err error
}

func (f fakeExtractor) Extract(img image.Image) (FeatureMap, error) {
	if f.err != nil {
		return nil, f.err
	}
	return fakeMap{size: img.Bounds().Size()}, nil
}

// scoreFunc adapts a function to the Scorer interface.
type scoreFunc func([]float64) (float64, error)

func (f scoreFunc) Classify(v []float64) (float64, error) { return f(v) }

func newGray(w, h int, c uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = c
	}
	return img
}

func newNoise(w, h int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	return img
}

// newFigure draws a bright upright bar on a dark background, a crude
// stand-in for a person crop.
func newFigure(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 20, G: 20, B: 20, A: 255}
			if x > w/3 && x < 2*w/3 && y > h/8 && y < 7*h/8 {
				c = color.NRGBA{R: 230, G: 230, B: 230, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// memoryLoader serves images from a map, failing for unknown paths.
func memoryLoader(images map[string]image.Image) ImageLoader {
	return func(path string) (image.Image, error) {
		img, ok := images[path]
		if !ok {
			return nil, errors.Errorf("no such image %s", path)
		}
		return img, nil
	}
}
