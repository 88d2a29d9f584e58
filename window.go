package pedestrian

import (
	"image"

	"github.com/esimov/pedestrian/hog"
)

// Detection window geometry, in pixels.
const (
	WindowWidth  = 64
	WindowHeight = 128
	// WindowStride is the sliding step, one feature cell.
	WindowStride = hog.CellSize
)

// Window is a fixed size rectangle inside one pyramid level. It borrows
// the feature map of its Level and must not outlive the Pyramid.
type Window struct {
	X, Y     int // top-left corner in level pixels, a multiple of WindowStride
	scale    float64
	features FeatureMap
}

// Scale returns the factor mapping level pixels to source image pixels.
func (w *Window) Scale() float64 {
	return w.scale
}

// Rect returns the window in source image coordinates.
func (w *Window) Rect() image.Rectangle {
	x := int(float64(w.X) * w.scale)
	y := int(float64(w.Y) * w.scale)
	return image.Rect(x, y,
		x+int(WindowWidth*w.scale),
		y+int(WindowHeight*w.scale),
	)
}

// Features returns the descriptor of the cells covered by the window.
func (w *Window) Features() ([]float64, error) {
	return w.features.Block(image.Rect(w.X, w.Y, w.X+WindowWidth, w.Y+WindowHeight))
}

// Level is one rescaled copy of the source image together with its
// feature map and all the windows fitting inside it.
type Level struct {
	scale    float64
	size     image.Point
	features FeatureMap
	windows  []Window
}

// newLevel extracts the features of img and enumerates its windows,
// row by row from the top-left corner.
func newLevel(img image.Image, scale float64, ext Extractor) (*Level, error) {
	fm, err := ext.Extract(img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	l := &Level{
		scale:    scale,
		size:     b.Size(),
		features: fm,
	}
	for y := 0; y+WindowHeight <= b.Dy(); y += WindowStride {
		for x := 0; x+WindowWidth <= b.Dx(); x += WindowStride {
			l.windows = append(l.windows, Window{X: x, Y: y, scale: scale, features: fm})
		}
	}
	return l, nil
}

// Scale returns the factor mapping level pixels to source image pixels.
func (l *Level) Scale() float64 { return l.scale }

// Size returns the level image dimensions.
func (l *Level) Size() image.Point { return l.size }

// Windows returns the windows of the level in raster order.
func (l *Level) Windows() []Window { return l.windows }

// Features returns the feature map shared by the level windows.
func (l *Level) Features() FeatureMap { return l.features }
