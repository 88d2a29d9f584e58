// Package hog computes dense histogram of oriented gradients (HOG) feature
// maps in the UoCTTI flavour: every 8x8 pixel cell is described by 18
// contrast sensitive orientations, 9 contrast insensitive orientations and
// 4 texture energies, 31 values in total.
package hog

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/esimov/pedestrian/utils"
	pigo "github.com/esimov/pigo/core"
	"github.com/pkg/errors"
)

const (
	// CellSize is the side length of a HOG cell in pixels.
	CellSize = 8
	// Orientations is the number of contrast insensitive orientation bins.
	Orientations = 9
	// Dimensions is the length of the descriptor of a single cell.
	Dimensions = 3*Orientations + 4
)

const (
	truncation  = 0.2
	textureNorm = 0.2357
	epsilon     = 1e-4
)

var (
	// ErrTooSmall is returned when the image does not contain a single cell.
	ErrTooSmall = errors.New("image smaller than a hog cell")
	// ErrOutOfBounds is returned when a block reaches outside the feature grid.
	ErrOutOfBounds = errors.New("block outside of the feature map")
)

// FeatureMap is a grid of cell descriptors stored row-major over cells,
// each cell holding Dimensions consecutive values.
type FeatureMap struct {
	Width  int // cells per row
	Height int // cells per column
	data   []float64
}

// Extract computes the feature map of img. Only whole cells are described;
// the right and bottom remainders smaller than CellSize are ignored.
func Extract(img image.Image) (*FeatureMap, error) {
	if img == nil {
		return nil, ErrTooSmall
	}
	b := img.Bounds()
	if b.Dx() < CellSize || b.Dy() < CellSize {
		return nil, errors.Wrapf(ErrTooSmall, "%dx%d", b.Dx(), b.Dy())
	}
	if b.Min != image.Pt(0, 0) {
		img = imaging.Clone(img)
	}

	cols, rows := b.Dx(), b.Dy()
	gray := pigo.RgbToGrayscale(img)

	fm := &FeatureMap{
		Width:  cols / CellSize,
		Height: rows / CellSize,
	}
	hist := fm.histograms(gray, cols, rows)
	energy := fm.energies(hist)
	fm.data = make([]float64, fm.Width*fm.Height*Dimensions)

	const bins = 2 * Orientations
	for cy := 0; cy < fm.Height; cy++ {
		for cx := 0; cx < fm.Width; cx++ {
			h := hist[(cy*fm.Width+cx)*bins : (cy*fm.Width+cx+1)*bins]
			out := fm.Cell(cx, cy)

			var norms [4]float64
			k := 0
			for dy := -1; dy <= 0; dy++ {
				for dx := -1; dx <= 0; dx++ {
					var sum float64
					for j := 0; j < 2; j++ {
						for i := 0; i < 2; i++ {
							sum += energy[fm.index(cx+dx+i, cy+dy+j)]
						}
					}
					norms[k] = 1 / math.Sqrt(sum+epsilon)
					k++
				}
			}

			for o := 0; o < bins; o++ {
				for _, n := range norms {
					out[o] += 0.5 * math.Min(h[o]*n, truncation)
				}
			}
			for o := 0; o < Orientations; o++ {
				u := h[o] + h[o+Orientations]
				for k, n := range norms {
					v := math.Min(u*n, truncation)
					out[bins+o] += 0.5 * v
					out[bins+Orientations+k] += textureNorm * v
				}
			}
		}
	}

	return fm, nil
}

// histograms accumulates the gradient magnitudes of every pixel into the
// contrast sensitive orientation histogram of its cell, interpolating
// linearly between the two nearest orientation bins.
func (fm *FeatureMap) histograms(gray []uint8, cols, rows int) []float64 {
	const bins = 2 * Orientations
	hist := make([]float64, fm.Width*fm.Height*bins)

	at := func(x, y int) float64 {
		x = utils.Clamp(x, 0, cols-1)
		y = utils.Clamp(y, 0, rows-1)
		return float64(gray[y*cols+x]) / 255
	}

	for y := 0; y < fm.Height*CellSize; y++ {
		for x := 0; x < fm.Width*CellSize; x++ {
			gx := at(x+1, y) - at(x-1, y)
			gy := at(x, y+1) - at(x, y-1)
			mag := math.Hypot(gx, gy)
			if mag == 0 {
				continue
			}
			theta := math.Atan2(gy, gx)
			if theta < 0 {
				theta += 2 * math.Pi
			}
			pos := theta / (2 * math.Pi) * bins
			b0 := int(pos)
			frac := pos - float64(b0)
			b0 %= bins
			b1 := (b0 + 1) % bins

			c := ((y/CellSize)*fm.Width + x/CellSize) * bins
			hist[c+b0] += (1 - frac) * mag
			hist[c+b1] += frac * mag
		}
	}
	return hist
}

// energies returns the squared norm of the contrast insensitive histogram of every cell.
func (fm *FeatureMap) energies(hist []float64) []float64 {
	const bins = 2 * Orientations
	energy := make([]float64, fm.Width*fm.Height)
	for c := range energy {
		h := hist[c*bins : (c+1)*bins]
		for o := 0; o < Orientations; o++ {
			u := h[o] + h[o+Orientations]
			energy[c] += u * u
		}
	}
	return energy
}

// index returns the cell index of (cx, cy), clamping to the grid border.
func (fm *FeatureMap) index(cx, cy int) int {
	return utils.Clamp(cy, 0, fm.Height-1)*fm.Width + utils.Clamp(cx, 0, fm.Width-1)
}

// Cell returns the descriptor of the cell at (cx, cy). The returned slice
// aliases the feature map.
func (fm *FeatureMap) Cell(cx, cy int) []float64 {
	i := (cy*fm.Width + cx) * Dimensions
	return fm.data[i : i+Dimensions : i+Dimensions]
}

// Size returns the length of the flattened feature map.
func (fm *FeatureMap) Size() int {
	return len(fm.data)
}

// Block flattens the cells covered by the pixel rectangle r into a new
// vector, row-major over cells and then by channel. The rectangle origin
// is truncated to the cell grid and its size rounded to the nearest whole
// number of cells, at least one.
func (fm *FeatureMap) Block(r image.Rectangle) ([]float64, error) {
	x0, y0 := r.Min.X/CellSize, r.Min.Y/CellSize
	w, h := cells(r.Dx()), cells(r.Dy())
	if r.Min.X < 0 || r.Min.Y < 0 || x0+w > fm.Width || y0+h > fm.Height {
		return nil, errors.Wrapf(ErrOutOfBounds, "block %v in %dx%d cells", r, fm.Width, fm.Height)
	}

	out := make([]float64, 0, w*h*Dimensions)
	for cy := y0; cy < y0+h; cy++ {
		i := (cy*fm.Width + x0) * Dimensions
		out = append(out, fm.data[i:i+w*Dimensions]...)
	}
	return out, nil
}

// BlockSize returns the length of the vector Block produces for a w x h pixel rectangle.
func BlockSize(w, h int) int {
	return cells(w) * cells(h) * Dimensions
}

func cells(px int) int {
	n := (px + CellSize/2) / CellSize
	if n < 1 {
		return 1
	}
	return n
}
