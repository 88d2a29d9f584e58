package pedestrian

import (
	"fmt"
	"image"
	"image/color"

	"github.com/esimov/pedestrian/utils"
	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Default box colors.
const (
	DetectionColor   = "#00ff00"
	FalseAlarmColor  = "#ff0000"
	GroundTruthColor = "#0000ff"
)

// palette holds the parsed box colors.
type palette struct {
	detection   color.Color
	falseAlarm  color.Color
	groundTruth color.Color
}

func newPalette(detection string) (*palette, error) {
	if detection == "" {
		detection = DetectionColor
	}
	hexes := []string{detection, FalseAlarmColor, GroundTruthColor}
	cols := make([]color.Color, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid color %q", h)
		}
		cols[i] = c
	}
	return &palette{detection: cols[0], falseAlarm: cols[1], groundTruth: cols[2]}, nil
}

// drawDetections returns a copy of img with the detections outlined. When
// ground truth boxes are given, detections overlapping one of them by at
// least ValidOverlap use the detection color and the others the false
// alarm color, and the ground truth is outlined too.
func drawDetections(img image.Image, dets []Detection, truth []image.Rectangle, pal *palette, lineWidth float64, labels bool) image.Image {
	dc := gg.NewContextForImage(imgToNRGBA(img))
	dc.SetLineWidth(lineWidth)

	for _, d := range dets {
		best := 0.0
		for _, g := range truth {
			best = utils.Max(best, Overlap(d.Rect, g))
		}

		col := pal.detection
		if len(truth) > 0 && best < ValidOverlap {
			col = pal.falseAlarm
		}
		dc.SetColor(col)
		r := d.Rect
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		dc.Stroke()

		if labels {
			x, y := float64(r.Min.X+6), float64(r.Min.Y+12)
			dc.DrawString(fmt.Sprintf("dist (%.2f)", d.Score), x, y)
			if len(truth) > 0 {
				dc.DrawString(fmt.Sprintf("overlap (%.2f)", best), x, y+12)
			}
		}
	}

	dc.SetColor(pal.groundTruth)
	for _, g := range truth {
		dc.DrawRectangle(float64(g.Min.X), float64(g.Min.Y), float64(g.Dx()), float64(g.Dy()))
		dc.Stroke()
	}
	return dc.Image()
}
