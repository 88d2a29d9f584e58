package pedestrian

import (
	"image"
	"sort"
)

// Overlap thresholds used by the detection pipeline.
const (
	// MergeOverlap is the IoU at which a new detection competes with an
	// existing one while scanning.
	MergeOverlap = 0.2
	// DefaultNMSOverlap is the IoU at which non-maximum suppression
	// removes the weaker of two detections.
	DefaultNMSOverlap = 0.2
	// ValidOverlap is the IoU a detection needs with a ground truth box
	// to count as correct.
	ValidOverlap = 0.5
)

// Detection is a scored window in source image coordinates.
type Detection struct {
	Score  float64
	Rect   image.Rectangle
	Window *Window
}

// Overlap returns the intersection over union of two rectangles, or 0 when
// both are empty.
func Overlap(a, b image.Rectangle) float64 {
	inter := area(a.Intersect(b))
	union := area(a) + area(b) - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func area(r image.Rectangle) int {
	if r.Empty() {
		return 0
	}
	return r.Dx() * r.Dy()
}

// Add merges d into the detection list. The first existing detection that
// overlaps d by at least MergeOverlap and scores lower is replaced by d.
// When d overlaps only stronger detections it is dropped, otherwise it is
// appended.
func (p *Pyramid) Add(d Detection) {
	overlapped := false
	for i := range p.detections {
		if Overlap(p.detections[i].Rect, d.Rect) < MergeOverlap {
			continue
		}
		overlapped = true
		if p.detections[i].Score < d.Score {
			p.detections[i] = d
			return
		}
	}
	if !overlapped {
		p.detections = append(p.detections, d)
	}
}

// SuppressNonMaximum sorts the detections by decreasing score and removes
// every detection overlapping a stronger surviving one by at least
// minOverlap. Ties keep their insertion order.
func (p *Pyramid) SuppressNonMaximum(minOverlap float64) {
	p.detections = SuppressNonMaximum(p.detections, minOverlap)
}

// SuppressNonMaximum is the slice form of Pyramid.SuppressNonMaximum. The
// input slice is reordered in place and the survivors are returned.
func SuppressNonMaximum(dets []Detection, minOverlap float64) []Detection {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Score > dets[j].Score
	})

	suppressed := make([]bool, len(dets))
	for i := range dets {
		if suppressed[i] {
			continue
		}
		for j := i + 1; j < len(dets); j++ {
			if !suppressed[j] && Overlap(dets[i].Rect, dets[j].Rect) >= minOverlap {
				suppressed[j] = true
			}
		}
	}

	kept := dets[:0]
	for i, d := range dets {
		if !suppressed[i] {
			kept = append(kept, d)
		}
	}
	return kept
}
