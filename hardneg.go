package pedestrian

import (
	"image"
	"sort"
)

// HardNegative is a false positive found on a negative image, kept
// together with its feature vector for retraining.
type HardNegative struct {
	Score    float64
	Rect     image.Rectangle
	Source   string
	Features []float64
}

// HardNegatives retains the highest scoring hard negatives up to a fixed
// limit, ordered by decreasing score.
type HardNegatives struct {
	limit int
	items []HardNegative
}

// NewHardNegatives returns an empty set keeping at most limit items.
func NewHardNegatives(limit int) *HardNegatives {
	if limit < 0 {
		limit = 0
	}
	return &HardNegatives{limit: limit}
}

// Merge adds candidates to the set and evicts the lowest scoring items
// exceeding the limit. Among equal scores the items already retained win.
func (h *HardNegatives) Merge(candidates ...HardNegative) {
	if len(candidates) == 0 {
		return
	}
	h.items = append(h.items, candidates...)
	sort.SliceStable(h.items, func(i, j int) bool {
		return h.items[i].Score > h.items[j].Score
	})
	if len(h.items) > h.limit {
		// release the evicted feature vectors
		for i := h.limit; i < len(h.items); i++ {
			h.items[i] = HardNegative{}
		}
		h.items = h.items[:h.limit]
	}
}

// Len returns the number of retained items.
func (h *HardNegatives) Len() int {
	return len(h.items)
}

// Limit returns the maximum number of retained items.
func (h *HardNegatives) Limit() int {
	return h.limit
}

// Items returns the retained items, strongest first.
func (h *HardNegatives) Items() []HardNegative {
	return h.items
}
