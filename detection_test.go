package pedestrian

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetection_Overlap(t *testing.T) {
	assert := assert.New(t)

	a := image.Rect(0, 0, 10, 10)
	assert.Equal(1.0, Overlap(a, a))
	assert.Equal(0.0, Overlap(a, image.Rect(20, 20, 30, 30)))
	assert.Equal(0.0, Overlap(a, image.Rect(10, 0, 20, 10)), "touching edges do not overlap")
	assert.InDelta(1.0/3, Overlap(a, image.Rect(5, 0, 15, 10)), 1e-12)
	assert.InDelta(0.25, Overlap(a, image.Rect(0, 0, 5, 5)), 1e-12)
	assert.Equal(0.0, Overlap(image.Rectangle{}, image.Rectangle{}))
	assert.Equal(Overlap(a, image.Rect(3, 3, 13, 17)), Overlap(image.Rect(3, 3, 13, 17), a))
}

func TestDetection_AddAppendsDisjoint(t *testing.T) {
	p := &Pyramid{}
	p.Add(Detection{Score: 1, Rect: image.Rect(0, 0, 64, 128)})
	p.Add(Detection{Score: 2, Rect: image.Rect(100, 0, 164, 128)})

	assert.Len(t, p.Detections(), 2)
}

func TestDetection_AddReplacesWeaker(t *testing.T) {
	assert := assert.New(t)

	p := &Pyramid{}
	p.Add(Detection{Score: 1, Rect: image.Rect(0, 0, 64, 128)})
	p.Add(Detection{Score: 3, Rect: image.Rect(8, 0, 72, 128)})

	require.Len(t, p.Detections(), 1)
	assert.Equal(3.0, p.Detections()[0].Score)
	assert.Equal(image.Rect(8, 0, 72, 128), p.Detections()[0].Rect)
}

func TestDetection_AddDropsWeakerNewcomer(t *testing.T) {
	p := &Pyramid{}
	p.Add(Detection{Score: 3, Rect: image.Rect(0, 0, 64, 128)})
	p.Add(Detection{Score: 1, Rect: image.Rect(8, 0, 72, 128)})
	p.Add(Detection{Score: 3, Rect: image.Rect(0, 8, 64, 136)})

	require.Len(t, p.Detections(), 1)
	assert.Equal(t, image.Rect(0, 0, 64, 128), p.Detections()[0].Rect)
}

func TestDetection_AddReplacesFirstWeakerMatch(t *testing.T) {
	assert := assert.New(t)

	p := &Pyramid{detections: []Detection{
		{Score: 5, Rect: image.Rect(0, 0, 64, 128)},
		{Score: 1, Rect: image.Rect(16, 0, 80, 128)},
		{Score: 2, Rect: image.Rect(24, 0, 88, 128)},
	}}
	p.Add(Detection{Score: 3, Rect: image.Rect(8, 0, 72, 128)})

	dets := p.Detections()
	require.Len(t, dets, 3)
	assert.Equal(5.0, dets[0].Score)
	assert.Equal(3.0, dets[1].Score)
	assert.Equal(image.Rect(8, 0, 72, 128), dets[1].Rect)
	assert.Equal(2.0, dets[2].Score)
}

func TestDetection_NMSIdenticalRects(t *testing.T) {
	r := image.Rect(10, 10, 74, 138)
	dets := SuppressNonMaximum([]Detection{
		{Score: 0.5, Rect: r},
		{Score: 0.7, Rect: r},
	}, DefaultNMSOverlap)

	require.Len(t, dets, 1)
	assert.Equal(t, 0.7, dets[0].Score)
}

func TestDetection_NMSKeepsZeroScores(t *testing.T) {
	dets := SuppressNonMaximum([]Detection{
		{Score: 0, Rect: image.Rect(0, 0, 64, 128)},
		{Score: 0, Rect: image.Rect(200, 0, 264, 128)},
		{Score: -1, Rect: image.Rect(400, 0, 464, 128)},
	}, DefaultNMSOverlap)

	assert.Len(t, dets, 3)
}

func TestDetection_NMSSuppressedDoNotSuppress(t *testing.T) {
	// b overlaps a and c, a and c do not overlap: c must survive even
	// though b, which is removed by a, would have suppressed it.
	a := Detection{Score: 3, Rect: image.Rect(0, 0, 64, 128)}
	b := Detection{Score: 2, Rect: image.Rect(24, 0, 88, 128)}
	c := Detection{Score: 1, Rect: image.Rect(56, 0, 120, 128)}

	dets := SuppressNonMaximum([]Detection{c, b, a}, 0.3)
	require.Len(t, dets, 2)
	assert.Equal(t, a, dets[0])
	assert.Equal(t, c, dets[1])
}

func TestDetection_NMSTiesKeepScanOrder(t *testing.T) {
	first := Detection{Score: 1, Rect: image.Rect(0, 0, 64, 128)}
	second := Detection{Score: 1, Rect: image.Rect(8, 0, 72, 128)}

	dets := SuppressNonMaximum([]Detection{first, second}, DefaultNMSOverlap)
	require.Len(t, dets, 1)
	assert.Equal(t, first.Rect, dets[0].Rect)
}

func TestDetection_NMSProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		var dets []Detection
		for i := 0; i < 40; i++ {
			x, y := rng.Intn(300), rng.Intn(300)
			s := 1 + rng.Float64()*2
			dets = append(dets, Detection{
				Score: rng.NormFloat64(),
				Rect:  image.Rect(x, y, x+int(64*s), y+int(128*s)),
			})
		}

		kept := SuppressNonMaximum(dets, DefaultNMSOverlap)
		require.NotEmpty(t, kept)
		for i := range kept {
			if i > 0 {
				assert.GreaterOrEqual(t, kept[i-1].Score, kept[i].Score)
			}
			for j := i + 1; j < len(kept); j++ {
				assert.Less(t, Overlap(kept[i].Rect, kept[j].Rect), DefaultNMSOverlap)
			}
		}

		again := SuppressNonMaximum(append([]Detection(nil), kept...), DefaultNMSOverlap)
		assert.Equal(t, kept, again, "suppression must be idempotent")
	}
}

func TestDetection_PyramidNMS(t *testing.T) {
	p := &Pyramid{detections: []Detection{
		{Score: 1, Rect: image.Rect(0, 0, 64, 128)},
		{Score: 4, Rect: image.Rect(300, 0, 364, 128)},
		{Score: 2, Rect: image.Rect(150, 0, 214, 128)},
	}}
	p.SuppressNonMaximum(DefaultNMSOverlap)

	var scores []float64
	for _, d := range p.Detections() {
		scores = append(scores, d.Score)
	}
	assert.Equal(t, []float64{4, 2, 1}, scores)
}
