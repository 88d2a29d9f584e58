package pedestrian

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"os"
	"sort"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Evaluation holds the score and the ground truth label (+1 pedestrian,
// -1 background) of every detection reported on a test set.
type Evaluation struct {
	Labels []float64
	Scores []float64
	// Skipped counts the test images that could not be processed.
	Skipped int
}

// CurvePoint is one operating point of a detection error tradeoff curve.
type CurvePoint struct {
	Threshold         float64
	FalsePositiveRate float64
	MissRate          float64
}

// Evaluator measures a classifier on the test part of the dataset.
type Evaluator struct {
	*pipeline
}

// NewEvaluator returns an evaluator for the dataset described by cfg.
func NewEvaluator(cfg *Config, opts ...Option) (*Evaluator, error) {
	p, err := newPipeline(cfg, opts)
	if err != nil {
		return nil, err
	}
	return &Evaluator{pipeline: p}, nil
}

// Evaluate runs the detector built on c over the positive and negative
// test images.
func (e *Evaluator) Evaluate(ctx context.Context, c *Classifier) (*Evaluation, error) {
	if !c.Loaded() {
		return nil, ErrNotLoaded
	}
	positives, err := ListImages(e.cfg.PositiveTestPath())
	if err != nil {
		return nil, err
	}
	negatives, err := ListImages(e.cfg.NegativeTestPath())
	if err != nil {
		return nil, err
	}
	return e.EvaluateImages(ctx, c, positives, negatives)
}

// EvaluateImages is Evaluate over explicit image lists. Positive images
// have their TestOffset margin removed before scanning.
func (e *Evaluator) EvaluateImages(ctx context.Context, c *Classifier, positives, negatives []string) (*Evaluation, error) {
	if !c.Loaded() {
		return nil, ErrNotLoaded
	}
	ev := &Evaluation{}
	skipped := e.skipped

	sets := []struct {
		label string
		value float64
		paths []string
		crop  bool
	}{
		{"positives processed", 1, positives, true},
		{"negatives processed", -1, negatives, false},
	}
	for _, set := range sets {
		processed := 0
		err := forEachImage(ctx, set.paths, e.cfg.Workers,
			func(_ int, path string) ([]Detection, error) {
				img, err := e.load(path)
				if err != nil {
					return nil, err
				}
				if set.crop {
					img = e.trimMargin(img)
				}
				return e.detect(c, img, e.cfg.Threshold)
			},
			func(res result[[]Detection]) {
				processed++
				if !e.skip(res.path, res.err) {
					for _, d := range res.value {
						ev.Labels = append(ev.Labels, set.value)
						ev.Scores = append(ev.Scores, d.Score)
					}
				}
				e.progress.Report(set.label, processed, len(set.paths), res.path)
			})
		if err != nil {
			return nil, err
		}
	}
	ev.Skipped = e.skipped - skipped

	e.logger.Infow("evaluation finished",
		"detections", len(ev.Scores),
		"positive_images", len(positives),
		"negative_images", len(negatives),
		"skipped", ev.Skipped,
	)
	return ev, nil
}

// trimMargin removes the configured test offset from every side of img,
// keeping the image when it would become smaller than a window.
func (e *Evaluator) trimMargin(img image.Image) image.Image {
	b := img.Bounds()
	r := image.Rect(
		b.Min.X+e.cfg.TestOffsetX, b.Min.Y+e.cfg.TestOffsetY,
		b.Max.X-e.cfg.TestOffsetX, b.Max.Y-e.cfg.TestOffsetY,
	)
	if r.Dx() < WindowWidth || r.Dy() < WindowHeight {
		return img
	}
	return imaging.Crop(img, r)
}

// Curve returns the detection error tradeoff of the evaluation, one point
// per distinct score, from the highest threshold to the lowest.
func (ev *Evaluation) Curve() []CurvePoint {
	idx := make([]int, len(ev.Scores))
	var pos, neg int
	for i := range idx {
		idx[i] = i
		if ev.Labels[i] > 0 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return nil
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return ev.Scores[idx[a]] > ev.Scores[idx[b]]
	})

	var (
		tp, fp int
		points []CurvePoint
	)
	for n, i := range idx {
		if ev.Labels[i] > 0 {
			tp++
		} else {
			fp++
		}
		if n+1 < len(idx) && ev.Scores[idx[n+1]] == ev.Scores[i] {
			continue
		}
		points = append(points, CurvePoint{
			Threshold:         ev.Scores[i],
			FalsePositiveRate: float64(fp) / float64(neg),
			MissRate:          1 - float64(tp)/float64(pos),
		})
	}
	return points
}

// Save writes the labels and scores as a script plotting the DET curve
// with vl_det.
func (ev *Evaluation) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "unable to create evaluation file")
	}
	w := bufio.NewWriter(f)

	writeVec := func(name string, v []float64) {
		fmt.Fprintf(w, "%s = [", name)
		for _, x := range v {
			fmt.Fprintf(w, "%s, ", strconv.FormatFloat(x, 'g', -1, 64))
		}
		fmt.Fprintln(w, "];")
	}
	writeVec("labels", ev.Labels)
	writeVec("scores", ev.Scores)
	fmt.Fprintln(w, "vl_det(labels, scores);")
	fmt.Fprintln(w, "axis([10^-6 10^-1 0.01 0.5]);")

	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "unable to write %s", path)
	}
	return f.Close()
}

// Plot renders the DET curve on log-log axes into an image file; the
// format follows the path extension.
func (ev *Evaluation) Plot(path, title string) error {
	var xys plotter.XYs
	for _, pt := range ev.Curve() {
		if pt.FalsePositiveRate > 0 && pt.MissRate > 0 {
			xys = append(xys, plotter.XY{X: pt.FalsePositiveRate, Y: pt.MissRate})
		}
	}
	if len(xys) == 0 {
		return errors.New("no curve points to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "false positive rate"
	p.Y.Label.Text = "miss rate"
	p.X.Scale = plot.LogScale{}
	p.Y.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(xys)
	if err != nil {
		return errors.Wrap(err, "unable to build the curve")
	}
	line.Width = vg.Points(1.5)
	p.Add(line)

	if err := p.Save(6*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "unable to save plot %s", path)
	}
	return nil
}
