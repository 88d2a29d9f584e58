package pedestrian

import (
	"context"
	"image"
	"math/rand"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
	"github.com/esimov/pedestrian/svm"
	"github.com/esimov/pedestrian/utils"
	"github.com/pkg/errors"
)

// TrainResult summarizes a complete training run.
type TrainResult struct {
	Positives     int
	Negatives     int
	HardNegatives int
	// Skipped counts the images that could not be processed; Errs holds
	// the reason of each.
	Skipped int
	Errs    error
	// Model is the classifier trained on random negatives, HardModel the
	// one retrained with the hard negatives added.
	Model     *Classifier
	HardModel *Classifier
}

// Trainer trains the pedestrian classifier in two rounds: a first model
// from the positives and randomly sampled negative windows, then a second
// one after adding the strongest false positives the first model produces
// on the negative images.
type Trainer struct {
	*pipeline

	positives [][]float64
	negatives [][]float64
	hard      *HardNegatives
}

// NewTrainer returns a trainer for the dataset described by cfg.
func NewTrainer(cfg *Config, opts ...Option) (*Trainer, error) {
	p, err := newPipeline(cfg, opts)
	if err != nil {
		return nil, err
	}
	return &Trainer{
		pipeline: p,
		hard:     NewHardNegatives(cfg.NumFalsePositives),
	}, nil
}

// Train runs both training rounds on the dataset and saves the two
// models to the configured paths.
func (t *Trainer) Train(ctx context.Context) (*TrainResult, error) {
	positives, err := ListImages(t.cfg.PositiveTrainPath())
	if err != nil {
		return nil, err
	}
	negatives, err := ListImages(t.cfg.NegativeTrainPath())
	if err != nil {
		return nil, err
	}
	t.logger.Infow("dataset listed", "positives", len(positives), "negatives", len(negatives))

	if err := t.CollectPositives(ctx, positives); err != nil {
		return nil, err
	}
	if err := t.CollectNegatives(ctx, negatives); err != nil {
		return nil, err
	}

	res := &TrainResult{}
	if res.Model, err = t.Fit(); err != nil {
		return nil, err
	}
	if err := res.Model.Save(t.cfg.SVM); err != nil {
		return nil, err
	}
	t.logger.Infow("model saved", "path", t.cfg.SVM)

	if err := t.MineHardNegatives(ctx, res.Model, negatives); err != nil {
		return nil, err
	}
	if res.HardModel, err = t.Fit(); err != nil {
		return nil, err
	}
	if err := res.HardModel.Save(t.cfg.SVMHard); err != nil {
		return nil, err
	}
	t.logger.Infow("model saved", "path", t.cfg.SVMHard)

	res.Positives = len(t.positives)
	res.Negatives = len(t.negatives)
	res.HardNegatives = t.hard.Len()
	res.Skipped = t.skipped
	res.Errs = t.errs
	return res, nil
}

// CollectPositives computes the feature vector of the window anchored at
// the configured offset of every normalized positive image.
func (t *Trainer) CollectPositives(ctx context.Context, paths []string) error {
	processed := 0
	err := forEachImage(ctx, paths, t.cfg.Workers, t.positiveFeatures,
		func(res result[[][]float64]) {
			processed++
			if !t.skip(res.path, res.err) {
				t.positives = append(t.positives, res.value...)
			}
			t.progress.Report("positives processed", processed, len(paths), res.path)
		})
	t.logger.Infow("positives collected", "count", len(t.positives))
	return err
}

func (t *Trainer) positiveFeatures(_ int, path string) ([][]float64, error) {
	img, err := t.load(path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	crop := image.Rect(t.cfg.PositiveOffsetX, t.cfg.PositiveOffsetY,
		t.cfg.PositiveOffsetX+WindowWidth, t.cfg.PositiveOffsetY+WindowHeight).Add(b.Min)
	if !crop.In(b) {
		return nil, errors.Errorf("%dx%d image cannot hold a window at offset (%d,%d)",
			b.Dx(), b.Dy(), t.cfg.PositiveOffsetX, t.cfg.PositiveOffsetY)
	}

	window := imaging.Crop(img, crop)
	crops := []image.Image{window}
	if t.cfg.FlipPositives {
		crops = append(crops, transform.FlipH(window))
	}

	var feats [][]float64
	for _, c := range crops {
		fm, err := t.ext.Extract(c)
		if err != nil {
			return nil, err
		}
		v, err := fm.Block(image.Rect(0, 0, WindowWidth, WindowHeight))
		if err != nil {
			return nil, err
		}
		feats = append(feats, v)
	}
	return feats, nil
}

// CollectNegatives samples RandomsPerNegative distinct random windows
// from the pyramid of every negative image.
func (t *Trainer) CollectNegatives(ctx context.Context, paths []string) error {
	processed := 0
	err := forEachImage(ctx, paths, t.cfg.Workers, t.negativeFeatures,
		func(res result[[][]float64]) {
			processed++
			if !t.skip(res.path, res.err) {
				t.negatives = append(t.negatives, res.value...)
			}
			t.progress.Report("negatives processed", processed, len(paths), res.path)
		})
	t.logger.Infow("negatives collected", "count", len(t.negatives))
	return err
}

// windowKey identifies a window inside a pyramid.
type windowKey struct {
	level, window int
}

func (t *Trainer) negativeFeatures(index int, path string) ([][]float64, error) {
	img, err := t.load(path)
	if err != nil {
		return nil, err
	}
	pyr, err := NewPyramid(img, t.scales, t.ext)
	if err != nil {
		return nil, err
	}

	total := pyr.NumWindows()
	if total == 0 {
		t.logger.Debugw("negative image holds no window", "path", path)
		return nil, nil
	}
	k := utils.Min(t.cfg.RandomsPerNegative, total)

	rng := rand.New(rand.NewSource(t.cfg.Seed + int64(index)))
	levels := pyr.Levels()
	seen := make(map[windowKey]struct{}, k)
	feats := make([][]float64, 0, k)
	for len(feats) < k {
		li := rng.Intn(len(levels))
		wins := levels[li].Windows()
		if len(wins) == 0 {
			continue
		}
		key := windowKey{level: li, window: rng.Intn(len(wins))}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		v, err := wins[key.window].Features()
		if err != nil {
			return nil, err
		}
		feats = append(feats, v)
	}
	return feats, nil
}

// MineHardNegatives runs the detector built on c over every negative
// image and retains the strongest detections as hard negatives.
func (t *Trainer) MineHardNegatives(ctx context.Context, c *Classifier, paths []string) error {
	if !c.Loaded() {
		return ErrNotLoaded
	}
	processed := 0
	err := forEachImage(ctx, paths, t.cfg.Workers,
		func(_ int, path string) ([]HardNegative, error) {
			return t.falsePositives(c, path)
		},
		func(res result[[]HardNegative]) {
			processed++
			if !t.skip(res.path, res.err) {
				t.hard.Merge(res.value...)
			}
			t.progress.Report("hard negatives processed", processed, len(paths), res.path)
		})
	t.logger.Infow("hard negatives mined", "retained", t.hard.Len(), "limit", t.hard.Limit())
	return err
}

func (t *Trainer) falsePositives(c *Classifier, path string) ([]HardNegative, error) {
	img, err := t.load(path)
	if err != nil {
		return nil, err
	}
	dets, err := t.detect(c, img, 0)
	if err != nil {
		return nil, err
	}

	var hard []HardNegative
	for _, d := range dets {
		if d.Score <= 0 {
			continue
		}
		v, err := d.Window.Features()
		if err != nil {
			return nil, err
		}
		hard = append(hard, HardNegative{Score: d.Score, Rect: d.Rect, Source: path, Features: v})
	}
	return hard, nil
}

// Fit trains a model on the collected positives, random negatives and
// hard negatives.
func (t *Trainer) Fit() (*Classifier, error) {
	if len(t.positives) == 0 {
		return nil, errors.Wrap(svm.ErrNoExamples, "no positive examples")
	}
	if len(t.negatives) == 0 {
		return nil, errors.Wrap(svm.ErrNoExamples, "no negative examples")
	}

	samples := make([]svm.Sample, 0, len(t.positives)+len(t.negatives)+t.hard.Len())
	for _, v := range t.positives {
		samples = append(samples, svm.Sample{Features: v, Label: 1})
	}
	for _, v := range t.negatives {
		samples = append(samples, svm.Sample{Features: v, Label: -1})
	}
	for _, h := range t.hard.Items() {
		samples = append(samples, svm.Sample{Features: h.Features, Label: -1})
	}

	t.logger.Infow("training svm",
		"positives", len(t.positives),
		"negatives", len(t.negatives),
		"hard_negatives", t.hard.Len(),
		"c", t.cfg.SvmC,
	)
	m, err := svm.Train(samples, t.cfg.SvmC, svm.WithRand(rand.New(rand.NewSource(t.cfg.Seed))))
	if err != nil {
		return nil, errors.Wrap(err, "svm training failed")
	}
	return NewClassifier(m), nil
}

// Positives returns the collected positive feature vectors.
func (t *Trainer) Positives() [][]float64 { return t.positives }

// Negatives returns the collected random negative feature vectors.
func (t *Trainer) Negatives() [][]float64 { return t.negatives }

// HardNegatives returns the retained hard negatives.
func (t *Trainer) HardNegatives() *HardNegatives { return t.hard }
