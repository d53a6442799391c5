package rdetection

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-rdetect/common"
	"github.com/nvr-ai/go-rdetect/images"
	"github.com/nvr-ai/go-rdetect/logger"
	"github.com/nvr-ai/go-rdetect/models/model"
	"github.com/nvr-ai/go-rdetect/models/postprocess"
	"github.com/nvr-ai/go-rdetect/profiler"
)

// RDetection decodes rotated-box detector output.
type RDetection struct {
	params    Params
	logger    *zap.Logger
	collector profiler.Collector
}

// Option customizes an RDetection.
type Option func(*RDetection)

// WithLogger sets the logger; nil keeps the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(r *RDetection) {
		r.logger = logger.OrNop(l)
	}
}

// WithCollector sets the metrics collector; nil keeps the no-op default.
func WithCollector(c profiler.Collector) Option {
	return func(r *RDetection) {
		if c != nil {
			r.collector = c
		}
	}
}

// NewModel validates params and returns a ready model.
func NewModel(params Params, opts ...Option) (*RDetection, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	r := &RDetection{
		params:    params,
		logger:    zap.NewNop(),
		collector: profiler.Nop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Options implements model.Model.
func (r *RDetection) Options() model.BaseModel {
	return model.BaseModel{Name: model.ModelNameRDetection, Family: model.ModelFamilyRotated}
}

// Params returns the params the model was built with.
func (r *RDetection) Params() Params {
	return r.params
}

// PostProcess runs the whole detection output stage over a batch.
//
// Priors are unpacked once and shared read-only by every image. Each image is
// then decoded, suppressed per class, capped across classes and assembled
// independently; with Workers > 1 images run concurrently and are gathered
// back in image order. Any shape or missing-data error aborts the batch.
//
// Arguments:
//   - batch: The raw location, confidence and prior buffers.
//
// Returns:
//   - *common.Output: Per-image results in image order.
//   - error: ErrShapeMismatch or ErrMissingData, wrapped with context.
func (r *RDetection) PostProcess(batch common.Batch) (*common.Output, error) {
	defer profiler.StartStage(r.collector, profiler.StageBatch)()

	p := r.params
	numPriors, err := NumPriors(len(batch.Prior), p)
	if err != nil {
		return nil, err
	}
	locSize := numPriors * p.NumLocClasses() * p.NumParam()
	confSize := numPriors * p.NumClasses
	if !holdsImages(len(batch.Loc), batch.NumImages, locSize) {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"number of priors must match number of location predictions: %d floats for %d images of %d priors",
			len(batch.Loc), batch.NumImages, numPriors)
	}
	if !holdsImages(len(batch.Conf), batch.NumImages, confSize) {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"number of priors must match number of confidence predictions: %d floats for %d images of %d priors",
			len(batch.Conf), batch.NumImages, numPriors)
	}

	stop := profiler.StartStage(r.collector, profiler.StagePriors)
	priors, err := GetPriorRBoxes(batch.Prior, numPriors, p)
	stop()
	if err != nil {
		return nil, err
	}

	results := make([]common.ImageResult, batch.NumImages)
	process := func(i int) error {
		result, err := r.processImage(i,
			batch.Loc[i*locSize:(i+1)*locSize],
			batch.Conf[i*confSize:(i+1)*confSize],
			priors)
		if err != nil {
			return errors.Wrapf(err, "image %d", i)
		}
		results[i] = result
		return nil
	}

	if p.Workers > 1 && batch.NumImages > 1 {
		var g errgroup.Group
		g.SetLimit(p.Workers)
		for i := 0; i < batch.NumImages; i++ {
			i := i
			g.Go(func() error { return process(i) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := 0; i < batch.NumImages; i++ {
			if err := process(i); err != nil {
				return nil, err
			}
		}
	}

	out := common.NewOutput(results)
	if out.Empty() {
		r.logger.Info("couldn't find any detections",
			zap.Stringer("run_id", out.RunID), zap.Int("images", batch.NumImages))
	} else {
		r.logger.Debug("batch processed",
			zap.Stringer("run_id", out.RunID),
			zap.Int("images", batch.NumImages),
			zap.Int("priors", numPriors),
			zap.Int("kept", out.NumKept))
	}
	return out, nil
}

// processImage runs decode, NMS, top-k and assembly for one image.
func (r *RDetection) processImage(imageID int, loc, conf []float32, priors []Prior) (common.ImageResult, error) {
	p := r.params

	stop := profiler.StartStage(r.collector, profiler.StageDecode)
	preds, err := imageLocPredictions(loc, len(priors), p)
	if err != nil {
		stop()
		return common.ImageResult{}, err
	}
	decoded, err := decodeImage(preds, priors, p)
	stop()
	if err != nil {
		return common.ImageResult{}, err
	}

	stop = profiler.StartStage(r.collector, profiler.StageConfidence)
	scores, err := imageConfidenceScores(conf, len(priors), p.NumClasses)
	stop()
	if err != nil {
		return common.ImageResult{}, err
	}

	stop = profiler.StartStage(r.collector, profiler.StageNMS)
	indices, err := ApplyClassNMS(decoded, scores, p)
	stop()
	if err != nil {
		return common.ImageResult{}, err
	}

	stop = profiler.StartStage(r.collector, profiler.StageSelect)
	selections, err := postprocess.KeepTopK(indices, scores, p.KeepTopK)
	stop()
	if err != nil {
		return common.ImageResult{}, errors.Wrap(ErrMissingData, err.Error())
	}

	stop = profiler.StartStage(r.collector, profiler.StageAssemble)
	result, err := Assemble(imageID, selections, decoded, p)
	stop()
	if err != nil {
		return common.ImageResult{}, err
	}

	r.collector.ObserveDetections(imageID, result.Kept)
	r.logger.Debug("image processed",
		zap.Int("image_id", imageID),
		zap.Int("kept", result.Kept),
		zap.Int("classes", len(postprocess.GroupByLabel(selections))))
	return result, nil
}

// ApplyClassNMS runs rotated NMS for every non-background class of one
// image and returns the survivors per class label.
//
// Arguments:
//   - decoded: Boxes per location key, one per prior.
//   - scores: Scores per class label, one per prior.
//   - p: Layer params.
//
// Returns:
//   - map[int][]int: Kept prior indices per label, in keep order.
//   - error: ErrMissingData when a configured class has no scores or boxes.
func ApplyClassNMS(decoded map[LocationKey][]images.RBox, scores map[int][]float32, p Params) (map[int][]int, error) {
	config := p.NMSConfig()
	indices := make(map[int][]int, p.NumClasses)
	for c := 0; c < p.NumClasses; c++ {
		if c == p.BackgroundLabelID {
			continue
		}
		classScores, ok := scores[c]
		if !ok {
			return nil, errors.Wrapf(ErrMissingData, "could not find confidence predictions for label %d", c)
		}
		key := p.LocationKeyFor(c)
		boxes, ok := decoded[key]
		if !ok {
			return nil, errors.Wrapf(ErrMissingData, "could not find location predictions for %s", key)
		}
		kept, err := postprocess.ApplyRotatedNMS(boxes, classScores, config)
		if err != nil {
			return nil, errors.Wrapf(err, "label %d", c)
		}
		indices[c] = kept
	}
	return indices, nil
}
