package detectors

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-rdetect/common"
	"github.com/nvr-ai/go-rdetect/logger"
	"github.com/nvr-ai/go-rdetect/models/model"
	"github.com/nvr-ai/go-rdetect/util"
)

// Detector runs batches through a detection output model and optionally
// saves one detection file per image.
type Detector struct {
	model  model.Model
	config Config
	logger *zap.Logger

	mu sync.Mutex
	// nameCount numbers saved files across every batch of the detector.
	nameCount int
	saveOK    bool
}

// NewDetector creates a detector around m.
//
// When saving is enabled the output directory is created up front. Failing
// to create it is logged as a warning and the detector keeps running;
// writes into the missing directory then fail batch by batch.
//
// Arguments:
//   - m: The model that post-processes each batch.
//   - config: The detector configuration.
//   - l: The logger; nil disables logging.
//
// Returns:
//   - *Detector: The detector.
//   - error: An error if the model is nil or the configuration is invalid.
func NewDetector(m model.Model, config Config, l *zap.Logger) (*Detector, error) {
	if m == nil {
		return nil, errors.New("detector needs a model")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{
		model:  m,
		config: config,
		logger: logger.OrNop(l),
	}

	if config.SaveOutput.Enabled() {
		d.saveOK = true
		if err := os.MkdirAll(config.SaveOutput.OutputDirectory, 0o755); err != nil {
			d.logger.Warn("Failed to create directory",
				zap.String("output_directory", config.SaveOutput.OutputDirectory),
				zap.Error(err))
		}
	}
	return d, nil
}

// Detect post-processes detector output tensors.
//
// Arguments:
//   - ctx: Checked before the batch starts.
//   - loc: Location predictions, [N, P*L*K].
//   - conf: Confidence predictions, [N, P*C].
//   - prior: Priors and variances, [1, 2, P*K].
//
// Returns:
//   - *common.Output: The detections of every image.
//   - error: A context, shape or save error.
func (d *Detector) Detect(ctx context.Context, loc, conf, prior tensor.Tensor) (*common.Output, error) {
	batch, err := BatchFromTensors(loc, conf, prior)
	if err != nil {
		return nil, err
	}
	return d.DetectBatch(ctx, batch)
}

// DetectBatch post-processes a batch of raw buffers.
func (d *Detector) DetectBatch(ctx context.Context, batch common.Batch) (*common.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := d.model.PostProcess(batch)
	if err != nil {
		return nil, err
	}

	if d.saveOK {
		if err := d.save(out); err != nil {
			return out, err
		}
	}
	return out, nil
}

// save writes one file per image, empty images included, numbering them
// with the detector-wide counter.
func (d *Detector) save(out *common.Output) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.config.SaveOutput
	for _, r := range out.Images {
		d.nameCount++
		path, err := util.WriteDetections(s.OutputDirectory,
			util.DetectionFileName(s.OutputNamePrefix, d.nameCount), s.OutputScale, r)
		if err != nil {
			return errors.Wrapf(err, "saving image %d", r.ImageID)
		}
		d.logger.Debug("saved detections",
			zap.String("path", path),
			zap.Int("image_id", r.ImageID),
			zap.Int("kept", r.Kept))
	}
	return nil
}

// Saved returns the number of detection files written so far.
func (d *Detector) Saved() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nameCount
}

// Model returns the underlying model.
func (d *Detector) Model() model.Model {
	return d.model
}

// Close flushes the detector logger.
func (d *Detector) Close() error {
	_ = d.logger.Sync()
	return nil
}
