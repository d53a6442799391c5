// Package inference - Detection output engine assembled from a model and a
// detector.
package inference

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-rdetect/common"
	"github.com/nvr-ai/go-rdetect/inference/detectors"
	"github.com/nvr-ai/go-rdetect/logger"
	"github.com/nvr-ai/go-rdetect/models"
	"github.com/nvr-ai/go-rdetect/models/model"
	"github.com/nvr-ai/go-rdetect/models/rdetection"
	"github.com/nvr-ai/go-rdetect/profiler"
)

// Engine turns raw detector output into detections.
type Engine interface {
	Detect(ctx context.Context, loc, conf, prior tensor.Tensor) (*common.Output, error)
	DetectBatch(ctx context.Context, batch common.Batch) (*common.Output, error)
	Model() model.Model
	Close() error
}

// EngineBuilder builds an engine with a fluent API.
type EngineBuilder struct {
	logger    *zap.Logger
	collector profiler.Collector
	model     model.Model
	detector  *detectors.Detector
	err       error
}

// NewEngineBuilder creates a new engine builder.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{
		logger:    zap.NewNop(),
		collector: profiler.Nop{},
	}
}

// WithLogger sets the logger handed to the model and the detector. It must
// come before WithModel.
func (b *EngineBuilder) WithLogger(l *zap.Logger) *EngineBuilder {
	b.logger = logger.OrNop(l)
	return b
}

// WithCollector sets the metrics collector of the model. It must come
// before WithModel.
func (b *EngineBuilder) WithCollector(c profiler.Collector) *EngineBuilder {
	if c != nil {
		b.collector = c
	}
	return b
}

// WithModel sets the model for the engine.
//
// Arguments:
//   - args: The model arguments.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithModel(args model.NewModelArgs) *EngineBuilder {
	if b.HasError() {
		return b
	}
	m, err := models.NewModel(args,
		rdetection.WithLogger(b.logger),
		rdetection.WithCollector(b.collector))
	if err != nil {
		b.err = err
		return b
	}
	b.model = m
	return b
}

// WithDetector sets the detector for the engine. It needs the model.
//
// Arguments:
//   - cfg: The detector configuration.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithDetector(cfg detectors.Config) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if b.model == nil {
		b.err = errors.New("model must be configured before the detector")
		return b
	}

	detector, err := detectors.NewDetector(b.model, cfg, b.logger)
	if err != nil {
		b.err = err
		return b
	}
	b.detector = detector
	return b
}

// WithConfig sets both the rotated-box model and the detector from cfg.
func (b *EngineBuilder) WithConfig(cfg detectors.Config) *EngineBuilder {
	return b.WithModel(model.NewModelArgs{
		Name:    model.ModelNameRDetection,
		Family:  model.ModelFamilyRotated,
		Options: cfg.Model,
	}).WithDetector(cfg)
}

// HasError checks if the engine builder has errors.
//
// Returns:
//   - bool: True if there are errors, false otherwise.
func (b *EngineBuilder) HasError() bool {
	return b.err != nil
}

// engine implements the Engine interface.
type engine struct {
	model    model.Model
	detector *detectors.Detector
}

// Detect post-processes detector output tensors.
func (e *engine) Detect(ctx context.Context, loc, conf, prior tensor.Tensor) (*common.Output, error) {
	return e.detector.Detect(ctx, loc, conf, prior)
}

// DetectBatch post-processes a batch of raw buffers.
func (e *engine) DetectBatch(ctx context.Context, batch common.Batch) (*common.Output, error) {
	return e.detector.DetectBatch(ctx, batch)
}

// Model returns the model the engine was built with.
func (e *engine) Model() model.Model {
	return e.model
}

func (e *engine) Close() error {
	return e.detector.Close()
}

// MustBuild builds the engine and panics if there is an error.
//
// Returns:
//   - Engine: The engine.
func (b *EngineBuilder) MustBuild() Engine {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}

// Build builds the engine.
//
// Returns:
//   - Engine: The engine.
//   - error: The error if any.
func (b *EngineBuilder) Build() (Engine, error) {
	if b.HasError() {
		return nil, b.err
	}
	if b.model == nil {
		return nil, errors.New("model not configured")
	}
	if b.detector == nil {
		return nil, errors.New("detector not configured")
	}

	return &engine{
		model:    b.model,
		detector: b.detector,
	}, nil
}
