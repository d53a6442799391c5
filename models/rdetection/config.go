// Package rdetection - decodes rotated-box detector output into ranked
// detections: prior generation, location decoding, confidence extraction,
// per-class rotated NMS, cross-class top-k and result assembly.
package rdetection

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-rdetect/models/postprocess"
)

var (
	// ErrInvalidConfig is returned for missing or out-of-range parameters.
	ErrInvalidConfig = errors.New("invalid rdetection config")
	// ErrShapeMismatch is returned when a buffer length disagrees with the
	// declared prior, class or parameter counts.
	ErrShapeMismatch = errors.New("buffer shape mismatch")
	// ErrMissingData is returned when a configured class has no location or
	// confidence entry at runtime.
	ErrMissingData = errors.New("missing prediction data")
)

// CodeType selects the box decode formula.
type CodeType string

const (
	// CodeTypeCenterSize scales center offsets by the prior size and
	// regresses the size in log space.
	CodeTypeCenterSize CodeType = "center_size"
	// CodeTypeCorner adds every offset linearly in normalized coordinates.
	CodeTypeCorner CodeType = "corner"
)

// Params configures the detection output stage.
type Params struct {
	NumClasses              int      `json:"num_classes"                yaml:"num_classes"`
	BackgroundLabelID       int      `json:"background_label_id"        yaml:"background_label_id"`
	ShareLocation           bool     `json:"share_location"             yaml:"share_location"`
	CodeType                CodeType `json:"code_type"                  yaml:"code_type"`
	VarianceEncodedInTarget bool     `json:"variance_encoded_in_target" yaml:"variance_encoded_in_target"`
	RegressSize             bool     `json:"regress_size"               yaml:"regress_size"`
	RegressAngle            bool     `json:"regress_angle"              yaml:"regress_angle"`
	PriorWidth              float32  `json:"prior_width"                yaml:"prior_width"`
	PriorHeight             float32  `json:"prior_height"               yaml:"prior_height"`
	ConfidenceThreshold     float32  `json:"confidence_threshold"       yaml:"confidence_threshold"`
	NMSThreshold            float32  `json:"nms_threshold"              yaml:"nms_threshold"`
	Eta                     float32  `json:"eta"                        yaml:"eta"`
	TopK                    int      `json:"top_k"                      yaml:"top_k"`
	KeepTopK                int      `json:"keep_top_k"                 yaml:"keep_top_k"`
	// Workers > 1 processes the images of a batch concurrently.
	Workers int `json:"workers" yaml:"workers"`
	// NMSWorkers > 1 computes the overlaps of each kept box concurrently.
	NMSWorkers int `json:"nms_workers" yaml:"nms_workers"`
}

// DefaultParams returns params for a shared-location center-size model that
// regresses size and angle, keeps every score and applies NMS at 0.3.
func DefaultParams() Params {
	return Params{
		BackgroundLabelID:   0,
		ShareLocation:       true,
		CodeType:            CodeTypeCenterSize,
		RegressSize:         true,
		RegressAngle:        true,
		ConfidenceThreshold: postprocess.DefaultConfidenceThreshold,
		NMSThreshold:        0.3,
		Eta:                 1,
		TopK:                -1,
		KeepTopK:            -1,
		Workers:             1,
		NMSWorkers:          1,
	}
}

// Validate checks the params the way the layer setup would, failing fast on
// anything a batch could not be decoded with.
func (p Params) Validate() error {
	if p.NumClasses <= 0 {
		return errors.Wrap(ErrInvalidConfig, "must specify num_classes")
	}
	if !p.RegressSize && (p.PriorWidth <= 0 || p.PriorHeight <= 0) {
		return errors.Wrapf(ErrInvalidConfig,
			"must specify positive prior_width and prior_height when regress_size is off, got %f x %f",
			p.PriorWidth, p.PriorHeight)
	}
	switch p.CodeType {
	case CodeTypeCenterSize, CodeTypeCorner:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown code_type %q", p.CodeType)
	}
	if err := p.NMSConfig().Validate(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	return nil
}

// NumParam is the number of regression values per prior: 2 for the center,
// plus 2 for the size and 1 for the angle when those are regressed.
func (p Params) NumParam() int {
	return p.DecodeOptions().NumParam()
}

// NumLocClasses is 1 when locations are shared across classes.
func (p Params) NumLocClasses() int {
	if p.ShareLocation {
		return 1
	}
	return p.NumClasses
}

// NMSConfig returns the per-class suppression settings.
func (p Params) NMSConfig() postprocess.NMSConfig {
	return postprocess.NMSConfig{
		ConfidenceThreshold: p.ConfidenceThreshold,
		NMSThreshold:        p.NMSThreshold,
		Eta:                 p.Eta,
		TopK:                p.TopK,
		NumWorkers:          max(p.NMSWorkers, 1),
	}
}

// DecodeOptions returns the decode settings derived from the params.
func (p Params) DecodeOptions() DecodeOptions {
	return DecodeOptions{
		CodeType:                p.CodeType,
		VarianceEncodedInTarget: p.VarianceEncodedInTarget,
		RegressSize:             p.RegressSize,
		RegressAngle:            p.RegressAngle,
		PriorWidth:              p.PriorWidth,
		PriorHeight:             p.PriorHeight,
	}
}

// IsOptions marks Params as model options.
func (p Params) IsOptions() {}
