// Package model - Definitions shared by every detection-output model.
package model

import (
	"github.com/nvr-ai/go-rdetect/common"
)

// Family is the family of models.
type Family string

const (
	// ModelFamilyRotated covers detectors that regress rotated boxes.
	ModelFamilyRotated Family = "rotated"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameRDetection is the rotated-box SSD-style detection output.
	ModelNameRDetection Name = "rdetection"
)

// BaseModel describes a model instance.
type BaseModel struct {
	Name   Name
	Family Family
}

// Options is a marker interface for model-specific options.
type Options interface {
	IsOptions()
}

// Model turns the raw output buffers of a batch into detections.
type Model interface {
	Options() BaseModel
	PostProcess(batch common.Batch) (*common.Output, error)
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	Name    Name    `json:"name"    yaml:"name"`
	Family  Family  `json:"family"  yaml:"family"`
	Options Options `json:"options" yaml:"options"`
}
