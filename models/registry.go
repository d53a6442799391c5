// Package models - registry for models.
package models

import (
	"fmt"

	"github.com/nvr-ai/go-rdetect/models/model"
	"github.com/nvr-ai/go-rdetect/models/rdetection"
)

// NewModel creates a detection output model based on the specified name.
//
// Arguments:
//   - args: The model name and its model-specific options.
//   - opts: Options applied to rotated-box models.
//
// Returns:
//   - model.Model: A model implementing the Model interface.
//   - error: An error if the name is unsupported or the options are invalid.
//
// Example:
//
// ```go
//
//	params := rdetection.DefaultParams()
//	params.NumClasses = 2
//	m, err := NewModel(model.NewModelArgs{Name: model.ModelNameRDetection, Options: params})
//	if err != nil {
//	    log.Fatalf("Failed to create detection model: %v", err)
//	}
//
// ```
func NewModel(args model.NewModelArgs, opts ...rdetection.Option) (model.Model, error) {
	switch args.Name {
	case model.ModelNameRDetection:
		params, ok := args.Options.(rdetection.Params)
		if !ok {
			return nil, fmt.Errorf("model %s needs rdetection.Params options, got %T", args.Name, args.Options)
		}
		m, err := rdetection.NewModel(params, opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported model name: %s", args.Name)
	}
}
