package rdetection

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-rdetect/common"
	"github.com/nvr-ai/go-rdetect/images"
	"github.com/nvr-ai/go-rdetect/models/postprocess"
)

// Assemble turns the selected (label, index) pairs of one image into
// detection records, in selection order. An image without selections yields
// a result marked with common.NoDetections.
func Assemble(imageID int, selections []postprocess.Selection,
	decoded map[LocationKey][]images.RBox, p Params,
) (common.ImageResult, error) {
	detections := make([]common.Detection, 0, len(selections))
	for _, s := range selections {
		key := p.LocationKeyFor(s.Label)
		boxes, ok := decoded[key]
		if !ok {
			return common.ImageResult{}, errors.Wrapf(ErrMissingData,
				"could not find location predictions for %s", key)
		}
		if s.Index < 0 || s.Index >= len(boxes) {
			return common.ImageResult{}, errors.Wrapf(ErrMissingData,
				"%s has no box for prior %d", key, s.Index)
		}
		detections = append(detections, common.Detection{
			ImageID: imageID,
			Label:   s.Label,
			Score:   s.Score,
			Box:     boxes[s.Index],
		})
	}
	return common.NewImageResult(imageID, detections), nil
}
