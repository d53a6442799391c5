package rdetection

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-rdetect/images"
)

// Prior is a reference box and the variances used to rescale the offsets
// regressed against it.
type Prior struct {
	Box      images.RBox
	Variance []float32
}

// NumPriors derives the prior count from the packed prior buffer, which
// holds num_priors*num_param prior values followed by as many variances.
func NumPriors(priorLen int, p Params) (int, error) {
	stride := 2 * p.NumParam()
	if priorLen == 0 || priorLen%stride != 0 {
		return 0, errors.Wrapf(ErrShapeMismatch,
			"prior buffer of %d floats is not a multiple of 2*num_param (%d)", priorLen, stride)
	}
	return priorLen / stride, nil
}

// holdsImages reports whether a buffer of bufLen floats is exactly numImages
// rows of perImage floats. It divides instead of multiplying so that a huge
// image count cannot wrap around to a matching length.
func holdsImages(bufLen, numImages, perImage int) bool {
	if numImages < 0 || perImage <= 0 {
		return false
	}
	return bufLen%perImage == 0 && bufLen/perImage == numImages
}

// GetPriorRBoxes unpacks the prior buffer into numPriors priors.
//
// Each entry is laid out as [xcenter, ycenter, (width, height), (angle)],
// with the optional fields present only when size or angle regression is on.
// Without size regression every prior takes the configured prior_width and
// prior_height; without angle regression every prior is axis-aligned.
//
// Arguments:
//   - priorData: Prior entries followed by variance entries.
//   - numPriors: Declared number of priors.
//   - p: Layer params.
//
// Returns:
//   - []Prior: One prior per entry, in buffer order.
//   - error: ErrShapeMismatch when the buffer length disagrees with numPriors.
func GetPriorRBoxes(priorData []float32, numPriors int, p Params) ([]Prior, error) {
	numParam := p.NumParam()
	if numPriors < 0 || len(priorData) != 2*numPriors*numParam {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"prior buffer has %d floats, want 2*%d priors*%d params", len(priorData), numPriors, numParam)
	}

	variances := priorData[numPriors*numParam:]
	priors := make([]Prior, numPriors)
	for i := range priors {
		entry := priorData[i*numParam : (i+1)*numParam]
		box := images.RBox{
			XCenter: entry[0],
			YCenter: entry[1],
			Width:   p.PriorWidth,
			Height:  p.PriorHeight,
		}
		k := 2
		if p.RegressSize {
			box.Width, box.Height = entry[2], entry[3]
			k = 4
		}
		if p.RegressAngle {
			box.Angle = entry[k]
		}

		variance := make([]float32, numParam)
		copy(variance, variances[i*numParam:(i+1)*numParam])
		priors[i] = Prior{Box: box, Variance: variance}
	}
	return priors, nil
}
