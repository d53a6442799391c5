package rdetection

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-rdetect/images"
)

// LocationKey says which location predictions a class decodes from: the
// shared set, or the set belonging to one class label.
type LocationKey struct {
	shared bool
	label  int
}

// SharedLocation is the key of predictions shared by all classes.
func SharedLocation() LocationKey {
	return LocationKey{shared: true}
}

// ClassLocation is the key of predictions owned by one class.
func ClassLocation(label int) LocationKey {
	return LocationKey{label: label}
}

// Shared reports whether k is the shared key.
func (k LocationKey) Shared() bool {
	return k.shared
}

// Label returns the class label of a per-class key.
func (k LocationKey) Label() (int, bool) {
	return k.label, !k.shared
}

func (k LocationKey) String() string {
	if k.shared {
		return "shared"
	}
	return fmt.Sprintf("class %d", k.label)
}

// LocationKeyFor returns the key class label decodes from under p.
func (p Params) LocationKeyFor(label int) LocationKey {
	if p.ShareLocation {
		return SharedLocation()
	}
	return ClassLocation(label)
}

// DecodeOptions pins the decode formula.
type DecodeOptions struct {
	CodeType                CodeType
	VarianceEncodedInTarget bool
	RegressSize             bool
	RegressAngle            bool
	PriorWidth              float32
	PriorHeight             float32
	// Clip clamps the decoded center and size into [0, 1].
	Clip bool
}

// NumParam is the number of offsets each prior is decoded from.
func (o DecodeOptions) NumParam() int {
	n := 2
	if o.RegressSize {
		n += 2
	}
	if o.RegressAngle {
		n++
	}
	return n
}

// DecodeRBox applies the box regression decode formula to one prior.
//
// With v the variance (all ones when the variance is encoded in the target)
// and o the offsets [x, y, (w, h), (a)]:
//
//	center_size: xc = p.xc + v0*o0*p.w   yc = p.yc + v1*o1*p.h
//	             w  = p.w*exp(v2*o2)     h  = p.h*exp(v3*o3)
//	corner:      xc = p.xc + v0*o0       yc = p.yc + v1*o1
//	             w  = p.w + v2*o2        h  = p.h + v3*o3
//	both:        a  = p.a + v4*o4
//
// Without size regression w and h are the configured prior size; without
// angle regression the angle is 0. Sizes are clamped at 0.
//
// variance and offset must each hold at least opts.NumParam() values;
// shorter slices panic. DecodeRBoxes checks both lengths and returns
// ErrShapeMismatch instead.
//
// Arguments:
//   - prior: Reference box.
//   - variance: Per-parameter variance, at least num_param values.
//   - offset: Raw regression values, at least num_param values.
//   - opts: Decode settings.
//
// Returns:
//   - images.RBox: The decoded box in normalized coordinates.
//
// @example
// prior := images.RBox{XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.1}
// opts := DecodeOptions{CodeType: CodeTypeCenterSize, RegressSize: true}
// box := DecodeRBox(prior, []float32{0.1, 0.1, 0.2, 0.2}, []float32{1, 0, 0, 0}, opts) // XCenter 0.52
func DecodeRBox(prior images.RBox, variance, offset []float32, opts DecodeOptions) images.RBox {
	v := func(i int) float32 {
		if opts.VarianceEncodedInTarget {
			return 1
		}
		return variance[i]
	}

	width, height := prior.Width, prior.Height
	if !opts.RegressSize {
		width, height = opts.PriorWidth, opts.PriorHeight
	}

	var box images.RBox
	switch opts.CodeType {
	case CodeTypeCorner:
		box.XCenter = prior.XCenter + v(0)*offset[0]
		box.YCenter = prior.YCenter + v(1)*offset[1]
	default:
		box.XCenter = prior.XCenter + v(0)*offset[0]*width
		box.YCenter = prior.YCenter + v(1)*offset[1]*height
	}

	k := 2
	box.Width, box.Height = width, height
	if opts.RegressSize {
		switch opts.CodeType {
		case CodeTypeCorner:
			box.Width = width + v(2)*offset[2]
			box.Height = height + v(3)*offset[3]
		default:
			box.Width = width * math32.Exp(v(2)*offset[2])
			box.Height = height * math32.Exp(v(3)*offset[3])
		}
		k = 4
	}
	if opts.RegressAngle {
		box.Angle = prior.Angle + v(k)*offset[k]
	}

	box.Width = math32.Max(box.Width, 0)
	box.Height = math32.Max(box.Height, 0)
	if opts.Clip {
		box.XCenter = clamp01(box.XCenter)
		box.YCenter = clamp01(box.YCenter)
		box.Width = clamp01(box.Width)
		box.Height = clamp01(box.Height)
	}
	return box
}

func clamp01(x float32) float32 {
	return math32.Min(math32.Max(x, 0), 1)
}

// DecodeRBoxes decodes one set of offsets against every prior. offsets holds
// num_priors*num_param values in prior order; the output index i always
// corresponds to prior i.
func DecodeRBoxes(priors []Prior, offsets []float32, opts DecodeOptions) ([]images.RBox, error) {
	numParam := opts.NumParam()
	if len(offsets) != len(priors)*numParam {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"%d offsets do not cover %d priors", len(offsets), len(priors))
	}

	boxes := make([]images.RBox, len(priors))
	for i, prior := range priors {
		if len(prior.Variance) < numParam {
			return nil, errors.Wrapf(ErrShapeMismatch,
				"prior %d has %d variances, want %d", i, len(prior.Variance), numParam)
		}
		boxes[i] = DecodeRBox(prior.Box, prior.Variance, offsets[i*numParam:(i+1)*numParam], opts)
	}
	return boxes, nil
}

// LocPredictions maps a location key to its offsets, num_priors*num_param
// values in prior order.
type LocPredictions map[LocationKey][]float32

// imageLocPredictions de-interleaves one image's location buffer, laid out
// as loc[(prior*num_loc_classes + c)*num_param + k].
func imageLocPredictions(loc []float32, numPriors int, p Params) (LocPredictions, error) {
	numLocClasses, numParam := p.NumLocClasses(), p.NumParam()
	if len(loc) != numPriors*numLocClasses*numParam {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"location buffer has %d floats, want %d priors*%d classes*%d params",
			len(loc), numPriors, numLocClasses, numParam)
	}

	preds := make(LocPredictions, numLocClasses)
	for c := 0; c < numLocClasses; c++ {
		key := p.LocationKeyFor(c)
		offsets := make([]float32, numPriors*numParam)
		for prior := 0; prior < numPriors; prior++ {
			start := (prior*numLocClasses + c) * numParam
			copy(offsets[prior*numParam:(prior+1)*numParam], loc[start:start+numParam])
		}
		preds[key] = offsets
	}
	return preds, nil
}

// GetLocPredictions splits the batch location buffer into per-image
// predictions keyed by location key.
func GetLocPredictions(loc []float32, numImages, numPriors int, p Params) ([]LocPredictions, error) {
	perImage := numPriors * p.NumLocClasses() * p.NumParam()
	if !holdsImages(len(loc), numImages, perImage) {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"location buffer has %d floats, want %d images*%d", len(loc), numImages, perImage)
	}

	all := make([]LocPredictions, numImages)
	for i := range all {
		preds, err := imageLocPredictions(loc[i*perImage:(i+1)*perImage], numPriors, p)
		if err != nil {
			return nil, errors.Wrapf(err, "image %d", i)
		}
		all[i] = preds
	}
	return all, nil
}

// decodeImage decodes every location key of one image. In per-class mode
// the background class is skipped since it is never reported.
func decodeImage(preds LocPredictions, priors []Prior, p Params) (map[LocationKey][]images.RBox, error) {
	opts := p.DecodeOptions()
	decoded := make(map[LocationKey][]images.RBox, len(preds))
	for key, offsets := range preds {
		if label, ok := key.Label(); ok && label == p.BackgroundLabelID {
			continue
		}
		boxes, err := DecodeRBoxes(priors, offsets, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s", key)
		}
		decoded[key] = boxes
	}
	return decoded, nil
}

// DecodeRBoxesAll decodes the location predictions of every image against
// the shared priors.
func DecodeRBoxesAll(all []LocPredictions, priors []Prior, p Params) ([]map[LocationKey][]images.RBox, error) {
	decoded := make([]map[LocationKey][]images.RBox, len(all))
	for i, preds := range all {
		boxes, err := decodeImage(preds, priors, p)
		if err != nil {
			return nil, errors.Wrapf(err, "image %d", i)
		}
		decoded[i] = boxes
	}
	return decoded, nil
}
