package detectors

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-rdetect/common"
	"github.com/nvr-ai/go-rdetect/models/rdetection"
)

// float32Data returns the backing data of a float32 tensor in row-major
// order, materializing views first.
func float32Data(name string, t tensor.Tensor) ([]float32, error) {
	if t == nil {
		return nil, errors.Wrapf(rdetection.ErrShapeMismatch, "%s tensor is nil", name)
	}
	if t.Dtype() != tensor.Float32 {
		return nil, errors.Wrapf(rdetection.ErrShapeMismatch, "%s tensor has dtype %v, want float32", name, t.Dtype())
	}
	if dense, ok := t.(*tensor.Dense); ok && dense.IsMaterializable() {
		t = dense.Materialize()
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Wrapf(rdetection.ErrShapeMismatch, "%s tensor of shape %v has no float32 backing slice", name, t.Shape())
	}
	if len(data) != t.Shape().TotalSize() {
		return nil, errors.Wrapf(rdetection.ErrShapeMismatch,
			"%s tensor holds %d values for shape %v", name, len(data), t.Shape())
	}
	return data, nil
}

// BatchFromTensors flattens detector output tensors into a batch.
//
// loc and conf carry the image count in their leading dimension, shaped
// [N, P*L*K] and [N, P*C] or any shape with the same trailing volume. The
// prior tensor is typically [1, 2, P*K]; only its total size matters.
//
// Arguments:
//   - loc: Location predictions.
//   - conf: Confidence predictions.
//   - prior: Prior entries followed by variances.
//
// Returns:
//   - common.Batch: Buffers sharing the tensors' backing data.
//   - error: ErrShapeMismatch for non-float32 tensors or disagreeing image counts.
func BatchFromTensors(loc, conf, prior tensor.Tensor) (common.Batch, error) {
	locData, err := float32Data("location", loc)
	if err != nil {
		return common.Batch{}, err
	}
	confData, err := float32Data("confidence", conf)
	if err != nil {
		return common.Batch{}, err
	}
	priorData, err := float32Data("prior", prior)
	if err != nil {
		return common.Batch{}, err
	}

	if loc.Dims() == 0 || conf.Dims() == 0 {
		return common.Batch{}, errors.Wrap(rdetection.ErrShapeMismatch, "location and confidence tensors need a batch dimension")
	}
	numImages := loc.Shape()[0]
	if conf.Shape()[0] != numImages {
		return common.Batch{}, errors.Wrapf(rdetection.ErrShapeMismatch,
			"location tensor has %d images but confidence tensor has %d", numImages, conf.Shape()[0])
	}

	return common.Batch{
		NumImages: numImages,
		Loc:       locData,
		Conf:      confData,
		Prior:     priorData,
	}, nil
}
