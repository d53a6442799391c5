package rdetection

import (
	"github.com/pkg/errors"
)

// imageConfidenceScores transposes one image's confidence buffer, laid out as
// conf[prior*num_classes + c], into a score vector per class indexed by
// prior. Scores are passed through untouched.
func imageConfidenceScores(conf []float32, numPriors, numClasses int) (map[int][]float32, error) {
	if len(conf) != numPriors*numClasses {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"confidence buffer has %d floats, want %d priors*%d classes", len(conf), numPriors, numClasses)
	}

	scores := make(map[int][]float32, numClasses)
	for c := 0; c < numClasses; c++ {
		classScores := make([]float32, numPriors)
		for prior := range classScores {
			classScores[prior] = conf[prior*numClasses+c]
		}
		scores[c] = classScores
	}
	return scores, nil
}

// GetConfidenceScores splits the batch confidence buffer into per-image,
// per-class score vectors, using the same prior indexing as the decoded
// boxes.
//
// Arguments:
//   - conf: numImages x (numPriors*numClasses) scores.
//   - numImages: Images in the batch.
//   - numPriors: Priors per image.
//   - numClasses: Classes including background.
//
// Returns:
//   - []map[int][]float32: Per image, the scores of each class by prior.
//   - error: ErrShapeMismatch when the buffer length is inconsistent.
func GetConfidenceScores(conf []float32, numImages, numPriors, numClasses int) ([]map[int][]float32, error) {
	perImage := numPriors * numClasses
	if !holdsImages(len(conf), numImages, perImage) {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"confidence buffer has %d floats, want %d images*%d", len(conf), numImages, perImage)
	}

	all := make([]map[int][]float32, numImages)
	for i := range all {
		scores, err := imageConfidenceScores(conf[i*perImage:(i+1)*perImage], numPriors, numClasses)
		if err != nil {
			return nil, errors.Wrapf(err, "image %d", i)
		}
		all[i] = scores
	}
	return all, nil
}
