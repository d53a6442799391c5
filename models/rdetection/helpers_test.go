package rdetection

import (
	"math/rand"

	"github.com/nvr-ai/go-rdetect/common"
	"github.com/nvr-ai/go-rdetect/images"
)

// fullParams regresses size and angle with shared locations.
func fullParams(numClasses int) Params {
	p := DefaultParams()
	p.NumClasses = numClasses
	return p
}

var testVariance = []float32{0.1, 0.1, 0.2, 0.2, 0.1}

// packPriors lays boxes out as the prior buffer expected under p.
func packPriors(boxes []images.RBox, p Params) []float32 {
	numParam := p.NumParam()
	data := make([]float32, 0, 2*len(boxes)*numParam)
	for _, b := range boxes {
		data = append(data, b.XCenter, b.YCenter)
		if p.RegressSize {
			data = append(data, b.Width, b.Height)
		}
		if p.RegressAngle {
			data = append(data, b.Angle)
		}
	}
	for range boxes {
		variance := testVariance[:2]
		if p.RegressSize {
			variance = testVariance[:4]
		}
		data = append(data, variance...)
		if p.RegressAngle {
			data = append(data, testVariance[4])
		}
	}
	return data
}

// zeroLocBatch builds a batch whose offsets are all zero, so every decoded
// box equals its prior. conf holds numImages x numPriors x numClasses scores.
func zeroLocBatch(priors []images.RBox, conf []float32, numImages int, p Params) common.Batch {
	return common.Batch{
		NumImages: numImages,
		Loc:       make([]float32, numImages*len(priors)*p.NumLocClasses()*p.NumParam()),
		Conf:      conf,
		Prior:     packPriors(priors, p),
	}
}

// randomBatch builds a reproducible batch with clustered boxes and plenty of
// score ties.
func randomBatch(seed int64, numImages, numPriors int, p Params) common.Batch {
	rng := rand.New(rand.NewSource(seed))
	priors := make([]images.RBox, numPriors)
	for i := range priors {
		priors[i] = images.RBox{
			XCenter: 0.2 + 0.6*rng.Float32(),
			YCenter: 0.2 + 0.6*rng.Float32(),
			Width:   0.05 + 0.2*rng.Float32(),
			Height:  0.05 + 0.2*rng.Float32(),
			Angle:   rng.Float32(),
		}
	}
	loc := make([]float32, numImages*numPriors*p.NumLocClasses()*p.NumParam())
	for i := range loc {
		loc[i] = rng.Float32() - 0.5
	}
	conf := make([]float32, numImages*numPriors*p.NumClasses)
	for i := range conf {
		conf[i] = float32(rng.Intn(10)) / 10
	}
	return common.Batch{NumImages: numImages, Loc: loc, Conf: conf, Prior: packPriors(priors, p)}
}
