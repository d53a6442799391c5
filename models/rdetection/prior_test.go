package rdetection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-rdetect/images"
)

func TestGetPriorRBoxes(t *testing.T) {
	boxes := []images.RBox{
		{XCenter: 0.1, YCenter: 0.2, Width: 0.3, Height: 0.4, Angle: 0.5},
		{XCenter: 0.6, YCenter: 0.7, Width: 0.8, Height: 0.9, Angle: -0.5},
	}

	t.Run("size and angle", func(t *testing.T) {
		p := fullParams(2)
		priors, err := GetPriorRBoxes(packPriors(boxes, p), 2, p)
		require.NoError(t, err)
		require.Len(t, priors, 2)
		assert.Equal(t, boxes[0], priors[0].Box)
		assert.Equal(t, boxes[1], priors[1].Box)
		assert.Equal(t, testVariance, priors[1].Variance)
	})

	t.Run("size only", func(t *testing.T) {
		p := fullParams(2)
		p.RegressAngle = false
		data := packPriors(boxes, p)
		require.Len(t, data, 16)

		priors, err := GetPriorRBoxes(data, 2, p)
		require.NoError(t, err)
		assert.Equal(t, images.RBox{XCenter: 0.6, YCenter: 0.7, Width: 0.8, Height: 0.9}, priors[1].Box)
		assert.Equal(t, testVariance[:4], priors[1].Variance)
	})

	t.Run("fixed size with angle", func(t *testing.T) {
		p := fullParams(2)
		p.RegressSize = false
		p.PriorWidth, p.PriorHeight = 0.25, 0.125
		data := packPriors(boxes, p)
		require.Len(t, data, 12)

		priors, err := GetPriorRBoxes(data, 2, p)
		require.NoError(t, err)
		assert.Equal(t, images.RBox{XCenter: 0.1, YCenter: 0.2, Width: 0.25, Height: 0.125, Angle: 0.5}, priors[0].Box)
		assert.Equal(t, []float32{0.1, 0.1, 0.1}, priors[0].Variance)
	})

	t.Run("center only", func(t *testing.T) {
		p := fullParams(2)
		p.RegressSize, p.RegressAngle = false, false
		p.PriorWidth, p.PriorHeight = 0.25, 0.125

		priors, err := GetPriorRBoxes(packPriors(boxes, p), 2, p)
		require.NoError(t, err)
		assert.Equal(t, images.RBox{XCenter: 0.6, YCenter: 0.7, Width: 0.25, Height: 0.125}, priors[1].Box)
	})

	t.Run("variance is copied", func(t *testing.T) {
		p := fullParams(2)
		data := packPriors(boxes, p)
		priors, err := GetPriorRBoxes(data, 2, p)
		require.NoError(t, err)

		data[len(data)-1] = 42
		assert.Equal(t, float32(0.1), priors[1].Variance[4])
	})

	t.Run("length mismatch", func(t *testing.T) {
		p := fullParams(2)
		_, err := GetPriorRBoxes(packPriors(boxes, p), 3, p)
		assert.ErrorIs(t, err, ErrShapeMismatch)

		_, err = GetPriorRBoxes(packPriors(boxes, p)[1:], 2, p)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})
}

func TestNumPriors(t *testing.T) {
	p := fullParams(2)

	n, err := NumPriors(30, p)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = NumPriors(0, p)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = NumPriors(31, p)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
