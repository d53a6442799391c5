package rdetection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfidenceScores(t *testing.T) {
	// Two images, three priors, two classes: conf[prior*2 + c].
	conf := []float32{
		0.1, 0.9,
		0.2, 0.8,
		0.3, 0.7,

		0.4, 0.6,
		0.5, 0.5,
		0.6, 0.4,
	}

	scores, err := GetConfidenceScores(conf, 2, 3, 2)
	require.NoError(t, err)
	require.Len(t, scores, 2)

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, scores[0][0])
	assert.Equal(t, []float32{0.9, 0.8, 0.7}, scores[0][1])
	assert.Equal(t, []float32{0.4, 0.5, 0.6}, scores[1][0])
	assert.Equal(t, []float32{0.6, 0.5, 0.4}, scores[1][1])
}

func TestGetConfidenceScores_PassesScoresThrough(t *testing.T) {
	// Raw logits are not squashed or normalized.
	scores, err := GetConfidenceScores([]float32{-3, 7.5}, 1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{-3}, scores[0][0])
	assert.Equal(t, []float32{7.5}, scores[0][1])
}

func TestGetConfidenceScores_ShapeMismatch(t *testing.T) {
	_, err := GetConfidenceScores(make([]float32, 5), 1, 3, 2)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = GetConfidenceScores(make([]float32, 6), 2, 3, 2)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	assert.NotPanics(t, func() {
		_, err := GetConfidenceScores(nil, 1<<62, 2, 2)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})
}
