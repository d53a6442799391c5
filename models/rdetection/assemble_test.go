package rdetection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-rdetect/common"
	"github.com/nvr-ai/go-rdetect/images"
	"github.com/nvr-ai/go-rdetect/models/postprocess"
)

func TestAssemble(t *testing.T) {
	boxes := []images.RBox{
		{XCenter: 0.1, YCenter: 0.1, Width: 0.1, Height: 0.1},
		{XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.1, Angle: 0.4},
	}

	t.Run("shared locations keep selection order", func(t *testing.T) {
		p := fullParams(3)
		decoded := map[LocationKey][]images.RBox{SharedLocation(): boxes}
		selections := []postprocess.Selection{
			{Label: 2, Index: 1, Score: 0.95},
			{Label: 1, Index: 0, Score: 0.6},
		}

		result, err := Assemble(4, selections, decoded, p)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Kept)
		assert.Equal(t, []common.Detection{
			{ImageID: 4, Label: 2, Score: 0.95, Box: boxes[1]},
			{ImageID: 4, Label: 1, Score: 0.6, Box: boxes[0]},
		}, result.Detections)
	})

	t.Run("per class locations", func(t *testing.T) {
		p := fullParams(3)
		p.ShareLocation = false
		other := []images.RBox{{XCenter: 0.9}, {XCenter: 0.8}}
		decoded := map[LocationKey][]images.RBox{
			ClassLocation(1): boxes,
			ClassLocation(2): other,
		}

		result, err := Assemble(0, []postprocess.Selection{{Label: 2, Index: 1, Score: 1}}, decoded, p)
		require.NoError(t, err)
		require.Len(t, result.Detections, 1)
		assert.Equal(t, other[1], result.Detections[0].Box)
	})

	t.Run("no selections", func(t *testing.T) {
		result, err := Assemble(1, nil, map[LocationKey][]images.RBox{}, fullParams(2))
		require.NoError(t, err)
		assert.True(t, result.Empty())
		assert.Equal(t, common.NoDetections, result.Kept)
		assert.Equal(t, 1, result.ImageID)
	})

	t.Run("missing location key", func(t *testing.T) {
		p := fullParams(3)
		p.ShareLocation = false
		decoded := map[LocationKey][]images.RBox{ClassLocation(1): boxes}

		_, err := Assemble(0, []postprocess.Selection{{Label: 2, Index: 0}}, decoded, p)
		assert.ErrorIs(t, err, ErrMissingData)
	})

	t.Run("index out of range", func(t *testing.T) {
		decoded := map[LocationKey][]images.RBox{SharedLocation(): boxes}
		_, err := Assemble(0, []postprocess.Selection{{Label: 1, Index: 2}}, decoded, fullParams(2))
		assert.ErrorIs(t, err, ErrMissingData)
	})
}
