package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-rdetect/common"
	"github.com/nvr-ai/go-rdetect/images"
)

func TestDetectionFileName(t *testing.T) {
	assert.Equal(t, "out_1.txt", DetectionFileName("out_", 1))
	assert.Equal(t, "12.txt", DetectionFileName("", 12))
}

func TestWriteDetections(t *testing.T) {
	dir := t.TempDir()
	r := common.NewImageResult(0, []common.Detection{
		{Label: 2, Score: 0.9, Box: images.RBox{XCenter: 0.5, YCenter: 0.25, Width: 0.1, Height: 0.2, Angle: 0.3}},
		{Label: 1, Score: 0.4, Box: images.RBox{XCenter: 1, YCenter: 0.5, Width: 0.5, Height: 0.25, Angle: -1}},
	})

	path, err := WriteDetections(dir, "det1.txt", 300, r)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "det1.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "150 75 30 60 2 0.3\n300 150 150 75 1 -1\n", string(data))
}

func TestWriteDetections_EmptyImage(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteDetections(dir, "det2.txt", 300, common.NewImageResult(0, nil))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWriteDetections_MissingDirectory(t *testing.T) {
	_, err := WriteDetections(filepath.Join(t.TempDir(), "missing"), "det.txt", 300, common.ImageResult{})
	assert.Error(t, err)
}
