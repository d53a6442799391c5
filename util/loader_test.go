package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-rdetect/common"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadBatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	writeFile(t, path, `{"num_images": 1, "loc": [0, 0], "conf": [0.1, 0.9], "prior": [0.5, 0.5, 0.1, 0.1]}`)

	batch, err := LoadBatchFile(path)
	require.NoError(t, err)
	assert.Equal(t, common.Batch{
		NumImages: 1,
		Loc:       []float32{0, 0},
		Conf:      []float32{0.1, 0.9},
		Prior:     []float32{0.5, 0.5, 0.1, 0.1},
	}, batch)
}

func TestLoadBatchFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadBatchFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(dir, "bad.json")
	writeFile(t, path, `{"num_images": "one"}`)
	_, err = LoadBatchFile(path)
	assert.Error(t, err)
}

func TestLoadDirectoryBatchFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "frame-10.json"), `{"num_images": 10}`)
	writeFile(t, filepath.Join(dir, "frame-2.json"), `{"num_images": 2}`)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "frame-3.json"), 0o755))

	batches, err := LoadDirectoryBatchFiles(dir)
	require.NoError(t, err)
	require.Len(t, batches, 2)

	assert.Equal(t, 2, batches[0].Frame)
	assert.Equal(t, 2, batches[0].Batch.NumImages)
	assert.Equal(t, 10, batches[1].Frame)
	assert.Equal(t, filepath.Join(dir, "frame-10.json"), batches[1].Path)
}

func TestLoadDirectoryBatchFiles_BadName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "batch.json"), `{}`)

	_, err := LoadDirectoryBatchFiles(dir)
	assert.Error(t, err)
}
