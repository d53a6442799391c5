// Package util - Loading raw detector batches and saving detection files.
package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-rdetect/common"
)

// BatchFile is a batch loaded from disk.
type BatchFile struct {
	// Path is the path to the batch file.
	Path string
	// Batch is the decoded detector output.
	Batch common.Batch
	// Frame is the frame number parsed from the file name.
	Frame int
}

// LoadBatchFile reads one JSON batch file.
//
// Arguments:
// - path: Path to a file holding a common.Batch as JSON.
//
// Returns:
// - common.Batch: The decoded batch.
// - error: Error if reading or decoding fails.
func LoadBatchFile(path string) (common.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return common.Batch{}, err
	}
	var batch common.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return common.Batch{}, errors.Wrapf(err, "decoding %s", path)
	}
	return batch, nil
}

// LoadDirectoryBatchFiles reads every frame-<n>.json batch in a directory,
// ordered by frame number.
//
// Arguments:
// - dir: Directory path containing batch files.
//
// Returns:
// - []BatchFile: The batches, in frame order.
// - error: Error if loading fails.
func LoadDirectoryBatchFiles(dir string) ([]BatchFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var batches []BatchFile
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		frame, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(file.Name(), "frame-"), ".json"))
		if err != nil {
			return nil, errors.Wrapf(err, "batch file %s is not named frame-<n>.json", file.Name())
		}
		path := filepath.Join(dir, file.Name())
		batch, err := LoadBatchFile(path)
		if err != nil {
			return nil, err
		}
		batches = append(batches, BatchFile{
			Path:  path,
			Batch: batch,
			Frame: frame,
		})
	}

	sort.Slice(batches, func(i, j int) bool {
		return batches[i].Frame < batches[j].Frame
	})

	return batches, nil
}
