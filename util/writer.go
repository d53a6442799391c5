package util

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-rdetect/common"
)

// DetectionFileName returns the name of the n-th detection file.
func DetectionFileName(prefix string, n int) string {
	return prefix + strconv.Itoa(n) + ".txt"
}

// WriteDetections writes one line per detection of r to dir/name,
// truncating any existing file. An image without detections produces an
// empty file.
//
// Arguments:
// - dir: Output directory; it must already exist.
// - name: File name within dir.
// - scale: Multiplier applied to the box coordinates.
// - r: The detections of one image.
//
// Returns:
// - string: The path written.
// - error: Error if the file cannot be written.
func WriteDetections(dir, name string, scale float32, r common.ImageResult) (string, error) {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "creating detection file")
	}

	w := bufio.NewWriter(f)
	for _, d := range r.Detections {
		if _, err := w.WriteString(d.Line(scale) + "\n"); err != nil {
			f.Close()
			return "", errors.Wrapf(err, "writing %s", path)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return "", errors.Wrapf(err, "writing %s", path)
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "closing %s", path)
	}
	return path, nil
}
