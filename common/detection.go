// Package common - Detection records shared by the post-processing stages.
package common

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nvr-ai/go-rdetect/images"
)

// NoDetections marks an image (or a whole batch) that was processed but kept
// nothing. It is distinct from the zero value, which means "not processed".
const NoDetections = -1

// RowSize is the number of columns in a detection row.
const RowSize = 8

// Detection is a single kept rotated box with its class and confidence.
type Detection struct {
	ImageID int         `json:"image_id"`
	Label   int         `json:"label"`
	Score   float32     `json:"score"`
	Box     images.RBox `json:"rbox"`
}

func (d Detection) String() string {
	return fmt.Sprintf("Object %d (confidence %f) in image %d: %s",
		d.Label, d.Score, d.ImageID, d.Box)
}

// Row flattens the detection into
// [image_id, label, score, xcenter, ycenter, angle, width, height].
func (d Detection) Row() []float32 {
	return []float32{
		float32(d.ImageID),
		float32(d.Label),
		d.Score,
		d.Box.XCenter,
		d.Box.YCenter,
		d.Box.Angle,
		d.Box.Width,
		d.Box.Height,
	}
}

// Line formats the detection as "xcenter ycenter width height label angle"
// with the coordinates multiplied by scale. The angle is written unscaled.
//
// @example
// d := Detection{Label: 2, Box: images.RBox{XCenter: 0.5, YCenter: 0.25, Width: 0.1, Height: 0.2, Angle: 0.3}}
// d.Line(300) // "150 75 30 60 2 0.3"
func (d Detection) Line(scale float32) string {
	return fmt.Sprintf("%g %g %g %g %d %g",
		d.Box.XCenter*scale, d.Box.YCenter*scale,
		d.Box.Width*scale, d.Box.Height*scale,
		d.Label, d.Box.Angle)
}

// ImageResult is the ordered list of detections kept for one image. Kept is
// len(Detections), or NoDetections when nothing survived.
type ImageResult struct {
	ImageID    int         `json:"image_id"`
	Kept       int         `json:"kept"`
	Detections []Detection `json:"detections"`
}

// NewImageResult wraps detections, marking an empty list with NoDetections.
func NewImageResult(imageID int, detections []Detection) ImageResult {
	kept := len(detections)
	if kept == 0 {
		kept = NoDetections
		detections = nil
	}
	return ImageResult{ImageID: imageID, Kept: kept, Detections: detections}
}

// Empty reports whether the image was processed and kept nothing.
func (r ImageResult) Empty() bool {
	return r.Kept == NoDetections
}

// Output is the result of one batch pass.
type Output struct {
	RunID   uuid.UUID     `json:"run_id"`
	Images  []ImageResult `json:"images"`
	NumKept int           `json:"num_kept"`
}

// NewOutput gathers per-image results in image order.
func NewOutput(results []ImageResult) *Output {
	out := &Output{RunID: uuid.New(), Images: results}
	for _, r := range results {
		out.NumKept += len(r.Detections)
	}
	return out
}

// Empty reports whether the whole batch kept nothing.
func (o *Output) Empty() bool {
	return o.NumKept == 0
}

// Detections returns every kept detection in output order.
func (o *Output) Detections() []Detection {
	detections := make([]Detection, 0, o.NumKept)
	for _, r := range o.Images {
		detections = append(detections, r.Detections...)
	}
	return detections
}

// Rows returns one RowSize row per detection, or the single row {-1} when
// the batch kept nothing.
func (o *Output) Rows() [][]float32 {
	if o.Empty() {
		return [][]float32{{NoDetections}}
	}
	rows := make([][]float32, 0, o.NumKept)
	for _, d := range o.Detections() {
		rows = append(rows, d.Row())
	}
	return rows
}
