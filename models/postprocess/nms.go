// Package postprocess - provides rotated Non-Maximum Suppression and the
// cross-class top-k selection applied to detection results.
package postprocess

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-rdetect/images"
)

// ErrInvalidNMSConfig is returned for thresholds outside their valid range.
var ErrInvalidNMSConfig = errors.New("invalid nms config")

// DefaultConfidenceThreshold accepts every score.
const DefaultConfidenceThreshold float32 = -math32.MaxFloat32

// NMSConfig defines parameters for rotated Non-Maximum Suppression.
type NMSConfig struct {
	// ConfidenceThreshold drops scores strictly below it.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// NMSThreshold is the overlap above which a candidate is suppressed.
	NMSThreshold float32 `json:"nms_threshold" yaml:"nms_threshold"`
	// Eta decays NMSThreshold after each keep; 1 disables the decay.
	Eta float32 `json:"eta" yaml:"eta"`
	// TopK bounds the candidates considered per class; -1 = all.
	TopK int `json:"top_k" yaml:"top_k"`
	// NumWorkers is the number of goroutines for overlap computation.
	NumWorkers int `json:"num_workers" yaml:"num_workers"`
}

// DefaultNMSConfig returns a config that keeps every score and applies plain
// greedy NMS at 0.3.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		NMSThreshold:        0.3,
		Eta:                 1,
		TopK:                -1,
		NumWorkers:          1,
	}
}

// Validate checks the threshold ranges. NaN is outside every range.
func (c NMSConfig) Validate() error {
	if !(c.NMSThreshold >= 0) {
		return errors.Wrapf(ErrInvalidNMSConfig, "nms_threshold must be non negative, got %f", c.NMSThreshold)
	}
	if !(c.Eta > 0 && c.Eta <= 1) {
		return errors.Wrapf(ErrInvalidNMSConfig, "eta must be in (0, 1], got %f", c.Eta)
	}
	return nil
}

// ScoreIndex pairs a candidate index with its score.
type ScoreIndex struct {
	Score float32
	Index int
}

// TopCandidates returns the indices whose score is at least threshold, sorted
// by descending score with ties broken by ascending index. When topK >= 0
// the list is truncated to its first topK entries.
func TopCandidates(scores []float32, threshold float32, topK int) []ScoreIndex {
	candidates := make([]ScoreIndex, 0, len(scores))
	for i, s := range scores {
		if s >= threshold {
			candidates = append(candidates, ScoreIndex{Score: s, Index: i})
		}
	}

	// Indices are appended in ascending order, so a stable sort keeps ties
	// ordered by index.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if topK >= 0 && topK < len(candidates) {
		candidates = candidates[:topK]
	}
	return candidates
}

// ApplyRotatedNMS runs greedy Non-Maximum Suppression over rotated boxes.
//
// Candidates are visited in descending score order. Each visited candidate
// that survives is kept and suppresses every later candidate whose overlap
// with it exceeds the current adaptive threshold. The adaptive threshold
// starts at config.NMSThreshold and is multiplied by config.Eta after each
// keep when Eta < 1.
//
// Arguments:
//   - boxes: Decoded boxes, one per prior.
//   - scores: Scores for the same priors.
//   - config: NMS configuration.
//
// Returns:
//   - []int: The kept indices in the order they were kept.
//   - error: ErrInvalidNMSConfig, or a length mismatch between boxes and scores.
//
// @example
// boxes := []images.RBox{{XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.2}, {XCenter: 0.51, YCenter: 0.5, Width: 0.2, Height: 0.2}}
// kept, _ := ApplyRotatedNMS(boxes, []float32{0.9, 0.8}, DefaultNMSConfig()) // [0]
func ApplyRotatedNMS(boxes []images.RBox, scores []float32, config NMSConfig) ([]int, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(boxes) != len(scores) {
		return nil, errors.Errorf("got %d boxes but %d scores", len(boxes), len(scores))
	}

	candidates := TopCandidates(scores, config.ConfidenceThreshold, config.TopK)
	n := len(candidates)
	if n == 0 {
		return []int{}, nil
	}

	kept := make([]int, 0, n)
	used := make([]bool, n)
	overlaps := make([]float32, n)
	adaptiveThreshold := config.NMSThreshold

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := boxes[candidates[i].Index]
		kept = append(kept, candidates[i].Index)
		used[i] = true

		// Each partition owns its own slice of overlaps, so the workers
		// need no synchronization beyond the join in images.Parallel.
		rest := n - i - 1
		images.Parallel(rest, config.NumWorkers, func(start, end int) {
			for k := start; k < end; k++ {
				j := i + 1 + k
				if used[j] {
					continue
				}
				overlaps[j] = images.Overlap(anchor, boxes[candidates[j].Index])
			}
		})

		for j := i + 1; j < n; j++ {
			if !used[j] && overlaps[j] > adaptiveThreshold {
				used[j] = true
			}
		}

		if config.Eta < 1 {
			adaptiveThreshold *= config.Eta
		}
	}

	return kept, nil
}
