package postprocess

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrMissingScores is returned when a class has NMS survivors but no score
// vector to rank them by.
var ErrMissingScores = errors.New("missing confidence scores")

// Selection identifies one surviving detection by class and prior index.
type Selection struct {
	Label int
	Index int
	Score float32
}

// Labels returns the keys of indices in ascending order.
func Labels(indices map[int][]int) []int {
	labels := make([]int, 0, len(indices))
	for label := range indices {
		labels = append(labels, label)
	}
	sort.Ints(labels)
	return labels
}

// KeepTopK enforces a global per-image cap across classes.
//
// Survivors are first flattened in class order (ascending label, then the
// per-class NMS keep order). If their count does not exceed keepTopK, or
// keepTopK < 0, that flattened list is returned as is. Otherwise it is
// stably sorted by descending score and truncated to keepTopK entries, so
// the result is in non-increasing score order with ties resolved by the
// class-then-index insertion order.
//
// Arguments:
//   - indices: NMS survivors per class label.
//   - scores: Score vector per class label, indexed by prior.
//   - keepTopK: The cap; negative means unbounded.
//
// Returns:
//   - []Selection: Kept detections in output order.
//   - error: ErrMissingScores when a label has no scores or an index is out of range.
func KeepTopK(indices map[int][]int, scores map[int][]float32, keepTopK int) ([]Selection, error) {
	var selections []Selection
	for _, label := range Labels(indices) {
		labelScores, ok := scores[label]
		if !ok {
			return nil, errors.Wrapf(ErrMissingScores, "label %d", label)
		}
		for _, idx := range indices[label] {
			if idx < 0 || idx >= len(labelScores) {
				return nil, errors.Wrapf(ErrMissingScores, "label %d has no score for index %d", label, idx)
			}
			selections = append(selections, Selection{Label: label, Index: idx, Score: labelScores[idx]})
		}
	}

	if keepTopK < 0 || len(selections) <= keepTopK {
		return selections, nil
	}

	sort.SliceStable(selections, func(i, j int) bool {
		return selections[i].Score > selections[j].Score
	})
	return selections[:keepTopK], nil
}

// GroupByLabel regroups selections into per-class index lists, preserving
// the relative order of each class.
func GroupByLabel(selections []Selection) map[int][]int {
	grouped := make(map[int][]int)
	for _, s := range selections {
		grouped[s.Label] = append(grouped[s.Label], s.Index)
	}
	return grouped
}
