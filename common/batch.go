package common

// Batch holds the raw detector output for a batch of images as dense
// row-major buffers.
//
//   - Loc:   NumImages x (num_priors * num_loc_classes * num_param)
//   - Conf:  NumImages x (num_priors * num_classes)
//   - Prior: 2 x (num_priors * num_param), prior entries then variances
type Batch struct {
	NumImages int       `json:"num_images"`
	Loc       []float32 `json:"loc"`
	Conf      []float32 `json:"conf"`
	Prior     []float32 `json:"prior"`
}
