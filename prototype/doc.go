// Package prototype stores the labelled training rows of a nearest-neighbor
// classifier.
//
// A Store keeps every row in one of two representations:
//
//   - sparse: per-row non-zero indices and values
//   - dense: one contiguous row-major float32 buffer that grows by doubling
//
// Alongside the rows the store keeps parallel per-row metadata (category,
// partition id and recency) that is filtered together on every removal.
// Rows sharing a partition id are indexed in roaring bitmaps so a caller can
// exclude a partition at query time without scanning.
//
// # Usage
//
//	s := prototype.New(func(o *prototype.Options) { o.Sparse = true })
//	v, _ := prototype.NewSparse([]int{1, 4}, 8)
//	row, err := s.AddRow(v, 3, prototype.NoPartition, 0)
//
// A Store is not safe for concurrent mutation. Read-only methods may run
// concurrently with each other.
package prototype
