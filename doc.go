// Package knn provides an online k-nearest-neighbor classifier over labelled
// prototype vectors.
//
// A Classifier stores every training input as a prototype row with a
// category, an optional partition id and a row id used for recency. Rows are
// kept sparse (non-zero positions and values) or dense, and are compared to
// queries with an Lp norm or one of the overlap methods of package distance.
//
// # Quick Start
//
//	c, _ := knn.New(knn.WithK(3), knn.WithDistanceMethod(distance.RawOverlap))
//	c.Learn([]float32{1, 0, 1, 0}, 0)
//	c.Learn([]float32{0, 1, 0, 1}, 1)
//
//	res, _ := c.Infer([]float32{1, 0, 1, 1})
//	fmt.Println(res.Winner, res.Votes)
//
// # Training Policies
//
// Inputs may be rejected or rewritten before they are stored:
//
//   - WithMinSparsity ignores inputs with too few non-zero entries.
//   - WithReplaceDuplicates relabels an identical stored row instead of
//     adding a copy, and WithDistThreshold drops inputs close to a stored row.
//   - In sparse memory, WithSparseThreshold, WithNumWinners and
//     WithBinarization shape the stored values, and WithCellsPerCol keeps
//     one active cell per column.
//   - WithMaxStoredPatterns bounds the store and evicts the least recent row.
//
// # Dimensionality Reduction
//
// WithSVD projects inputs onto their leading singular directions once enough
// rows are stored. The projection is one-way: after it is finalized all
// stored rows and later inputs live in the projected space.
//
// # Snapshots
//
// A classifier is written with WriteTo, SaveToFile or Save and restored with
// Read, LoadFromFile or Load. Package snapshot provides stores for the local
// file system, memory, S3 and MinIO.
//
// # Concurrency
//
// Writers (Learn, removals, relabelling, SVD control, Clear, ReadFrom) must
// be serialized by the caller. Read-only methods such as Infer, Distances
// and InferBatch may run concurrently while no writer runs.
package knn
