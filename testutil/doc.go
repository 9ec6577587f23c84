// Package testutil provides testing utilities for the classifier.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random dense and sparse binary
// vectors, labelled clusters, and exact nearest-neighbor ground truth.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	vec := make([]float32, 128)
//	rng.FillUniform(vec)                 // uniform [0, 1)
//	idx := rng.SparseIndices(1024, 40)   // 40 ascending active bits
//
// # Labelled Data
//
//	vectors, labels := rng.LabelledClusters(500, 64, 4, 0.1)
//
// # Ground Truth
//
//	nn := testutil.BruteForceSearch(vectors, query, k)
package testutil
