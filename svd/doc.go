// Package svd implements a one-shot linear projection computed from a
// singular value decomposition of centered sample rows.
//
// The lifecycle is Compute, optionally AdaptiveDims, then Finalize. After
// Finalize the projection is immutable and Project maps every input v to
// projection · (v − mean).
package svd
