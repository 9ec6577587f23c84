// Package distance scores a query against every stored prototype row.
//
// # Supported Methods
//
//   - Norm: Lp distance, divided by the largest distance of the same query
//   - RawOverlap: sum(q) minus the overlap with the row
//   - PctOverlapOfInput: missing overlap as a fraction of sum(q)
//   - PctOverlapOfProto: missing overlap as a fraction of the row sum
//   - PctOverlapOfLarger: missing overlap as a fraction of the larger sum
//
// The overlap of a query with a row is the sum of the query values at the
// row's non-zero positions, which is the co-active count for binary vectors.
//
// Norm distances are relative to the query's own batch: the worst row of
// every query scores exactly 1, so Norm distances from different queries are
// not comparable against an absolute threshold.
//
// # Usage
//
//	e, err := distance.NewEngine(distance.Norm, 2)
//	dist := e.Distances(store, query, nil)
package distance
