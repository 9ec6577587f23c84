// Package conv provides checked integer conversions.
//
// Counts and offsets read back from a snapshot are untrusted: they are
// converted through these helpers before being used to size allocations.
package conv
