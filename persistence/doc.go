// Package persistence implements the binary snapshot format of a classifier.
//
// A snapshot is a 64-byte FileHeader followed by the payload. The payload is
// written with Writer as a sequence of little-endian scalars and
// length-prefixed slices, optionally compressed with zstd or lz4. The header
// carries a CRC32 of the stored payload bytes.
//
// SaveToFile writes through a temporary file and renames it into place, so a
// crash never leaves a partially written snapshot under the target name.
package persistence
