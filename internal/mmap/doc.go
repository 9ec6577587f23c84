// Package mmap maps snapshot files read-only into memory.
//
// # Usage
//
//	m, err := mmap.Open("model.knn")
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(mmap.AccessSequential)
//	r := m.Reader()
//
// # Platform Support
//
//   - Unix: mmap(2) with madvise(2) access hints
//   - Windows: CreateFileMapping/MapViewOfFile (hints are ignored)
//   - Other platforms: the file is read into memory
//
// A Mapping is safe for concurrent reads. Close is idempotent; the bytes
// must not be used after Close returns.
package mmap
