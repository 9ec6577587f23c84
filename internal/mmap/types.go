package mmap

import "errors"

// AccessPattern is a hint about how mapped bytes will be read.
type AccessPattern int

const (
	// AccessDefault gives no specific advice.
	AccessDefault AccessPattern = iota
	// AccessSequential expects a single front-to-back pass.
	AccessSequential
	// AccessWillNeed expects the whole mapping to be read soon.
	AccessWillNeed
)

var (
	// ErrClosed is returned when accessing a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for a file size that cannot be mapped.
	ErrInvalidSize = errors.New("mmap: invalid file size")
	// ErrInvalidOffset is returned for a negative read offset.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)
