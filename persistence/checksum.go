package persistence

import (
	"errors"
	"fmt"
	"hash/crc32"
)

// Snapshot payloads are guarded by CRC32 (IEEE). This detects storage
// corruption only; it is not a tamper check.

// CalculateChecksum returns the CRC32 of data.
func CalculateChecksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// VerifyChecksum compares the CRC32 of data with expected.
func VerifyChecksum(data []byte, expected uint32) error {
	if actual := CalculateChecksum(data); actual != expected {
		return &ChecksumMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}

// ChecksumMismatchError is returned when checksum verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// IsChecksumMismatch returns true if err is a checksum mismatch error.
func IsChecksumMismatch(err error) bool {
	var cm *ChecksumMismatchError
	return errors.As(err, &cm)
}
