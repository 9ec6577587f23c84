package snapshot

import (
	"context"
	"os"
)

// ErrNotFound is returned when a snapshot does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store holds named snapshot blobs.
type Store interface {
	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error

	// Get returns the content of a blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names starting with prefix in ascending order.
	List(ctx context.Context, prefix string) ([]string, error)
}
