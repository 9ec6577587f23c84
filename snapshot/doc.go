// Package snapshot stores encoded classifier snapshots as named blobs.
//
// Store is the interface every backend implements. Implementations must be
// safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory, for tests
//   - LocalStore: a directory on the local file system
//   - RateLimitedStore: bounds the bytes per second of another Store
//   - s3.Store: Amazon S3, with an optional DynamoDB catalog
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type Store interface {
//	    Put(ctx, name, data) error     // Atomic write
//	    Get(ctx, name) ([]byte, error) // ErrNotFound when missing
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package snapshot
