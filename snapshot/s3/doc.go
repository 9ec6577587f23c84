// Package s3 provides an Amazon S3 implementation of snapshot.Store and a
// DynamoDB catalog of committed snapshot versions.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", func(o *s3.Options) {
//	    o.Prefix = "models/"
//	    o.Region = "us-east-1"
//	})
//
//	err = clf.Save(ctx, store, "digits.knn")
//
// # Features
//
//   - CRC32C-checked single-request writes for small snapshots
//   - Multipart uploads for large snapshots
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
