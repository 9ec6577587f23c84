// Package minio provides a snapshot.Store implementation using the MinIO client.
//
// MinIO is an S3-compatible object storage system. The MinIO client also
// talks to other S3-compatible services like Ceph, SeaweedFS and Garage.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := miniostore.NewStore(client, "my-bucket", "models/")
//	err = clf.Save(ctx, store, "digits.knn")
package minio
