package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/knn/snapshot"
)

// Client is the subset of the S3 API used by Store.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Options configures a Store.
type Options struct {
	// Prefix is prepended to all keys (e.g. "models/").
	Prefix string

	// Region overrides the region of the default AWS configuration. Used by New only.
	Region string

	// MultipartThreshold is the size from which snapshots are uploaded in
	// parts, provided the client supports multipart uploads.
	// Default: 16MB
	MultipartThreshold int64

	// PartSize is the minimum part size for multipart uploads.
	// Default: 8MB
	PartSize int64

	// Concurrency is the number of concurrent part uploads.
	// Default: 5
	Concurrency int

	// EnableChecksum sends a CRC32C checksum with single-request writes.
	// Default: true
	EnableChecksum bool
}

func defaultOptions() Options {
	return Options{
		MultipartThreshold: 16 * 1024 * 1024,
		PartSize:           8 * 1024 * 1024,
		Concurrency:        5,
		EnableChecksum:     true,
	}
}

// Store implements snapshot.Store for S3.
type Store struct {
	client   Client
	bucket   string
	opts     Options
	uploader *manager.Uploader // nil if the client cannot upload in parts
}

var _ snapshot.Store = (*Store)(nil)

// New creates a Store from the default AWS configuration chain.
func New(ctx context.Context, bucket string, optFns ...func(o *Options)) (*Store, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return NewStore(s3.NewFromConfig(cfg), bucket, optFns...), nil
}

// NewStore creates a Store on an existing client.
func NewStore(client Client, bucket string, optFns ...func(o *Options)) *Store {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	s := &Store{
		client: client,
		bucket: bucket,
		opts:   opts,
	}
	if up, ok := client.(manager.UploadAPIClient); ok {
		s.uploader = manager.NewUploader(up, func(u *manager.Uploader) {
			u.PartSize = opts.PartSize
			u.Concurrency = opts.Concurrency
		})
	}
	return s
}

func (s *Store) key(name string) string {
	return path.Join(s.opts.Prefix, name)
}

// Put uploads a snapshot. Large snapshots use a multipart upload.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	key := s.key(name)
	if s.uploader != nil && int64(len(data)) >= s.opts.MultipartThreshold {
		_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if s.opts.EnableChecksum {
		input.ChecksumCRC32C = aws.String(computeCRC32C(data))
	}
	_, err := s.client.PutObject(ctx, input)
	return err
}

// Get downloads a snapshot.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, snapshot.ErrNotFound
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	return io.ReadAll(resp.Body)
}

// Delete removes a snapshot.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil && isNotFound(err) {
		return nil
	}
	return err
}

// List returns the snapshot names below prefix, relative to the store prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := s.key(prefix)
	if (prefix == "" || strings.HasSuffix(prefix, "/")) && fullPrefix != "" {
		fullPrefix += "/"
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(fullPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			rel := strings.TrimPrefix(aws.ToString(obj.Key), s.opts.Prefix)
			rel = strings.TrimPrefix(rel, "/")
			if rel != "" {
				keys = append(keys, rel)
			}
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}

// computeCRC32C computes the CRC32C checksum and returns it as base64 (S3 format).
func computeCRC32C(data []byte) string {
	sum := crc32.Checksum(data, crc32.MakeTable(crc32.Castagnoli))
	// S3 expects base64-encoded big-endian bytes
	return base64.StdEncoding.EncodeToString(binary.BigEndian.AppendUint32(nil, sum))
}
