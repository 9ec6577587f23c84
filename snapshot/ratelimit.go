package snapshot

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds the limits of a RateLimitedStore.
type RateLimitConfig struct {
	// BytesPerSec is the maximum transfer rate for Put and Get.
	// If 0, unlimited.
	BytesPerSec int64

	// MaxConcurrent is the maximum number of operations in flight.
	// If 0, unlimited.
	MaxConcurrent int64
}

// RateLimitedStore wraps a Store and bounds its throughput and concurrency.
type RateLimitedStore struct {
	inner   Store
	limiter *rate.Limiter       // nil if unlimited
	sem     *semaphore.Weighted // nil if unlimited
}

// NewRateLimitedStore wraps inner with the given limits.
func NewRateLimitedStore(inner Store, cfg RateLimitConfig) *RateLimitedStore {
	s := &RateLimitedStore{inner: inner}
	if cfg.BytesPerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.BytesPerSec), int(cfg.BytesPerSec))
	}
	if cfg.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	return s
}

func (s *RateLimitedStore) acquire(ctx context.Context) (func(), error) {
	if s.sem == nil {
		return func() {}, nil
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { s.sem.Release(1) }, nil
}

// waitBytes waits until the limiter allows n bytes. Requests larger than
// the burst are split.
func (s *RateLimitedStore) waitBytes(ctx context.Context, n int) error {
	if s.limiter == nil {
		return nil
	}
	burst := s.limiter.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := s.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// Put waits for len(data) bytes of budget and writes the blob.
func (s *RateLimitedStore) Put(ctx context.Context, name string, data []byte) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := s.waitBytes(ctx, len(data)); err != nil {
		return err
	}
	return s.inner.Put(ctx, name, data)
}

// Get reads the blob and charges its size before returning it.
func (s *RateLimitedStore) Get(ctx context.Context, name string) ([]byte, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	data, err := s.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.waitBytes(ctx, len(data)); err != nil {
		return nil, err
	}
	return data, nil
}

// Delete removes a blob.
func (s *RateLimitedStore) Delete(ctx context.Context, name string) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return s.inner.Delete(ctx, name)
}

// List lists blobs with prefix.
func (s *RateLimitedStore) List(ctx context.Context, prefix string) ([]string, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.inner.List(ctx, prefix)
}
