package knn

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// InferBatch classifies every vector concurrently, bounded by the configured
// batch concurrency. Results are in input order. The first error, or the
// cancellation of ctx, stops the remaining inferences.
//
// InferBatch must not run concurrently with a writer.
func (c *Classifier) InferBatch(ctx context.Context, vectors [][]float32, opts ...InferOption) ([]InferResult, error) {
	results := make([]InferResult, len(vectors))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.batchConcurrency)

	for i, v := range vectors {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := c.Infer(v, opts...)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
