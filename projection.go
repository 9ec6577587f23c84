package knn

import (
	"context"
	"time"

	"github.com/hupe1980/knn/svd"
)

// ComputeSVD factors the first numSamples stored rows (all rows when
// numSamples <= 0) and returns the singular values in descending order.
// With finalize set the projection is finalized with the configured
// dimension count, see FinalizeSVD.
func (c *Classifier) ComputeSVD(numSamples int, finalize bool) ([]float64, error) {
	if c.svd == svdFinalized || c.svd == svdSkipped {
		return nil, ErrAlreadyFinalized
	}
	values, err := c.proj.Compute(c.store.DenseRows(), numSamples)
	if err != nil {
		return nil, translateError(err)
	}
	c.svd = svdPending
	if finalize {
		if err := c.FinalizeSVD(0); err != nil {
			return values, err
		}
	}
	return values, nil
}

// FinalizeSVD keeps dims singular directions and rewrites every stored row
// as its projection; the classifier switches to dense memory and later
// inputs are projected. dims 0 selects the configured count and
// SVDDimsAdaptive derives it from the singular values. A count above the
// available directions is clamped. When no direction is kept the rows are
// left untouched and no projection is applied.
func (c *Classifier) FinalizeSVD(dims SVDDims) (err error) {
	switch c.svd {
	case svdFinalized, svdSkipped:
		return ErrAlreadyFinalized
	case svdEmpty:
		return ErrSVDNotComputed
	}
	if dims == 0 {
		dims = c.opts.numSVDDims
	}
	if dims == 0 || dims < SVDDimsAdaptive {
		return invalid("numSVDDims", dims)
	}

	start := time.Now()
	requested := int(dims)
	if dims == SVDDimsAdaptive {
		requested = svd.AdaptiveDims(c.proj.SingularValues(), c.opts.fractionOfMax)
	}
	kept := 0
	defer func() {
		c.metrics.RecordSVD(kept, time.Since(start), err)
		c.logger.LogSVD(context.Background(), requested, kept, err)
	}()

	if kept, err = c.proj.Finalize(requested); err != nil {
		return translateError(err)
	}
	c.svdDims = kept
	if kept == 0 {
		c.svd = svdSkipped
		return nil
	}

	projected, err := c.proj.ProjectAll(c.store.DenseRows())
	if err != nil {
		return translateError(err)
	}
	if err := c.store.ReplaceRows(kept, projected); err != nil {
		return translateError(err)
	}
	c.svd = svdFinalized
	return nil
}

// SVDActive reports whether inputs are projected.
func (c *Classifier) SVDActive() bool { return c.svd == svdFinalized }

// SingularValues returns the singular values of the last decomposition.
func (c *Classifier) SingularValues() []float64 { return c.proj.SingularValues() }

// maybeComputeSVD runs the automatic projection once the configured sample
// count is reached.
func (c *Classifier) maybeComputeSVD() error {
	if c.svd != svdEmpty || c.opts.numSVDSamples <= 0 || c.opts.numSVDDims == 0 {
		return nil
	}
	if c.store.RowCount() != c.opts.numSVDSamples {
		return nil
	}
	_, err := c.ComputeSVD(c.opts.numSVDSamples, true)
	return err
}

// FinishLearning marks the end of training. When an SVD dimension count is
// configured and no decomposition exists yet, the projection is computed
// and finalized over the stored rows. Inference never calls it, so hosts
// that configure WithSVD(0, dims) call it once training ends.
func (c *Classifier) FinishLearning() error {
	if c.opts.numSVDDims != 0 && c.svd == svdEmpty && c.store.RowCount() > 0 {
		if _, err := c.ComputeSVD(c.opts.numSVDSamples, true); err != nil {
			return err
		}
	}
	c.finishedLearning = true
	return nil
}

// FinishedLearning reports whether FinishLearning has run.
func (c *Classifier) FinishedLearning() bool { return c.finishedLearning }
