package knn

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/knn/distance"
	"github.com/hupe1980/knn/internal/conv"
	"github.com/hupe1980/knn/persistence"
	"github.com/hupe1980/knn/prototype"
	"github.com/hupe1980/knn/snapshot"
	"github.com/hupe1980/knn/svd"
)

// WriteTo writes a snapshot of the classifier to w. It implements io.WriterTo.
func (c *Classifier) WriteTo(w io.Writer) (int64, error) {
	payload, err := c.encodePayload()
	if err != nil {
		return 0, err
	}

	h := persistence.FileHeader{
		ClassifierVersion: Version,
		Compression:       c.opts.compression,
	}
	if c.store.Sparse() {
		h.Flags |= persistence.FlagSparse
	}
	if c.svd == svdFinalized {
		h.Flags |= persistence.FlagSVD
	}
	if c.opts.fixedCapacity() {
		h.Flags |= persistence.FlagFixedCapacity
	}
	if h.RowCount, err = conv.IntToUint64(c.store.RowCount()); err != nil {
		return 0, err
	}
	if h.Width, err = conv.IntToUint32(c.store.Width()); err != nil {
		return 0, err
	}

	cw := &countingWriter{w: w}
	err = persistence.Encode(cw, h, payload)
	return cw.n, err
}

// ReadFrom replaces the classifier state with a snapshot read from r. The
// classifier parameters are taken from the snapshot; the logger, metrics
// collector, compression and batch concurrency of c are kept. It implements
// io.ReaderFrom.
func (c *Classifier) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}
	h, payload, err := persistence.Decode(cr)
	if err != nil {
		return cr.n, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if h.ClassifierVersion != Version {
		return cr.n, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, h.ClassifierVersion, Version)
	}

	next, err := c.decodePayload(payload)
	if err != nil {
		return cr.n, err
	}
	if uint64(next.store.RowCount()) != h.RowCount || uint64(next.store.Width()) != uint64(h.Width) {
		return cr.n, fmt.Errorf("%w: header does not match payload", ErrCorruptSnapshot)
	}

	*c = *next
	return cr.n, nil
}

// Read creates a classifier from a snapshot. opts configure the ambient
// settings (logger, metrics, compression, batch concurrency); classifier
// parameters come from the snapshot.
func Read(r io.Reader, opts ...Option) (*Classifier, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if _, err := c.ReadFrom(r); err != nil {
		return nil, err
	}
	return c, nil
}

// SaveToFile writes a snapshot to filename atomically.
func (c *Classifier) SaveToFile(filename string) error {
	err := persistence.SaveToFile(filename, func(w io.Writer) error {
		_, err := c.WriteTo(w)
		return err
	})
	c.logger.LogSnapshot(context.Background(), "save", filename, err)
	return err
}

// LoadFromFile reads a snapshot written by SaveToFile.
func LoadFromFile(filename string, opts ...Option) (*Classifier, error) {
	var c *Classifier
	err := persistence.LoadFromFile(filename, func(r io.Reader) error {
		var err error
		c, err = Read(r, opts...)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.LogSnapshot(context.Background(), "load", filename, nil)
	return c, nil
}

// Save writes a snapshot to store under name.
func (c *Classifier) Save(ctx context.Context, store snapshot.Store, name string) error {
	var buf bytes.Buffer
	_, err := c.WriteTo(&buf)
	if err == nil {
		err = store.Put(ctx, name, buf.Bytes())
	}
	c.logger.LogSnapshot(ctx, "save", name, err)
	return err
}

// Load reads the snapshot name from store.
func Load(ctx context.Context, store snapshot.Store, name string, opts ...Option) (*Classifier, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	c, err := Read(bytes.NewReader(data), opts...)
	if err != nil {
		return nil, err
	}
	c.logger.LogSnapshot(ctx, "load", name, nil)
	return c, nil
}

func (c *Classifier) encodePayload() ([]byte, error) {
	w := persistence.NewWriter(1024)

	o := &c.opts
	w.Int(o.k)
	w.Bool(o.exact)
	w.Float64(o.distanceNorm)
	w.Uint8(uint8(o.distanceMethod))
	w.Float64(o.distThreshold)
	w.Bool(o.doBinarization)
	w.Float64(o.binarizationThreshold)
	w.Bool(o.useSparseMemory)
	w.Float64(o.sparseThreshold)
	w.Bool(o.relativeThreshold)
	w.Int(o.numWinners)
	w.Int(o.numSVDSamples)
	w.Int(int(o.numSVDDims))
	w.Float64(o.fractionOfMax)
	w.Int(o.maxStoredPatterns)
	w.Bool(o.replaceDuplicates)
	w.Int(o.cellsPerCol)
	w.Float64(o.minSparsity)

	st := c.store.State()
	w.Bool(st.Sparse)
	w.Int(st.Width)
	w.Float32s(st.Data)
	w.Ints(st.RowOffsets)
	w.Int32s(st.Indices)
	w.Float32s(st.Values)
	w.Ints(st.Categories)
	w.Int64s(st.Partitions)
	w.Int64s(st.Recency)

	ps := c.proj.State()
	w.Bool(ps != nil)
	if ps != nil {
		w.Int(ps.InputWidth)
		w.Int(ps.Dims)
		w.Float64s(ps.Mean)
		w.Float64s(ps.Projection)
		w.Float64s(ps.SingularValues)
		w.Bool(ps.Finalized)
	}

	w.Int(c.svdDims)
	w.Int64(c.iteration)
	w.Bool(c.finishedLearning)
	w.Uint8(uint8(c.svd))
	w.Bool(c.specificIndexTraining)
	w.Ints(c.nextTrainingIndices)

	return w.Bytes(), w.Err()
}

// decodePayload builds a classifier from a payload, keeping the ambient
// settings of c.
func (c *Classifier) decodePayload(payload []byte) (*Classifier, error) {
	r := persistence.NewReader(payload)

	o := c.opts
	o.k = r.Int()
	o.exact = r.Bool()
	o.distanceNorm = r.Float64()
	o.distanceMethod = distance.Method(r.Uint8())
	o.distThreshold = r.Float64()
	o.doBinarization = r.Bool()
	o.binarizationThreshold = r.Float64()
	o.useSparseMemory = r.Bool()
	o.sparseThreshold = r.Float64()
	o.relativeThreshold = r.Bool()
	o.numWinners = r.Int()
	o.numSVDSamples = r.Int()
	o.numSVDDims = SVDDims(r.Int())
	o.fractionOfMax = r.Float64()
	o.maxStoredPatterns = r.Int()
	o.replaceDuplicates = r.Bool()
	o.cellsPerCol = r.Int()
	o.minSparsity = r.Float64()

	st := &prototype.State{
		Sparse:     r.Bool(),
		Width:      r.Int(),
		Data:       r.Float32s(),
		RowOffsets: r.Ints(),
		Indices:    r.Int32s(),
		Values:     r.Float32s(),
		Categories: r.Ints(),
		Partitions: r.Int64s(),
		Recency:    r.Int64s(),
	}

	var ps *svd.State
	if r.Bool() {
		ps = &svd.State{
			InputWidth:     r.Int(),
			Dims:           r.Int(),
			Mean:           r.Float64s(),
			Projection:     r.Float64s(),
			SingularValues: r.Float64s(),
			Finalized:      r.Bool(),
		}
	}

	svdDims := r.Int()
	iteration := r.Int64()
	finished := r.Bool()
	state := svdState(r.Uint8())
	specific := r.Bool()
	nextIndices := r.Ints()

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptSnapshot, r.Remaining())
	}
	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}

	engine, err := distance.NewEngine(o.distanceMethod, o.distanceNorm)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	store, err := prototype.FromState(st, func(po *prototype.Options) {
		po.InitialCapacity = o.initialCapacity
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	proj, err := svd.FromState(ps)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}

	if err := checkSVDState(state, proj, store, svdDims); err != nil {
		return nil, err
	}

	return &Classifier{
		opts:                  o,
		store:                 store,
		engine:                engine,
		proj:                  proj,
		svd:                   state,
		svdDims:               svdDims,
		iteration:             iteration,
		finishedLearning:      finished,
		specificIndexTraining: specific,
		nextTrainingIndices:   nextIndices,
		logger:                o.logger.WithK(o.k).WithMethod(o.distanceMethod.String()),
		metrics:               o.metricsCollector,
	}, nil
}

// checkSVDState verifies that the SVD lifecycle state agrees with the
// restored projector and store.
func checkSVDState(state svdState, proj *svd.Projector, store *prototype.Store, dims int) error {
	ok := false
	switch state {
	case svdEmpty:
		ok = !proj.Computed()
	case svdPending:
		ok = proj.Computed() && !proj.Finalized()
	case svdFinalized:
		ok = proj.Active() && proj.Dims() == dims &&
			(store.RowCount() == 0 || store.Width() == dims)
	case svdSkipped:
		ok = proj.Finalized() && !proj.Active() && dims == 0
	}
	if !ok {
		return fmt.Errorf("%w: inconsistent svd state %s", ErrCorruptSnapshot, state)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}
