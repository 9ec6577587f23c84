package knn

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strconv"
	"strings"

	"github.com/hupe1980/knn/distance"
	"github.com/hupe1980/knn/persistence"
	"github.com/hupe1980/knn/prototype"
)

// SVDDims is the number of dimensions kept by the SVD projection.
// Zero leaves the projection unconfigured.
type SVDDims int

// SVDDimsAdaptive chooses the dimension count from the singular value
// spectrum, see WithFractionOfMax.
const SVDDimsAdaptive SVDDims = -1

func (d SVDDims) String() string {
	if d == SVDDimsAdaptive {
		return "adaptive"
	}
	return strconv.Itoa(int(d))
}

// MarshalText implements encoding.TextMarshaler.
func (d SVDDims) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText accepts "adaptive" or a non-negative integer.
func (d *SVDDims) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if strings.EqualFold(s, "adaptive") {
		*d = SVDDimsAdaptive
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return invalid("numSVDDims", s)
	}
	*d = SVDDims(n)
	return nil
}

type options struct {
	k                     int
	exact                 bool
	distanceNorm          float64
	distanceMethod        distance.Method
	distThreshold         float64
	doBinarization        bool
	binarizationThreshold float64
	useSparseMemory       bool
	sparseThreshold       float64
	relativeThreshold     bool
	numWinners            int
	numSVDSamples         int
	numSVDDims            SVDDims
	fractionOfMax         float64
	maxStoredPatterns     int
	replaceDuplicates     bool
	cellsPerCol           int
	minSparsity           float64
	initialCapacity       int

	compression      persistence.Compression
	batchConcurrency int
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a Classifier.
type Option func(*options)

// WithK sets the number of nearest neighbors that vote. k must be odd.
func WithK(k int) Option {
	return func(o *options) {
		o.k = k
	}
}

// WithExact restricts voting to rows at (numerically) zero distance.
func WithExact(exact bool) Option {
	return func(o *options) {
		o.exact = exact
	}
}

// WithDistanceNorm sets the Lp exponent used by the norm distance method.
func WithDistanceNorm(p float64) Option {
	return func(o *options) {
		o.distanceNorm = p
	}
}

// WithDistanceMethod selects the distance method.
func WithDistanceMethod(m distance.Method) Option {
	return func(o *options) {
		o.distanceMethod = m
	}
}

// WithDistThreshold rejects training inputs whose nearest stored distance is
// below threshold.
func WithDistThreshold(threshold float64) Option {
	return func(o *options) {
		o.distThreshold = threshold
	}
}

// WithBinarization maps every stored and queried value to 1 if it is above
// threshold and 0 otherwise. Applies to sparse memory.
func WithBinarization(threshold float64) Option {
	return func(o *options) {
		o.doBinarization = true
		o.binarizationThreshold = threshold
	}
}

// WithSparseMemory selects the sparse (true) or dense (false) row representation.
func WithSparseMemory(sparse bool) Option {
	return func(o *options) {
		o.useSparseMemory = sparse
	}
}

// WithSparseThreshold zeroes input values whose magnitude is not above
// threshold. Applies to sparse memory.
func WithSparseThreshold(threshold float64) Option {
	return func(o *options) {
		o.sparseThreshold = threshold
	}
}

// WithRelativeThreshold interprets the sparse threshold as a fraction of the
// largest input magnitude.
func WithRelativeThreshold(relative bool) Option {
	return func(o *options) {
		o.relativeThreshold = relative
	}
}

// WithNumWinners keeps only the n largest values of each training input.
// Zero disables the rule.
func WithNumWinners(n int) Option {
	return func(o *options) {
		o.numWinners = n
	}
}

// WithSVD projects all rows onto dims singular directions once numSamples
// rows have been learned. dims may be SVDDimsAdaptive.
//
// Example:
//
//	c, _ := knn.New(knn.WithSparseMemory(false), knn.WithSVD(500, knn.SVDDimsAdaptive))
func WithSVD(numSamples int, dims SVDDims) Option {
	return func(o *options) {
		o.numSVDSamples = numSamples
		o.numSVDDims = dims
	}
}

// WithFractionOfMax sets the cut-off ratio used for adaptive SVD dimensions.
func WithFractionOfMax(fraction float64) Option {
	return func(o *options) {
		o.fractionOfMax = fraction
	}
}

// WithMaxStoredPatterns bounds the number of stored rows, evicting the least
// recent row when exceeded. Requires sparse memory. A value <= 0 disables
// the bound.
func WithMaxStoredPatterns(n int) Option {
	return func(o *options) {
		o.maxStoredPatterns = n
	}
}

// WithReplaceDuplicates relabels an exactly matching stored row instead of
// adding a copy.
func WithReplaceDuplicates(replace bool) Option {
	return func(o *options) {
		o.replaceDuplicates = replace
	}
}

// WithCellsPerCol declares a columnar input layout with n cells per column.
// During training only the first active cell of a column with several active
// cells is kept. Requires sparse memory.
func WithCellsPerCol(n int) Option {
	return func(o *options) {
		o.cellsPerCol = n
	}
}

// WithMinSparsity ignores inputs whose fraction of non-zero entries is below
// minSparsity, both for training and inference.
func WithMinSparsity(minSparsity float64) Option {
	return func(o *options) {
		o.minSparsity = minSparsity
	}
}

// WithInitialCapacity sets the number of dense rows reserved on first insert.
func WithInitialCapacity(rows int) Option {
	return func(o *options) {
		o.initialCapacity = rows
	}
}

// WithSnapshotCompression selects the payload codec used by WriteTo and Save.
func WithSnapshotCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithBatchConcurrency bounds the number of concurrent inferences run by
// InferBatch. Values <= 0 select runtime.GOMAXPROCS(0).
func WithBatchConcurrency(n int) Option {
	return func(o *options) {
		o.batchConcurrency = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &knn.BasicMetricsCollector{}
//	c, _ := knn.New(knn.WithMetricsCollector(metrics))
//	// ... use c ...
//	stats := metrics.GetStats()
//	fmt.Printf("Learned: %d, Avg infer latency: %dns\n", stats.LearnAdded, stats.InferAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := knn.NewJSONLogger(slog.LevelDebug)
//	c, _ := knn.New(knn.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		k:                     1,
		distanceNorm:          2,
		distanceMethod:        distance.Norm,
		binarizationThreshold: 0.5,
		useSparseMemory:       true,
		sparseThreshold:       0.1,
		maxStoredPatterns:     -1,
		initialCapacity:       prototype.DefaultInitialCapacity,
		compression:           persistence.CompressionNone,
		metricsCollector:      NoopMetricsCollector{},
		logger:                NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.batchConcurrency <= 0 {
		o.batchConcurrency = runtime.GOMAXPROCS(0)
	}
	return o
}

func invalid(name string, value any) error {
	return fmt.Errorf("%w: %s = %v", ErrInvalidOption, name, value)
}

func (o *options) validate() error {
	if o.k < 1 || o.k%2 == 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidK, o.k)
	}
	if o.distanceNorm <= 0 || math.IsInf(o.distanceNorm, 0) || math.IsNaN(o.distanceNorm) {
		return invalid("distanceNorm", o.distanceNorm)
	}
	if !o.distanceMethod.Valid() {
		return invalid("distanceMethod", o.distanceMethod)
	}
	if o.distThreshold < 0 {
		return invalid("distThreshold", o.distThreshold)
	}
	if o.sparseThreshold < 0 {
		return invalid("sparseThreshold", o.sparseThreshold)
	}
	if o.numWinners < 0 {
		return invalid("numWinners", o.numWinners)
	}
	if o.numSVDSamples < 0 {
		return invalid("numSVDSamples", o.numSVDSamples)
	}
	if o.numSVDDims < SVDDimsAdaptive {
		return invalid("numSVDDims", o.numSVDDims)
	}
	if o.fractionOfMax < 0 || o.fractionOfMax >= 1 {
		return invalid("fractionOfMax", o.fractionOfMax)
	}
	if o.cellsPerCol < 0 {
		return invalid("cellsPerCol", o.cellsPerCol)
	}
	if o.minSparsity < 0 || o.minSparsity > 1 {
		return invalid("minSparsity", o.minSparsity)
	}
	if o.compression > persistence.CompressionLZ4 {
		return invalid("compression", o.compression)
	}
	if (o.maxStoredPatterns > 0 || o.cellsPerCol > 0) && !o.useSparseMemory {
		return ErrSparseMemoryRequired
	}
	return nil
}

func (o *options) fixedCapacity() bool { return o.maxStoredPatterns > 0 }

// LearnOption configures a single Learn call.
type LearnOption func(*learnOptions)

type learnOptions struct {
	partition int64
	rowID     int64
	hasRowID  bool
}

// WithPartitionID tags the learned row with a partition id (>= 0).
func WithPartitionID(pid int64) LearnOption {
	return func(o *learnOptions) {
		o.partition = pid
	}
}

// WithRowID sets the recency value of the learned row. Without it the
// current iteration index is used.
func WithRowID(id int64) LearnOption {
	return func(o *learnOptions) {
		o.rowID = id
		o.hasRowID = true
	}
}

// InferOption configures a single inference.
type InferOption func(*inferOptions)

type inferOptions struct {
	excluded    int64
	hasExcluded bool
}

// WithPartitionExcluded excludes every row tagged with pid from the query.
func WithPartitionExcluded(pid int64) InferOption {
	return func(o *inferOptions) {
		o.excluded = pid
		o.hasExcluded = true
	}
}
