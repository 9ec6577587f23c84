package knn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicMetricsCollector(t *testing.T) {
	mc := &BasicMetricsCollector{}
	c := newClassifier(t, WithMetricsCollector(mc), WithMaxStoredPatterns(2), WithReplaceDuplicates(true))

	learn(t, c, []float32{1, 0, 0, 0}, 0)
	learn(t, c, []float32{1, 0, 0, 0}, 1) // relabels row 0
	learn(t, c, []float32{0, 1, 0, 0}, 1)
	learn(t, c, []float32{0, 0, 1, 0}, 2) // evicts
	_, err := c.Learn([]float32{1, 0}, 0)
	require.Error(t, err)

	_, err = c.Infer([]float32{0, 1, 0, 0})
	require.NoError(t, err)
	_, err = c.Infer([]float32{0, 1})
	require.Error(t, err)

	_, err = c.RemoveCategory(1)
	require.NoError(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(5), stats.LearnCount)
	assert.Equal(t, int64(3), stats.LearnAdded)
	assert.Equal(t, int64(1), stats.LearnErrors)
	assert.Equal(t, int64(2), stats.InferCount)
	assert.Equal(t, int64(1), stats.InferErrors)
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, int64(1), stats.RemoveCount)
	assert.Equal(t, int64(1), stats.RemovedRows)
	assert.GreaterOrEqual(t, stats.LearnAvgNanos, int64(0))
}

func TestBasicMetricsCollector_SVD(t *testing.T) {
	mc := &BasicMetricsCollector{}
	mc.RecordSVD(4, time.Millisecond, nil)
	mc.RecordSVD(0, time.Millisecond, errors.New("boom"))

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.SVDCount)
	assert.Equal(t, int64(1), stats.SVDErrors)
	assert.Equal(t, int64(4), stats.SVDDims)
	assert.Equal(t, int64(0), stats.InferAvgNanos)
}

func TestNoopMetricsCollector(t *testing.T) {
	var mc MetricsCollector = NoopMetricsCollector{}
	mc.RecordLearn(time.Second, true, nil)
	mc.RecordInfer(time.Second, nil)
	mc.RecordRemove(1, time.Second)
	mc.RecordEviction()
	mc.RecordSVD(1, time.Second, nil)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c := newClassifier(t, WithLogger(logger), WithK(3))
	learn(t, c, []float32{1, 0, 1, 0}, 2)
	_, err := c.Learn([]float32{1, 0}, 0)
	require.Error(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "learn completed", entry["msg"])
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, float64(3), entry["k"])
	assert.Equal(t, "norm", entry["method"])
	assert.Equal(t, float64(2), entry["category"])
	assert.Equal(t, true, entry["added"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "learn failed", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Contains(t, entry["error"], "dimension mismatch")
}

func TestLogger_Snapshot(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&buf, nil))

	logger.LogSnapshot(context.Background(), "save", "models/a", nil)
	logger.LogSnapshot(context.Background(), "load", "models/b", errors.New("missing"))

	out := buf.String()
	assert.Contains(t, out, `msg="snapshot save completed" name=models/a`)
	assert.Contains(t, out, `msg="snapshot load failed" name=models/b error=missing`)
}

func TestLogger_Defaults(t *testing.T) {
	assert.NotNil(t, NewLogger(nil))
	assert.NotNil(t, NewJSONLogger(slog.LevelInfo))
	assert.NotNil(t, NewTextLogger(slog.LevelInfo).WithDimension(8))

	// Noop loggers drop everything.
	NoopLogger().LogInfer(context.Background(), 1, 1, nil)
}
