package knn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/knn/distance"
	"github.com/hupe1980/knn/persistence"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1, cfg.K)
	assert.Equal(t, 2.0, cfg.DistanceNorm)
	assert.Equal(t, distance.Norm, cfg.DistanceMethod)
	assert.True(t, cfg.UseSparseMemory)
	assert.Equal(t, -1, cfg.MaxStoredPatterns)
	assert.Equal(t, persistence.CompressionNone, cfg.Compression)

	c, err := NewFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, c.K())
}

func TestConfigFromMap(t *testing.T) {
	cfg, err := ConfigFromMap(map[string]any{
		"k":               3,
		"distanceMethod":  "rawOverlap",
		"numSVDDims":      "adaptive",
		"numSVDSamples":   "50",
		"compression":     "zstd",
		"useSparseMemory": false,
		"exact":           "true",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.K)
	assert.Equal(t, distance.RawOverlap, cfg.DistanceMethod)
	assert.Equal(t, SVDDimsAdaptive, cfg.NumSVDDims)
	assert.Equal(t, 50, cfg.NumSVDSamples)
	assert.Equal(t, persistence.CompressionZstd, cfg.Compression)
	assert.False(t, cfg.UseSparseMemory)
	assert.True(t, cfg.Exact)

	// Unset keys keep their defaults.
	assert.Equal(t, 2.0, cfg.DistanceNorm)
	assert.Equal(t, 0.1, cfg.SparseThreshold)

	c, err := NewFromConfig(cfg, WithK(5))
	require.NoError(t, err)
	assert.Equal(t, 5, c.K())
	assert.False(t, c.SparseMemory())
}

func TestConfigFromMap_Errors(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]any
		want error
	}{
		{"UnknownKey", map[string]any{"neighbours": 3}, ErrUnknownOption},
		{"BadType", map[string]any{"k": "three"}, ErrInvalidOption},
		{"BadMethod", map[string]any{"distanceMethod": "cosine"}, ErrInvalidOption},
		{"BadDims", map[string]any{"numSVDDims": "many"}, ErrInvalidOption},
		{"BadCompression", map[string]any{"compression": "gzip"}, ErrInvalidOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConfigFromMap(tt.m)
			require.ErrorIs(t, err, tt.want)
		})
	}

	// Decoding succeeds, construction validates.
	cfg, err := ConfigFromMap(map[string]any{"k": 4})
	require.NoError(t, err)
	_, err = NewFromConfig(cfg)
	require.ErrorIs(t, err, ErrInvalidK)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knn.yaml")
	content := []byte(`
k: 3
distanceMethod: pctOverlapOfInput
maxStoredPatterns: 100
replaceDuplicates: true
numSVDDims: 4
compression: lz4
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.K)
	assert.Equal(t, distance.PctOverlapOfInput, cfg.DistanceMethod)
	assert.Equal(t, 100, cfg.MaxStoredPatterns)
	assert.True(t, cfg.ReplaceDuplicates)
	assert.Equal(t, SVDDims(4), cfg.NumSVDDims)
	assert.Equal(t, persistence.CompressionLZ4, cfg.Compression)

	t.Run("EnvOverridesFile", func(t *testing.T) {
		t.Setenv("KNN_K", "7")
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.K)
		assert.Equal(t, 100, cfg.MaxStoredPatterns)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("kk: 3\n"), 0o600))
		_, err := LoadConfig(bad)
		require.ErrorIs(t, err, ErrUnknownOption)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("KNN_K", "5")
	t.Setenv("KNN_DISTANCEMETHOD", "pctOverlapOfLarger")
	t.Setenv("KNN_NUMSVDDIMS", "adaptive")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.K)
	assert.Equal(t, distance.PctOverlapOfLarger, cfg.DistanceMethod)
	assert.Equal(t, SVDDimsAdaptive, cfg.NumSVDDims)
	assert.True(t, cfg.UseSparseMemory)
}

func TestSVDDimsText(t *testing.T) {
	tests := []struct {
		in   string
		want SVDDims
	}{
		{"adaptive", SVDDimsAdaptive},
		{"Adaptive", SVDDimsAdaptive},
		{"0", 0},
		{"12", 12},
	}
	for _, tt := range tests {
		var d SVDDims
		require.NoError(t, d.UnmarshalText([]byte(tt.in)))
		assert.Equal(t, tt.want, d)
	}

	var d SVDDims
	require.ErrorIs(t, d.UnmarshalText([]byte("-2")), ErrInvalidOption)

	text, err := SVDDimsAdaptive.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "adaptive", string(text))
	assert.Equal(t, "8", SVDDims(8).String())
}
