package knn

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/hupe1980/knn/distance"
	"github.com/hupe1980/knn/persistence"
)

// EnvPrefix is the prefix of environment variables read by LoadConfig,
// e.g. KNN_K or KNN_DISTANCEMETHOD.
const EnvPrefix = "KNN"

// Config holds the classifier parameters by name, for hosts that configure
// the classifier from files, maps or the environment. Keys match the
// mapstructure tags case-insensitively.
type Config struct {
	K                     int             `mapstructure:"k"`
	Exact                 bool            `mapstructure:"exact"`
	DistanceNorm          float64         `mapstructure:"distanceNorm"`
	DistanceMethod        distance.Method `mapstructure:"distanceMethod"`
	DistThreshold         float64         `mapstructure:"distThreshold"`
	DoBinarization        bool            `mapstructure:"doBinarization"`
	BinarizationThreshold float64         `mapstructure:"binarizationThreshold"`
	UseSparseMemory       bool            `mapstructure:"useSparseMemory"`
	SparseThreshold       float64         `mapstructure:"sparseThreshold"`
	RelativeThreshold     bool            `mapstructure:"relativeThreshold"`
	NumWinners            int             `mapstructure:"numWinners"`
	NumSVDSamples         int             `mapstructure:"numSVDSamples"`
	NumSVDDims            SVDDims         `mapstructure:"numSVDDims"`
	FractionOfMax         float64         `mapstructure:"fractionOfMax"`
	MaxStoredPatterns     int             `mapstructure:"maxStoredPatterns"`
	ReplaceDuplicates     bool            `mapstructure:"replaceDuplicates"`
	CellsPerCol           int             `mapstructure:"cellsPerCol"`
	MinSparsity           float64         `mapstructure:"minSparsity"`
	InitialCapacity       int             `mapstructure:"initialCapacity"`

	Compression      persistence.Compression `mapstructure:"compression"`
	BatchConcurrency int                     `mapstructure:"batchConcurrency"`
}

// DefaultConfig returns the default parameters.
func DefaultConfig() Config {
	o := applyOptions(nil)
	return Config{
		K:                     o.k,
		Exact:                 o.exact,
		DistanceNorm:          o.distanceNorm,
		DistanceMethod:        o.distanceMethod,
		DistThreshold:         o.distThreshold,
		DoBinarization:        o.doBinarization,
		BinarizationThreshold: o.binarizationThreshold,
		UseSparseMemory:       o.useSparseMemory,
		SparseThreshold:       o.sparseThreshold,
		RelativeThreshold:     o.relativeThreshold,
		NumWinners:            o.numWinners,
		NumSVDSamples:         o.numSVDSamples,
		NumSVDDims:            o.numSVDDims,
		FractionOfMax:         o.fractionOfMax,
		MaxStoredPatterns:     o.maxStoredPatterns,
		ReplaceDuplicates:     o.replaceDuplicates,
		CellsPerCol:           o.cellsPerCol,
		MinSparsity:           o.minSparsity,
		InitialCapacity:       o.initialCapacity,
		Compression:           o.compression,
		BatchConcurrency:      0,
	}
}

// Options converts the configuration into options for New. Options given
// after them override individual parameters.
func (c Config) Options() []Option {
	return []Option{func(o *options) {
		o.k = c.K
		o.exact = c.Exact
		o.distanceNorm = c.DistanceNorm
		o.distanceMethod = c.DistanceMethod
		o.distThreshold = c.DistThreshold
		o.doBinarization = c.DoBinarization
		o.binarizationThreshold = c.BinarizationThreshold
		o.useSparseMemory = c.UseSparseMemory
		o.sparseThreshold = c.SparseThreshold
		o.relativeThreshold = c.RelativeThreshold
		o.numWinners = c.NumWinners
		o.numSVDSamples = c.NumSVDSamples
		o.numSVDDims = c.NumSVDDims
		o.fractionOfMax = c.FractionOfMax
		o.maxStoredPatterns = c.MaxStoredPatterns
		o.replaceDuplicates = c.ReplaceDuplicates
		o.cellsPerCol = c.CellsPerCol
		o.minSparsity = c.MinSparsity
		o.initialCapacity = c.InitialCapacity
		o.compression = c.Compression
		o.batchConcurrency = c.BatchConcurrency
	}}
}

// NewFromConfig creates a classifier from cfg followed by opts.
func NewFromConfig(cfg Config, opts ...Option) (*Classifier, error) {
	return New(append(cfg.Options(), opts...)...)
}

// ConfigFromMap overlays the named parameters in m onto the defaults.
// An unrecognized name yields ErrUnknownOption, a value of the wrong type
// ErrInvalidOption.
func ConfigFromMap(m map[string]any) (Config, error) {
	v := viper.New()
	if err := v.MergeConfigMap(m); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	return decodeConfig(v)
}

// LoadConfig reads the named parameters from a YAML, JSON or TOML file,
// chosen by extension, and from KNN_* environment variables, which take
// precedence. An empty path reads the environment only.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for _, key := range configKeys() {
		if err := v.BindEnv(key); err != nil {
			return Config{}, err
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}
	return decodeConfig(v)
}

func decodeConfig(v *viper.Viper) (Config, error) {
	known := configKeys()
	for _, key := range v.AllKeys() {
		if !slices.Contains(known, key) {
			return Config{}, fmt.Errorf("%w: %s", ErrUnknownOption, key)
		}
	}

	cfg := DefaultConfig()
	// Method, compression and SVD dimension names decode through their
	// UnmarshalText methods.
	err := v.UnmarshalExact(&cfg, viper.DecodeHook(mapstructure.TextUnmarshallerHookFunc()))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	return cfg, nil
}

// configKeys returns the lower-cased mapstructure keys of Config, the form
// in which viper reports keys.
func configKeys() []string {
	t := reflect.TypeFor[Config]()
	keys := make([]string, 0, t.NumField())
	for i := range t.NumField() {
		if tag := t.Field(i).Tag.Get("mapstructure"); tag != "" {
			keys = append(keys, strings.ToLower(tag))
		}
	}
	return keys
}
