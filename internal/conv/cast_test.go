package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntToUint32(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := IntToUint32(123)
		require.NoError(t, err)
		assert.Equal(t, uint32(123), got)
	})

	t.Run("negative", func(t *testing.T) {
		_, err := IntToUint32(-1)
		assert.Error(t, err)
	})

	t.Run("max uint32", func(t *testing.T) {
		got, err := IntToUint32(math.MaxUint32)
		require.NoError(t, err)
		assert.Equal(t, uint32(math.MaxUint32), got)
	})
}

func TestIntToUint64(t *testing.T) {
	got, err := IntToUint64(math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxInt), got)

	_, err = IntToUint64(-5)
	assert.Error(t, err)
}

func TestUint64ToInt(t *testing.T) {
	got, err := Uint64ToInt(42)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = Uint64ToInt(math.MaxUint64)
	assert.Error(t, err)
}

func TestLength(t *testing.T) {
	tests := []struct {
		name    string
		v       uint64
		limit   int
		want    int
		wantErr bool
	}{
		{"NoLimit", 1 << 20, 0, 1 << 20, false},
		{"WithinLimit", 10, 10, 10, false},
		{"AboveLimit", 11, 10, 0, true},
		{"Overflow", math.MaxUint64, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Length(tt.v, tt.limit)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
