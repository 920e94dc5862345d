package safeconv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMustUintToInt(t *testing.T) {
	t.Parallel()

	t.Run("normal_value", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, 42, MustUintToInt(42))
	})

	t.Run("max_int", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, MaxInt, MustUintToInt(uint(MaxInt)))
	})

	t.Run("overflow_panics", func(t *testing.T) {
		t.Parallel()

		assert.PanicsWithValue(t, "safeconv: uint to int overflow", func() {
			MustUintToInt(uint(MaxInt) + 1)
		})
	})
}

func TestSlice(t *testing.T) {
	t.Parallel()

	src := []byte("import a from 'lib';")

	window, ok := Slice(src, 7, 8)
	assert.True(t, ok)
	assert.Equal(t, "a", string(window))

	_, ok = Slice(src, 8, 7)
	assert.False(t, ok)

	_, ok = Slice(src, 0, uint(len(src)+1))
	assert.False(t, ok)
}

func TestSafeInt64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(64), SafeInt64(64))
	assert.Equal(t, int64(math.MaxInt64), SafeInt64(math.MaxInt64))
	assert.Equal(t, int64(math.MaxInt64), SafeInt64(math.MaxUint64))
}
