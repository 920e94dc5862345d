// Package safeconv provides checked integer conversions for byte offsets
// reported by the tree-sitter runtime and for humanized byte sizes.
package safeconv

import "math"

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// SafeInt64 converts uint64 to int64, clamping to math.MaxInt64.
func SafeInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(v)
}

// MustUintToInt converts uint to int, panics on overflow.
// Use only when overflow is logically impossible.
func MustUintToInt(v uint) int {
	if v > uint(MaxInt) {
		panic("safeconv: uint to int overflow")
	}

	return int(v)
}

// Slice returns the [start, end) window of src for offsets reported as
// unsigned values. ok is false when the window does not fit src.
func Slice(src []byte, start, end uint) (window []byte, ok bool) {
	lo, hi := MustUintToInt(start), MustUintToInt(end)
	if lo > hi || hi > len(src) {
		return nil, false
	}

	return src[lo:hi], true
}
