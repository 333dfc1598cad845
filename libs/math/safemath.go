package math

import (
	"errors"
	"math"

	"github.com/holiman/uint256"
)

var ErrOverflowInt64 = errors.New("int64 overflow")

// SafeAdd adds two int64 numbers. If there is an overflow, the function will
// return -1, true.
func SafeAdd(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return -1, true
	} else if b < 0 && a < math.MinInt64-b {
		return -1, true
	}
	return a + b, false
}

// SafeAddClip performs SafeAdd, however if there is an overflow it will
// return the maxInt64 or minInt64 depending on the direction.
func SafeAddClip(a, b int64) int64 {
	c, overflow := SafeAdd(a, b)
	if overflow {
		if b < 0 {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return c
}

// SafeConvertUint64 converts a non-negative int64 to a uint64.
func SafeConvertUint64(a int64) (uint64, error) {
	if a < 0 {
		return 0, ErrOverflowInt64
	}
	return uint64(a), nil
}

// MulCmp compares a*b with c*d. The products are computed on 256-bit
// integers, so no input can overflow. The result is -1 if a*b < c*d, 0 if
// they are equal and +1 otherwise.
func MulCmp(a, b, c, d uint64) int {
	left := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	right := new(uint256.Int).Mul(uint256.NewInt(c), uint256.NewInt(d))
	return left.Cmp(right)
}
