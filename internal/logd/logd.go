// Package logd stores real numbers as a sign and a log magnitude so long
// products of probabilities neither underflow nor overflow.
package logd

import (
	"fmt"
	"math"
)

// #region value
// Value is sign * exp(log). The zero value of the struct is the number zero.
type Value struct {
	sign int8
	log  float64
}

// Zero is the number 0.
var Zero = Value{}

// One is the number 1.
var One = Value{sign: 1}

// Exp returns e^x without leaving log space.
func Exp(x float64) Value {
	return Value{sign: 1, log: x}
}

// New converts a linear-domain number.
func New(x float64) Value {
	switch {
	case x > 0:
		return Value{sign: 1, log: math.Log(x)}
	case x < 0:
		return Value{sign: -1, log: math.Log(-x)}
	default:
		return Zero
	}
}

// Sign is -1, 0 or 1.
func (v Value) Sign() int { return int(v.sign) }

// IsZero reports whether v is exactly zero.
func (v Value) IsZero() bool { return v.sign == 0 }

// Log returns log|v|; -Inf for zero.
func (v Value) Log() float64 {
	if v.sign == 0 {
		return math.Inf(-1)
	}
	return v.log
}

// Float converts back to the linear domain; may overflow to ±Inf.
func (v Value) Float() float64 {
	return float64(v.sign) * math.Exp(v.log)
}

func (v Value) String() string {
	switch v.sign {
	case 0:
		return "0"
	case 1:
		return fmt.Sprintf("exp(%g)", v.log)
	default:
		return fmt.Sprintf("-exp(%g)", v.log)
	}
}

// #endregion value

// #region arithmetic
// Mul multiplies in log space.
func (v Value) Mul(o Value) Value {
	if v.sign == 0 || o.sign == 0 {
		return Zero
	}
	return Value{sign: v.sign * o.sign, log: v.log + o.log}
}

// #endregion arithmetic

// #region compare
// Greater reports whether v > o. Positive beats non-positive; two positives
// compare magnitudes directly, two negatives inversely.
func (v Value) Greater(o Value) bool {
	return Compare(v, o) > 0
}

// Compare returns -1, 0 or 1 as a is less than, equal to or greater than b.
func Compare(a, b Value) int {
	if a.sign != b.sign {
		if a.sign > b.sign {
			return 1
		}
		return -1
	}
	switch {
	case a.sign == 0 || a.log == b.log:
		return 0
	case a.sign > 0 && a.log > b.log, a.sign < 0 && a.log < b.log:
		return 1
	default:
		return -1
	}
}

// #endregion compare
