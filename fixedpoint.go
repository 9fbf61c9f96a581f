package mmjp

import "math"

// Q8.8 signed fixed-point scores. Scale is 256: a Q8.8 value v
// represents the real number v/256.
const (
	Q88Scale = 256

	q88Max = math.MaxInt16
	q88Min = math.MinInt16

	// NegInf is the DP sentinel for "not yet reached" / "unreachable".
	// Deliberately far from any saturated int16/int32 score so a stray
	// addition of a couple of saturated terms cannot accidentally wrap
	// back into a plausible score range.
	NegInf int32 = -0x3fffffff
)

// saturateI16 clamps v into the int16 range.
func saturateI16(v int64) int16 {
	if v > q88Max {
		return q88Max
	}
	if v < q88Min {
		return q88Min
	}
	return int16(v)
}

// saturateI32 clamps v into the int32 range, used for accumulated
// segment/path scores that are still kept in Q8.8 units but widened to
// avoid overflow across many additions.
func saturateI32(v int64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

// addQ88Sat adds two Q8.8-scaled int32 accumulators with saturation.
func addQ88Sat(a, b int32) int32 {
	if a <= NegInf || b <= NegInf {
		return NegInf
	}
	return saturateI32(int64(a) + int64(b))
}

// q88Mul multiplies two Q8.8 values, keeping the product in Q8.8 with a
// 64-bit intermediate: (a*b) >> 8.
func q88Mul(a, b int16) int16 {
	return saturateI16((int64(a) * int64(b)) >> 8)
}

// q88MulWide multiplies a Q8.8 int32 accumulator by a Q8.8 int16
// coefficient, keeping the Q8.8 scale.
func q88MulWide(a int32, b int16) int32 {
	if a <= NegInf {
		return NegInf
	}
	return saturateI32((int64(a) * int64(b)) >> 8)
}

// floatToQ88 converts an f64 real value to its Q8.8 int16
// representation, saturating on overflow.
func floatToQ88(v float64) int16 {
	if math.IsNaN(v) {
		return 0
	}
	return saturateI16(int64(math.Round(v * Q88Scale)))
}

// q88ToFloat converts a Q8.8 int16 back to an f64 real value.
func q88ToFloat(v int16) float64 {
	return float64(v) / Q88Scale
}

// q88ToFloat32 converts a Q8.8 int32 accumulator back to an f64 real
// value.
func q88ToFloat32(v int32) float64 {
	return float64(v) / Q88Scale
}

// logSumExp computes ln(exp(a)+exp(b)) in double precision, used only
// by the training-time code paths (forward-backward, EM). -Inf is
// treated as a proper identity element; NaN never escapes because a
// and b are always finite or -Inf by construction of the callers.
func logSumExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	m := a
	if b > m {
		m = b
	}
	return m + math.Log(math.Exp(a-m)+math.Exp(b-m))
}

// logSumExpN folds logSumExp over a slice, skipping -Inf entries. An
// all -Inf slice returns -Inf.
func logSumExpN(vs []float64) float64 {
	acc := math.Inf(-1)
	for _, v := range vs {
		acc = logSumExp(acc, v)
	}
	return acc
}
