package mmjp

import (
	"math"
	"testing"
)

func TestFloatToQ88RoundTrip(t *testing.T) {
	for _, f := range []float64{0, 1, -1, 0.5, -0.5, 127.99, -128} {
		q := floatToQ88(f)
		back := q88ToFloat(q)
		if math.Abs(back-f) > 1.0/Q88Scale {
			t.Fatalf("floatToQ88(%v) -> %v -> %v, drift too large", f, q, back)
		}
	}
}

func TestFloatToQ88Saturates(t *testing.T) {
	if got := floatToQ88(1e9); got != q88Max {
		t.Fatalf("expected saturation to q88Max, got %d", got)
	}
	if got := floatToQ88(-1e9); got != q88Min {
		t.Fatalf("expected saturation to q88Min, got %d", got)
	}
}

func TestFloatToQ88NaN(t *testing.T) {
	if got := floatToQ88(math.NaN()); got != 0 {
		t.Fatalf("expected 0 for NaN, got %d", got)
	}
}

func TestAddQ88SatNoWrap(t *testing.T) {
	a := int32(math.MaxInt32 - 10)
	got := addQ88Sat(a, int32(100))
	if got != math.MaxInt32 {
		t.Fatalf("expected saturated to MaxInt32, got %d", got)
	}
}

func TestAddQ88SatNegInfPropagates(t *testing.T) {
	if got := addQ88Sat(NegInf, 500); got != NegInf {
		t.Fatalf("expected NegInf to propagate, got %d", got)
	}
}

func TestQ88MulIdentity(t *testing.T) {
	one := floatToQ88(1.0)
	v := floatToQ88(3.5)
	if got := q88Mul(one, v); got != v {
		t.Fatalf("multiplying by 1.0 in Q8.8 should be identity, got %d want %d", got, v)
	}
}

func TestLogSumExpIdentities(t *testing.T) {
	if got := logSumExp(math.Inf(-1), 5); got != 5 {
		t.Fatalf("lse(-inf,5) = %v, want 5", got)
	}
	if got := logSumExp(5, math.Inf(-1)); got != 5 {
		t.Fatalf("lse(5,-inf) = %v, want 5", got)
	}
	got := logSumExp(0, 0)
	want := math.Log(2)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("lse(0,0) = %v, want %v", got, want)
	}
}

func TestLogSumExpNAllNegInf(t *testing.T) {
	got := logSumExpN([]float64{math.Inf(-1), math.Inf(-1)})
	if !math.IsInf(got, -1) {
		t.Fatalf("expected -Inf, got %v", got)
	}
}

func TestLogSumExpNMatchesPairwise(t *testing.T) {
	vs := []float64{1.0, 2.0, 3.0, math.Inf(-1)}
	got := logSumExpN(vs)
	want := logSumExp(logSumExp(1.0, 2.0), 3.0)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("logSumExpN = %v, want %v", got, want)
	}
}
