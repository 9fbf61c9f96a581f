package mmjp

import "testing"

func TestTrainLBFGSObjectiveMonotoneNonIncreasing(t *testing.T) {
	c := NewTrainableCRF(0.01)
	data := []Sentence{sampleSentence(), sampleSentence()}
	history := c.TrainLBFGS(data, LBFGSConfig{MaxIters: 10, History: 5, Tol: 1e-10})
	if len(history) < 2 {
		t.Fatalf("expected at least an initial and one updated objective value, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i] > history[i-1]+1e-9 {
			t.Fatalf("objective increased at accepted step %d: %v -> %v", i, history[i-1], history[i])
		}
	}
}

func TestTrainLBFGSExcludesBOSTo1FromParamVector(t *testing.T) {
	c := NewTrainableCRF(0)
	c.BOSTo1 = 7.5
	data := []Sentence{sampleSentence()}
	c.TrainLBFGS(data, LBFGSConfig{MaxIters: 3, History: 3, Tol: 1e-10})
	if c.BOSTo1 != 7.5 {
		t.Fatalf("BOSTo1 should be left untouched by L-BFGS, got %v", c.BOSTo1)
	}
}

func TestParamVectorGetSetRoundTrip(t *testing.T) {
	c := NewTrainableCRF(0)
	c.Trans00, c.Trans01, c.Trans10, c.Trans11 = 1, 2, 3, 4
	c.Feat[FeatureKey(TemplateCur, 1, ClassAlpha, 0)] = 9
	pv := newParamVector(c)
	v := pv.get(c)
	if len(v) != pv.dim() {
		t.Fatalf("get() length %d != dim() %d", len(v), pv.dim())
	}
	for i := range v {
		v[i] *= 2
	}
	pv.set(c, v)
	if c.Trans00 != 2 || c.Trans01 != 4 || c.Trans10 != 6 || c.Trans11 != 8 {
		t.Fatalf("set() did not round trip transitions: %v %v %v %v", c.Trans00, c.Trans01, c.Trans10, c.Trans11)
	}
}

func TestLBFGSHistoryTwoLoopNoHistoryIsSteepestDescent(t *testing.T) {
	h := newLBFGSHistory(5)
	grad := []float64{1, 2, 3}
	dir := h.twoLoop(grad)
	for i := range dir {
		if dir[i] != -grad[i] {
			t.Fatalf("with no history, direction should be -grad: dir[%d]=%v want %v", i, dir[i], -grad[i])
		}
	}
}
