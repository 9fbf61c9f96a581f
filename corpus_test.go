package mmjp

import "testing"

func TestParallelEStepMatchesSequentialAccumulation(t *testing.T) {
	tr := seedTrainer(t, []string{"a", "b", "ab"})
	tr.initLogP()
	corpus := toRuneCorpus([]string{"ab", "a", "b", "ab", "ab", "a", "b", "ab"})

	seq, err := parallelEStep(corpus, tr.Pieces.Len(), 1, tr.eStepSentence)
	if err != nil {
		t.Fatalf("parallelEStep(workers=1): %v", err)
	}
	par, err := parallelEStep(corpus, tr.Pieces.Len(), 4, tr.eStepSentence)
	if err != nil {
		t.Fatalf("parallelEStep(workers=4): %v", err)
	}

	if seq.sentences != par.sentences {
		t.Fatalf("sentences mismatch: sequential=%d parallel=%d", seq.sentences, par.sentences)
	}
	if abs64(seq.loglik-par.loglik) > 1e-9 {
		t.Fatalf("loglik mismatch: sequential=%v parallel=%v", seq.loglik, par.loglik)
	}
	if len(seq.counts) != len(par.counts) {
		t.Fatalf("counts length mismatch: sequential=%d parallel=%d", len(seq.counts), len(par.counts))
	}
	for i := range seq.counts {
		if abs64(seq.counts[i]-par.counts[i]) > 1e-9 {
			t.Fatalf("counts[%d] mismatch: sequential=%v parallel=%v", i, seq.counts[i], par.counts[i])
		}
	}
}

func TestParallelEStepPropagatesError(t *testing.T) {
	tr := seedTrainer(t, []string{"a"})
	tr.initLogP()
	corpus := toRuneCorpus([]string{"a", "z", "a"})
	if _, err := parallelEStep(corpus, tr.Pieces.Len(), 4, tr.eStepSentence); ErrorKind(err) != KindNoCover {
		t.Fatalf("expected KindNoCover to propagate from a worker, got %v", err)
	}
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
