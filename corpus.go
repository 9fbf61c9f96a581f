package mmjp

import (
	"runtime"
	"sync"
)

// Bounded-goroutine corpus fan-out for the EM E-step: a fixed pool of
// workers pulls sentence indices off a channel and each worker
// accumulates into its own eStepResult, merged once all workers finish
// rather than contending on a single shared accumulator.

// parallelEStep runs fn over every sentence in corpus using up to
// workers goroutines, merging each worker's partial eStepResult into
// one. A worker that hits an error stops; the other workers still
// drain the remaining indices, and once all have finished the error
// of the lowest-numbered failing worker is returned and every partial
// result is discarded.
func parallelEStep(corpus [][]rune, vocabSize, workers int, fn func([]rune, *eStepResult) error) (*eStepResult, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(corpus) {
		workers = len(corpus)
	}
	if workers <= 1 {
		acc := &eStepResult{counts: make([]float64, vocabSize)}
		for _, sent := range corpus {
			if err := fn(sent, acc); err != nil {
				return nil, err
			}
		}
		return acc, nil
	}

	idx := make(chan int, len(corpus))
	for i := range corpus {
		idx <- i
	}
	close(idx)

	partials := make([]*eStepResult, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			acc := &eStepResult{counts: make([]float64, vocabSize)}
			for i := range idx {
				if err := fn(corpus[i], acc); err != nil {
					errs[w] = err
					return
				}
			}
			partials[w] = acc
		}(w)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	merged := &eStepResult{counts: make([]float64, vocabSize)}
	for _, p := range partials {
		if p == nil {
			continue
		}
		merged.sentences += p.sentences
		merged.loglik += p.loglik
		merged.tokens += p.tokens
		for i, c := range p.counts {
			merged.counts[i] += c
		}
	}
	return merged, nil
}
