package mmjp

import "math"

// RNG is a 32-bit xorshift generator, state threaded explicitly by the
// caller rather than held globally, so sampling stays reproducible
// given a seed.
type RNG struct{ state uint32 }

// NewRNG seeds an RNG; a zero seed is bumped to 1 since xorshift's
// fixed point at 0 never advances.
func NewRNG(seed uint32) *RNG {
	if seed == 0 {
		seed = 1
	}
	return &RNG{state: seed}
}

func (r *RNG) next() uint32 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

// Float64 returns a uniform sample in [0,1) using the generator's top
// 24 bits, enough precision for the FFBS sampler below.
func (r *RNG) Float64() float64 {
	return float64(r.next()>>8) / float64(1<<24)
}

// Sample runs Forward-Filtering Backward-Sampling over b under model
// m at temperature tau (tau > 0; tau -> 0 concentrates on the Viterbi
// path, tau -> infinity approaches the uniform prior over admissible
// edges). Returns byte-index boundaries.
//
// FFBS keeps a full (N+1)x(L+1) float64 log-partition table rather
// than the Viterbi ring buffer: backward sampling revisits arbitrary
// past positions along the sampled path, not just the most recent L+1
// rows, so the ring buffer's O((L+1)^2) footprint cannot serve it.
func Sample(w *WorkArea, m *Model, b []byte, tau float64, rng *RNG) ([]int, error) {
	if tau <= 0 {
		return nil, newErr("Sample", KindBadArg, "temperature must be positive")
	}
	runes, err := DecodeAll(b)
	if err != nil {
		return nil, err
	}
	n := len(runes)
	if n == 0 {
		return []int{0, 0}, nil
	}
	if err := precompute(w, m, b, runes); err != nil {
		return nil, err
	}

	l := w.l
	idx := func(pos, k int) int { return pos*(l+1) + k }
	alpha := make([]float64, (n+1)*(l+1))
	for i := range alpha {
		alpha[i] = math.Inf(-1)
	}
	alpha[idx(0, 0)] = q88ToFloat(m.CRF.BOSTo1) / tau

	for pos := 1; pos <= n; pos++ {
		maxK := l
		if maxK > pos {
			maxK = pos
		}
		for k := 1; k <= maxK; k++ {
			s := pos - k
			jLo, jHi := 1, l
			if s == 0 {
				jLo, jHi = 0, 0
			}
			if jHi > s {
				jHi = s
			}
			var vals []float64
			for j := jLo; j <= jHi; j++ {
				av := alpha[idx(s, j)]
				if math.IsInf(av, -1) {
					continue
				}
				edge := q88ToFloat32(edgeWeight(w, m, s, j, k)) / tau
				vals = append(vals, av+edge)
			}
			alpha[idx(pos, k)] = logSumExpN(vals)
		}
	}

	maxK := l
	if maxK > n {
		maxK = n
	}
	var terminal []float64
	for k := 1; k <= maxK; k++ {
		terminal = append(terminal, alpha[idx(n, k)])
	}
	logZ := logSumExpN(terminal)
	if math.IsInf(logZ, -1) {
		return nil, newErr("Sample", KindNoCover, "no path spans the input under the current vocabulary and max word length")
	}

	k := sampleIndex(terminal, logZ, rng) + 1
	var boundsCP []int
	pos, curK := n, k
	boundsCP = append(boundsCP, pos)
	for pos > 0 {
		s := pos - curK
		jLo, jHi := 1, l
		if s == 0 {
			jLo, jHi = 0, 0
		}
		if jHi > s {
			jHi = s
		}
		var weights []float64
		var js []int
		for j := jLo; j <= jHi; j++ {
			av := alpha[idx(s, j)]
			if math.IsInf(av, -1) {
				continue
			}
			edge := q88ToFloat32(edgeWeight(w, m, s, j, curK)) / tau
			weights = append(weights, av+edge-alpha[idx(pos, curK)])
			js = append(js, j)
		}
		sel := sampleIndex(weights, 0, rng)
		j := js[sel]
		boundsCP = append(boundsCP, s)
		pos, curK = s, j
	}

	for i, jx := 0, len(boundsCP)-1; i < jx; i, jx = i+1, jx-1 {
		boundsCP[i], boundsCP[jx] = boundsCP[jx], boundsCP[i]
	}
	bytesB := make([]int, len(boundsCP))
	for i, cp := range boundsCP {
		bytesB[i] = w.Offsets[cp]
	}
	return bytesB, nil
}

// sampleIndex draws an index from logWeights under softmax(logWeights
// - logNorm), using rng for a single uniform draw. logWeights entries
// of -Inf are excluded from the support entirely (never selected).
func sampleIndex(logWeights []float64, logNorm float64, rng *RNG) int {
	u := rng.Float64()
	cum := 0.0
	last := 0
	for i, lw := range logWeights {
		if math.IsInf(lw, -1) {
			continue
		}
		cum += math.Exp(lw - logNorm)
		last = i
		if u < cum {
			return i
		}
	}
	return last
}
