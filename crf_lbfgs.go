package mmjp

import (
	"math"

	"github.com/lwch/logging"
)

// paramVector flattens a TrainableCRF's parameters (4 transitions plus
// every feature currently present) into a dense vector for L-BFGS,
// and provides the inverse mapping back onto the model.
type paramVector struct {
	keys []uint32 // feature keys, fixed order for the lifetime of one LBFGS run
}

func newParamVector(c *TrainableCRF) *paramVector {
	pv := &paramVector{}
	for k := range c.Feat {
		pv.keys = append(pv.keys, k)
	}
	return pv
}

// dim excludes BOSTo1: it is a fixed decoder-time constant, never a
// trained CRF parameter (see the comment on TrainableCRF.grad).
func (pv *paramVector) dim() int { return 4 + len(pv.keys) }

func (pv *paramVector) get(c *TrainableCRF) []float64 {
	v := make([]float64, pv.dim())
	v[0], v[1], v[2], v[3] = c.Trans00, c.Trans01, c.Trans10, c.Trans11
	for i, k := range pv.keys {
		v[4+i] = c.Feat[k]
	}
	return v
}

func (pv *paramVector) set(c *TrainableCRF, v []float64) {
	c.Trans00, c.Trans01, c.Trans10, c.Trans11 = v[0], v[1], v[2], v[3]
	for i, k := range pv.keys {
		c.Feat[k] = v[4+i]
	}
}

// gradVector builds the (negated, penalized, normalized) gradient of
// f = -(loglik - l2Penalty)/totalPos over the full dataset, matching
// the objective TrainLBFGS minimizes.
func (pv *paramVector) gradVector(c *TrainableCRF, data []Sentence) (f float64, grad []float64) {
	var gTrans [4]float64
	gFeat := make(map[uint32]float64, len(pv.keys))
	var ll float64
	var totalPos int
	for _, s := range data {
		ll += c.grad(s, &gTrans, gFeat)
		totalPos += len(s.Classes)
	}
	if totalPos == 0 {
		return 0, make([]float64, pv.dim())
	}
	pen := c.l2Penalty()
	f = -(ll - pen) / float64(totalPos)

	grad = make([]float64, pv.dim())
	// grad(f) = -(gradLL - L2*w)/totalPos; gTrans/gFeat already hold
	// (empirical - expected), i.e. +gradLL, so flip sign here.
	grad[0] = -(gTrans[0] - c.L2*c.Trans00) / float64(totalPos)
	grad[1] = -(gTrans[1] - c.L2*c.Trans01) / float64(totalPos)
	grad[2] = -(gTrans[2] - c.L2*c.Trans10) / float64(totalPos)
	grad[3] = -(gTrans[3] - c.L2*c.Trans11) / float64(totalPos)
	for i, k := range pv.keys {
		grad[4+i] = -(gFeat[k] - c.L2*c.Feat[k]) / float64(totalPos)
	}
	return f, grad
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm2(a []float64) float64 { return math.Sqrt(dot(a, a)) }

func axpy(dst []float64, alpha float64, x []float64) {
	for i := range dst {
		dst[i] += alpha * x[i]
	}
}

// lbfgsHistory is a ring buffer of the m most recent (s,y) curvature
// pairs used by the two-loop recursion below.
type lbfgsHistory struct {
	s, y   [][]float64
	rho    []float64
	m      int
	filled int
	head   int
}

func newLBFGSHistory(m int) *lbfgsHistory {
	if m < 1 {
		m = 1
	}
	if m > 32 {
		m = 32
	}
	return &lbfgsHistory{
		s: make([][]float64, m), y: make([][]float64, m), rho: make([]float64, m), m: m,
	}
}

func (h *lbfgsHistory) reset() { h.filled, h.head = 0, 0 }

func (h *lbfgsHistory) push(s, y []float64, rho float64) {
	h.s[h.head], h.y[h.head], h.rho[h.head] = s, y, rho
	h.head = (h.head + 1) % h.m
	if h.filled < h.m {
		h.filled++
	}
}

// twoLoop computes the L-BFGS search direction -H*grad via the
// standard two-loop recursion, with initial Hessian scale
// H0 = s^T y / y^T y from the most recent pair.
func (h *lbfgsHistory) twoLoop(grad []float64) []float64 {
	q := make([]float64, len(grad))
	copy(q, grad)
	if h.filled == 0 {
		for i := range q {
			q[i] = -q[i]
		}
		return q
	}
	alpha := make([]float64, h.filled)
	order := make([]int, h.filled)
	for i := 0; i < h.filled; i++ {
		order[i] = (h.head - 1 - i + h.m) % h.m
	}
	for i, idx := range order {
		a := h.rho[idx] * dot(h.s[idx], q)
		alpha[i] = a
		axpy(q, -a, h.y[idx])
	}
	lastIdx := order[0]
	yy := dot(h.y[lastIdx], h.y[lastIdx])
	h0 := 1.0
	if yy > 0 {
		h0 = dot(h.s[lastIdx], h.y[lastIdx]) / yy
	}
	for i := range q {
		q[i] *= h0
	}
	for i := h.filled - 1; i >= 0; i-- {
		idx := order[i]
		beta := h.rho[idx] * dot(h.y[idx], q)
		axpy(q, alpha[i]-beta, h.s[idx])
	}
	for i := range q {
		q[i] = -q[i]
	}
	return q
}

// LBFGSConfig configures the L-BFGS driver.
type LBFGSConfig struct {
	MaxIters int
	History  int // m, clamped to [1,32]
	Tol      float64
}

// TrainLBFGS minimizes f = -(loglik - l2Penalty)/totalPos with Armijo
// backtracking line search (c1=1e-4, up to 20 evaluations, halving the
// step after each rejected one), resetting
// history on a failed descent direction and skipping the curvature
// update when s^T y <= 1e-12 (too close to zero to safely invert).
func (c *TrainableCRF) TrainLBFGS(data []Sentence, cfg LBFGSConfig) []float64 {
	pv := newParamVector(c)
	hist := newLBFGSHistory(cfg.History)
	x := pv.get(c)
	f, grad := pv.gradVector(c, data)
	var history []float64
	history = append(history, f)

	for iter := 1; iter <= cfg.MaxIters; iter++ {
		if norm2(grad) < cfg.Tol {
			logging.Info("crf lbfgs converged at iter %d, f=%.6f |g|=%.6g", iter, f, norm2(grad))
			break
		}
		dir := hist.twoLoop(grad)
		if dot(dir, grad) >= 0 {
			hist.reset()
			dir = make([]float64, len(grad))
			copy(dir, grad)
			for i := range dir {
				dir[i] = -dir[i]
			}
		}

		const c1 = 1e-4
		step := 1.0
		gDotDir := dot(grad, dir)
		var newX, newGrad []float64
		var newF float64
		accepted := false
		for eval := 0; eval < 20; eval++ {
			newX = make([]float64, len(x))
			copy(newX, x)
			axpy(newX, step, dir)
			pv.set(c, newX)
			newF, newGrad = pv.gradVector(c, data)
			if newF <= f+c1*step*gDotDir {
				accepted = true
				break
			}
			step *= 0.5
		}
		if !accepted {
			pv.set(c, x) // restore, line search failed entirely
			logging.Info("crf lbfgs iter %d: line search failed, stopping", iter)
			break
		}

		s := make([]float64, len(x))
		for i := range s {
			s[i] = newX[i] - x[i]
		}
		y := make([]float64, len(grad))
		for i := range y {
			y[i] = newGrad[i] - grad[i]
		}
		sy := dot(s, y)
		if sy > 1e-12 {
			hist.push(s, y, 1.0/sy)
		}

		x, grad = newX, newGrad
		prevF := f
		f = newF
		history = append(history, f)
		logging.Info("crf lbfgs iter %d, f=%.6f step=%.4g", iter, f, step)
		if f >= prevF {
			// A non-decreasing step means the line search accepted a
			// degenerate point; reset history and keep going rather
			// than diverging.
			hist.reset()
		}
	}
	return history
}
