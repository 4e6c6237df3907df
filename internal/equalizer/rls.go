package equalizer

import "gonum.org/v1/gonum/mat"

// rlsInitGain sets the initial inverse correlation matrix P(0) = gain * I.
const rlsInitGain = 100.0

// rls holds the inverse correlation matrix for the recursive least-squares
// update with exponential forgetting. One instance covers the combined
// regressor (feedforward plus feedback for the DFE).
type rls struct {
	lambda float64
	p      *mat.Dense
	pu     *mat.VecDense
	k      *mat.VecDense
	outer  *mat.Dense
}

func newRLS(n int, lambda float64) *rls {
	p := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		p.Set(i, i, rlsInitGain)
	}
	return &rls{
		lambda: lambda,
		p:      p,
		pu:     mat.NewVecDense(n, nil),
		k:      mat.NewVecDense(n, nil),
		outer:  mat.NewDense(n, n, nil),
	}
}

// update performs one RLS iteration for regressor u and a-priori error e,
// correcting w in place:
//
//	k = P u / (λ + uᵀ P u)
//	w = w + e k
//	P = (P - k uᵀ P) / λ
func (r *rls) update(w, u []float64, e float64) {
	uv := mat.NewVecDense(len(u), u)

	r.pu.MulVec(r.p, uv)
	den := r.lambda + mat.Dot(uv, r.pu)
	r.k.ScaleVec(1/den, r.pu)

	for i := range w {
		w[i] += e * r.k.AtVec(i)
	}

	// P is symmetric, so uᵀP is (P u)ᵀ.
	r.outer.Outer(1, r.k, r.pu)
	r.p.Sub(r.p, r.outer)
	r.p.Scale(1/r.lambda, r.p)
}

// lmsUpdate performs one least-mean-squares gradient step on w in place.
func lmsUpdate(w, u []float64, e, mu float64) {
	for i := range w {
		w[i] += mu * e * u[i]
	}
}
