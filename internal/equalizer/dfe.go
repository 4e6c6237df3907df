package equalizer

// DFE is a decision-feedback equalizer: a feedforward section over received
// samples plus a feedback section over past symbol decisions. While training
// data remains the feedback line carries the known symbols; afterwards it
// carries hard decisions, so a wrong decision can propagate into the next
// few symbols. That burstier error behavior is inherent to the structure.
type DFE struct {
	cfg   Config
	w     []float64 // combined weights: [forward | feedback]
	u     []float64 // combined regressor, aligned with w
	rls   *rls
	first bool
}

// NewDFE creates a decision-feedback equalizer.
func NewDFE(cfg Config) (*DFE, error) {
	if err := cfg.validate(true); err != nil {
		return nil, err
	}
	e := &DFE{cfg: cfg}
	e.Reset()
	return e, nil
}

// Delay returns the group delay of the equalized output.
func (e *DFE) Delay() int { return e.cfg.RefTap }

// Reset releases all convergence state, as between Eb/No points.
func (e *DFE) Reset() {
	n := e.cfg.ForwardTaps + e.cfg.FeedbackTaps
	e.w = make([]float64, n)
	e.u = make([]float64, n)
	e.rls = newRLS(n, e.cfg.Forgetting)
	e.first = true
}

// Weights returns a copy of the combined tap weights.
func (e *DFE) Weights() []float64 {
	out := make([]float64, len(e.w))
	copy(out, e.w)
	return out
}

// Equalize filters one received block, adapting per symbol.
func (e *DFE) Equalize(received, training []float64) []float64 {
	nf := e.cfg.ForwardTaps
	ff := e.u[:nf]
	fb := e.u[nf:]

	out := make([]float64, len(received))
	for n, x := range received {
		pushFront(ff, x)
		y := dot(e.w, e.u)
		out[n] = y

		idx := n - e.cfg.RefTap
		if idx < 0 {
			// No aligned symbol yet; feed back a neutral zero.
			pushFront(fb, 0)
			continue
		}
		d := e.cfg.Slicer(y)
		if idx < len(training) {
			d = training[idx]
		}

		err := d - y
		if e.first {
			e.rls.update(e.w, e.u, err)
		} else {
			lmsUpdate(e.w, e.u, err, e.cfg.StepSize)
		}

		pushFront(fb, d)
	}

	if e.first {
		e.first = false
		e.rls = nil
	}
	return out
}
