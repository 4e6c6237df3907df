package equalizer

// Linear is a feedforward-only adaptive equalizer.
type Linear struct {
	cfg   Config
	w     []float64 // tap weights
	line  []float64 // input delay line, most recent sample first
	rls   *rls
	first bool // RLS phase, true until the first block completes
}

// NewLinear creates a linear equalizer. The configuration is validated and
// rejected before anything runs.
func NewLinear(cfg Config) (*Linear, error) {
	if err := cfg.validate(false); err != nil {
		return nil, err
	}
	e := &Linear{cfg: cfg}
	e.Reset()
	return e, nil
}

// Delay returns the group delay of the equalized output.
func (e *Linear) Delay() int { return e.cfg.RefTap }

// Reset releases all convergence state: fresh zero weights, cleared delay
// line, and the RLS phase re-armed. Required between Eb/No points.
func (e *Linear) Reset() {
	e.w = make([]float64, e.cfg.ForwardTaps)
	e.line = make([]float64, e.cfg.ForwardTaps)
	e.rls = newRLS(e.cfg.ForwardTaps, e.cfg.Forgetting)
	e.first = true
}

// Weights returns a copy of the current tap weights.
func (e *Linear) Weights() []float64 {
	out := make([]float64, len(e.w))
	copy(out, e.w)
	return out
}

// Equalize filters one received block, adapting per symbol. Known training
// symbols drive the adaptation while available; afterwards the equalizer is
// decision-directed.
func (e *Linear) Equalize(received, training []float64) []float64 {
	out := make([]float64, len(received))
	for n, x := range received {
		pushFront(e.line, x)
		y := dot(e.w, e.line)
		out[n] = y

		// The output at n estimates the symbol sent at n-RefTap. Before the
		// reference tap fills there is no aligned desired value to adapt on.
		idx := n - e.cfg.RefTap
		if idx < 0 {
			continue
		}
		d := e.cfg.Slicer(y)
		if idx < len(training) {
			d = training[idx]
		}

		err := d - y
		if e.first {
			e.rls.update(e.w, e.line, err)
		} else {
			lmsUpdate(e.w, e.line, err, e.cfg.StepSize)
		}
	}

	if e.first {
		e.first = false
		e.rls = nil // LMS takes over; the matrix is not needed again until Reset
	}
	return out
}
