package channel

import "fmt"

// FIR is a dispersive channel modeled as a finite impulse response filter.
// The delay line persists across Apply calls so successive blocks are
// filtered seamlessly, with no transients at block boundaries.
type FIR struct {
	taps  []float64
	state []float64 // previous len(taps)-1 input samples, most recent first
}

// NewFIR creates a FIR channel with the given impulse response.
func NewFIR(taps []float64) (*FIR, error) {
	if len(taps) == 0 {
		return nil, fmt.Errorf("fir channel: impulse response is empty")
	}
	f := &FIR{taps: make([]float64, len(taps))}
	copy(f.taps, taps)
	f.Reset()
	return f, nil
}

// Apply filters one block and carries the tail state into the next call.
func (f *FIR) Apply(block []float64) []float64 {
	out := make([]float64, len(block))
	for n := range block {
		acc := f.taps[0] * block[n]
		for k := 1; k < len(f.taps); k++ {
			if n-k >= 0 {
				acc += f.taps[k] * block[n-k]
			} else {
				acc += f.taps[k] * f.state[k-n-1]
			}
		}
		out[n] = acc
	}

	// Save the most recent inputs for the next block. Blocks shorter than
	// the channel memory shift the surviving part of the old state down.
	next := make([]float64, len(f.state))
	for i := range next {
		if idx := len(block) - 1 - i; idx >= 0 {
			next[i] = block[idx]
		} else {
			next[i] = f.state[-idx-1]
		}
	}
	f.state = next
	return out
}

// Reset clears the delay line. Called between Eb/No points.
func (f *FIR) Reset() {
	f.state = make([]float64, len(f.taps)-1)
}

// Taps returns a copy of the impulse response.
func (f *FIR) Taps() []float64 {
	out := make([]float64, len(f.taps))
	copy(out, f.taps)
	return out
}

// Memory returns the channel memory in symbols (length - 1).
func (f *FIR) Memory() int { return len(f.taps) - 1 }
