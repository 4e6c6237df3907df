// Package equalizer implements symbol-spaced adaptive equalizers for
// dispersive channels. Both variants share the same update schedule: a
// recursive least-squares pass on the first block after a reset for fast
// initial convergence, then least-mean-squares tracking on subsequent blocks.
package equalizer

import "fmt"

// Equalizer is the contract shared by the linear and decision-feedback
// variants. The variant is chosen once at setup.
//
// Equalize processes one received block and returns the soft output, one
// sample per input symbol. training holds the known transmitted symbols for
// the start of the block; once it is exhausted the equalizer runs
// decision-directed. The output has a fixed group delay of Delay() symbols:
// out[n] estimates the symbol transmitted at n-Delay().
type Equalizer interface {
	Equalize(received, training []float64) []float64
	Delay() int
	Reset()
}

// Config describes the equalizer geometry and adaptation constants.
type Config struct {
	ForwardTaps  int // feedforward tap count
	FeedbackTaps int // feedback tap count, 0 for the linear variant
	RefTap       int // reference tap index, the group delay of the output

	Forgetting float64 // RLS forgetting factor, <1 and close to 1
	StepSize   float64 // LMS step size

	// Slicer maps a soft output to the nearest constellation level. Used for
	// decision-directed adaptation and DFE feedback.
	Slicer func(float64) float64
}

func (c Config) validate(needFeedback bool) error {
	if c.ForwardTaps < 1 {
		return fmt.Errorf("equalizer: forward tap count %d, need >= 1", c.ForwardTaps)
	}
	if c.RefTap < 0 || c.RefTap >= c.ForwardTaps {
		return fmt.Errorf("equalizer: reference tap %d outside [0, %d)", c.RefTap, c.ForwardTaps)
	}
	if needFeedback && c.FeedbackTaps < 1 {
		return fmt.Errorf("equalizer: dfe needs >= 1 feedback tap, got %d", c.FeedbackTaps)
	}
	if !needFeedback && c.FeedbackTaps != 0 {
		return fmt.Errorf("equalizer: linear variant cannot have %d feedback taps", c.FeedbackTaps)
	}
	if c.Forgetting <= 0 || c.Forgetting > 1 {
		return fmt.Errorf("equalizer: forgetting factor %v outside (0, 1]", c.Forgetting)
	}
	if c.StepSize <= 0 {
		return fmt.Errorf("equalizer: step size %v, need > 0", c.StepSize)
	}
	if c.Slicer == nil {
		return fmt.Errorf("equalizer: slicer is required")
	}
	return nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// pushFront shifts the delay line one position and inserts x at the head.
func pushFront(line []float64, x float64) {
	copy(line[1:], line)
	line[0] = x
}
