package bench

import "fmt"

// Accumulator tracks cumulative bit errors and bit count for one Eb/No
// point. Collection stops once either budget is reached.
type Accumulator struct {
	Errors int `json:"errors"`
	Bits   int `json:"bits"`
}

// Add records the outcome of one block.
func (a *Accumulator) Add(errors, bits int) {
	a.Errors += errors
	a.Bits += bits
}

// BER returns the running bit error rate.
func (a Accumulator) BER() float64 {
	if a.Bits == 0 {
		return 0
	}
	return float64(a.Errors) / float64(a.Bits)
}

// Done reports whether the error or bit budget has been met.
func (a Accumulator) Done(maxErrors, maxBits int) bool {
	return a.Errors >= maxErrors || a.Bits >= maxBits
}

// CountErrors compares two aligned bit slices and returns the error count
// and ratio. The inputs must have equal length.
func CountErrors(ref, got []byte) (int, float64, error) {
	if len(ref) != len(got) {
		return 0, 0, fmt.Errorf("count errors: length mismatch %d != %d", len(ref), len(got))
	}
	errs := 0
	for i := range ref {
		if ref[i] != got[i] {
			errs++
		}
	}
	if len(ref) == 0 {
		return 0, 0, nil
	}
	return errs, float64(errs) / float64(len(ref)), nil
}
