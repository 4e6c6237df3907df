package modem

import "math"

// TheoreticalBER returns the closed-form AWGN bit error rate for the scheme
// at the given Eb/No. Exact for BPSK; the standard Gray-coded nearest-neighbor
// approximation for higher PAM orders. Used for display comparison only.
func (s *Scheme) TheoreticalBER(ebNoDB float64) float64 {
	ebNo := math.Pow(10, ebNoDB/10)

	if s.order == 2 {
		return 0.5 * math.Erfc(math.Sqrt(ebNo))
	}

	m := float64(s.order)
	k := float64(s.bits)
	arg := math.Sqrt(3 * k * ebNo / (m*m - 1))
	return (m - 1) / (m * k) * math.Erfc(arg)
}
