package channel

import (
	"math"
	"math/rand"
)

// AWGN adds white Gaussian noise at a target measured SNR. The generator is
// supplied explicitly so every run is reproducible and runs never share
// process-wide RNG state.
type AWGN struct {
	rng *rand.Rand
}

// NewAWGN creates a noise source backed by the given generator.
func NewAWGN(rng *rand.Rand) *AWGN {
	return &AWGN{rng: rng}
}

// Add returns signal plus zero-mean Gaussian noise scaled so that the
// empirical signal power of this block, not a nominal value, hits snrDB.
func (a *AWGN) Add(signal []float64, snrDB float64) []float64 {
	power := MeasurePower(signal)
	noisePower := power / math.Pow(10, snrDB/10)
	sigma := math.Sqrt(noisePower)

	out := make([]float64, len(signal))
	for i, s := range signal {
		out[i] = s + sigma*a.rng.NormFloat64()
	}
	return out
}

// MeasurePower returns the mean square value of the block.
func MeasurePower(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum / float64(len(x))
}

// EbNoToSNR converts an Eb/No figure to the SNR seen at the channel output
// for the given bits per symbol and oversampling factor.
func EbNoToSNR(ebNoDB float64, bitsPerSymbol, samplesPerSymbol int) float64 {
	return ebNoDB + 10*math.Log10(float64(bitsPerSymbol)) - 10*math.Log10(float64(samplesPerSymbol))
}
