// Package estimate recovers a channel impulse response from a known
// pseudo-noise prefix embedded at the start of each transmitted block. The
// prefix is preceded by a cyclic guard equal to the assumed channel memory,
// so over the prefix window the channel acts as a circular convolution and
// the response follows from a frequency-domain division.
package estimate

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"

	"github.com/mjibson/go-dsp/fft"
)

// DefaultFloor is the minimum spectral magnitude used when dividing by the
// prefix spectrum. Near-zero bins are clamped rather than allowed to blow up
// into Inf/NaN estimates.
const DefaultFloor = 1e-3

// Estimator derives impulse-response estimates of a fixed assumed length.
// The assumed length may deliberately exceed the true channel length by a
// small excess for robustness.
type Estimator struct {
	prefix    []float64
	prefixFFT []complex128
	estLen    int
	floor     float64
}

// NewEstimator creates an estimator for the given known prefix and assumed
// response length. floor <= 0 selects DefaultFloor.
func NewEstimator(prefix []float64, estLen int, floor float64) (*Estimator, error) {
	if estLen < 1 {
		return nil, fmt.Errorf("estimate: assumed response length %d, need >= 1", estLen)
	}
	if len(prefix) < estLen {
		return nil, fmt.Errorf("estimate: prefix length %d shorter than assumed response %d",
			len(prefix), estLen)
	}
	if floor <= 0 {
		floor = DefaultFloor
	}
	e := &Estimator{
		prefix: append([]float64(nil), prefix...),
		estLen: estLen,
		floor:  floor,
	}
	e.prefixFFT = fft.FFTReal(e.prefix)
	return e, nil
}

// NewPNPrefix generates a ±1 pseudo-noise sequence from an explicit seed.
func NewPNPrefix(length int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	seq := make([]float64, length)
	for i := range seq {
		if rng.Intn(2) == 0 {
			seq[i] = 1
		} else {
			seq[i] = -1
		}
	}
	return seq
}

// PrefixLen returns the known prefix length.
func (e *Estimator) PrefixLen() int { return len(e.prefix) }

// Guard returns the cyclic guard length prepended before the prefix.
func (e *Estimator) Guard() int { return e.estLen - 1 }

// EstLen returns the assumed impulse response length.
func (e *Estimator) EstLen() int { return e.estLen }

// BuildPrefix returns the transmitted prefix region: the cyclic guard (the
// tail of the prefix) followed by the prefix itself.
func (e *Estimator) BuildPrefix() []float64 {
	out := make([]float64, 0, e.Guard()+len(e.prefix))
	out = append(out, e.prefix[len(e.prefix)-e.Guard():]...)
	out = append(out, e.prefix...)
	return out
}

// Estimate computes the impulse response from the received prefix window:
// the PrefixLen samples aligned with the prefix, after the guard. Division
// by near-zero spectrum bins is clamped to the magnitude floor.
func (e *Estimator) Estimate(rxWindow []float64) ([]float64, error) {
	if len(rxWindow) != len(e.prefix) {
		return nil, fmt.Errorf("estimate: window length %d, want %d", len(rxWindow), len(e.prefix))
	}

	rxFFT := fft.FFTReal(rxWindow)
	h := make([]complex128, len(rxFFT))
	for k := range rxFFT {
		x := e.prefixFFT[k]
		if mag := cmplx.Abs(x); mag < e.floor {
			if mag == 0 {
				x = complex(e.floor, 0)
			} else {
				x *= complex(e.floor/mag, 0)
			}
		}
		h[k] = rxFFT[k] / x
	}

	impulse := fft.IFFT(h)
	out := make([]float64, e.estLen)
	for i := range out {
		out[i] = real(impulse[i])
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return nil, fmt.Errorf("estimate: ill-conditioned response at tap %d", i)
		}
	}
	return out, nil
}
