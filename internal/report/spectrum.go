package report

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// psdFloorDB bounds the displayed dynamic range so silent bins do not
// collapse the plot scale.
const psdFloorDB = -120.0

// PSD returns the one-sided power spectral density of x in dB.
func PSD(x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	spec := fft.FFTReal(x)
	n := len(x)
	half := n/2 + 1

	out := make([]float64, half)
	for i := 0; i < half; i++ {
		p := cmplx.Abs(spec[i])
		p = p * p / float64(n)
		db := psdFloorDB
		if p > 0 {
			db = 10 * math.Log10(p)
			if db < psdFloorDB {
				db = psdFloorDB
			}
		}
		out[i] = db
	}
	return out
}
