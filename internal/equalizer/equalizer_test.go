package equalizer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeongseonghan/eqbench/internal/channel"
)

func bpskSlicer(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

func randomSymbols(rng *rand.Rand, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		if rng.Intn(2) == 0 {
			s[i] = 1
		} else {
			s[i] = -1
		}
	}
	return s
}

func validConfig() Config {
	return Config{
		ForwardTaps: 11,
		RefTap:      5,
		Forgetting:  0.99,
		StepSize:    0.01,
		Slicer:      bpskSlicer,
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		dfe    bool
	}{
		{"zero forward taps", func(c *Config) { c.ForwardTaps = 0 }, false},
		{"negative ref tap", func(c *Config) { c.RefTap = -1 }, false},
		{"ref tap out of range", func(c *Config) { c.RefTap = 11 }, false},
		{"forgetting zero", func(c *Config) { c.Forgetting = 0 }, false},
		{"forgetting above one", func(c *Config) { c.Forgetting = 1.01 }, false},
		{"step size zero", func(c *Config) { c.StepSize = 0 }, false},
		{"nil slicer", func(c *Config) { c.Slicer = nil }, false},
		{"feedback taps on linear", func(c *Config) { c.FeedbackTaps = 3 }, false},
		{"dfe without feedback taps", func(c *Config) {}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			var err error
			if tt.dfe {
				_, err = NewDFE(cfg)
			} else {
				_, err = NewLinear(cfg)
			}
			assert.Error(t, err)
		})
	}

	_, err := NewLinear(validConfig())
	assert.NoError(t, err)

	dfeCfg := validConfig()
	dfeCfg.FeedbackTaps = 4
	_, err = NewDFE(dfeCfg)
	assert.NoError(t, err)
}

// On a stationary mild channel with no noise, the weight vector must settle:
// the norm of the per-block weight change falls below a threshold, and the
// steady-state decisions are correct.
func TestLinear_Convergence(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	fir, err := channel.NewFIR([]float64{1.0, 0.4})
	if err != nil {
		t.Fatalf("NewFIR: %v", err)
	}

	eq, err := NewLinear(validConfig())
	if err != nil {
		t.Fatalf("NewLinear: %v", err)
	}

	const blockLen = 800
	var prev []float64
	var lastOut, lastTx []float64
	for b := 0; b < 3; b++ {
		tx := randomSymbols(rng, blockLen)
		rx := fir.Apply(tx)
		lastOut = eq.Equalize(rx, tx)
		lastTx = tx

		w := eq.Weights()
		if b == 2 {
			var delta float64
			for i := range w {
				d := w[i] - prev[i]
				delta += d * d
			}
			delta = math.Sqrt(delta)
			if delta > 0.05 {
				t.Errorf("weight delta norm %v after 3 blocks, want < 0.05", delta)
			}
		}
		prev = w
	}

	errs := 0
	for n := eq.Delay(); n < blockLen; n++ {
		if bpskSlicer(lastOut[n]) != lastTx[n-eq.Delay()] {
			errs++
		}
	}
	if errs != 0 {
		t.Errorf("%d decision errors in steady state on noiseless mild channel", errs)
	}
}

// The DFE must converge on a severely dispersive channel that a short linear
// equalizer cannot open, including when the block continues decision-directed
// after the training symbols run out.
func TestDFE_ConvergenceDecisionDirected(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	fir, err := channel.NewFIR([]float64{0.227, 0.460, 0.688, 0.460, 0.227})
	if err != nil {
		t.Fatalf("NewFIR: %v", err)
	}

	cfg := Config{
		ForwardTaps:  15,
		FeedbackTaps: 4,
		RefTap:       12,
		Forgetting:   0.99,
		StepSize:     0.01,
		Slicer:       bpskSlicer,
	}
	eq, err := NewDFE(cfg)
	if err != nil {
		t.Fatalf("NewDFE: %v", err)
	}

	const blockLen = 1000
	var lastOut, lastTx []float64
	for b := 0; b < 3; b++ {
		tx := randomSymbols(rng, blockLen)
		rx := fir.Apply(tx)
		// Train on half the block, run decision-directed on the rest.
		lastOut = eq.Equalize(rx, tx[:blockLen/2])
		lastTx = tx
	}

	errs := 0
	total := 0
	for n := eq.Delay(); n < blockLen; n++ {
		total++
		if bpskSlicer(lastOut[n]) != lastTx[n-eq.Delay()] {
			errs++
		}
	}
	if float64(errs)/float64(total) > 0.01 {
		t.Errorf("DFE steady-state error rate %d/%d on noiseless channel, want <1%%", errs, total)
	}
}

func TestReset_ReleasesState(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	fir, _ := channel.NewFIR([]float64{1.0, 0.4})
	eq, _ := NewLinear(validConfig())

	tx := randomSymbols(rng, 500)
	eq.Equalize(fir.Apply(tx), tx)

	eq.Reset()
	for i, w := range eq.Weights() {
		if w != 0 {
			t.Fatalf("weight %d = %v after Reset, want 0", i, w)
		}
	}
}
