package estimate

import (
	"math"
	"testing"

	"github.com/jeongseonghan/eqbench/internal/channel"
)

func TestEstimate_NoiselessRecovery(t *testing.T) {
	taps := []float64{0.227, 0.460, 0.688, 0.460, 0.227}

	prefix := NewPNPrefix(64, 42)
	est, err := NewEstimator(prefix, len(taps)+1, 0) // one tap of deliberate excess
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	fir, err := channel.NewFIR(taps)
	if err != nil {
		t.Fatalf("NewFIR: %v", err)
	}

	tx := est.BuildPrefix()
	rx := fir.Apply(tx)
	window := rx[est.Guard() : est.Guard()+est.PrefixLen()]

	got, err := est.Estimate(window)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	if len(got) != len(taps)+1 {
		t.Fatalf("estimate length %d, want %d", len(got), len(taps)+1)
	}
	for i, h := range taps {
		if math.Abs(got[i]-h) > 1e-6 {
			t.Errorf("tap %d = %v, want %v±1e-6", i, got[i], h)
		}
	}
	if math.Abs(got[len(taps)]) > 1e-6 {
		t.Errorf("excess tap = %v, want ~0", got[len(taps)])
	}
}

func TestEstimate_ContinuousStreamAlignment(t *testing.T) {
	// The guard absorbs whatever precedes the prefix, so the estimate stays
	// exact when data follows the prefix region in the same stream.
	taps := []float64{1.0, -0.5, 0.25}
	prefix := NewPNPrefix(32, 7)
	est, _ := NewEstimator(prefix, len(taps), 0)
	fir, _ := channel.NewFIR(taps)

	stream := append(est.BuildPrefix(), NewPNPrefix(100, 8)...)
	rx := fir.Apply(stream)

	got, err := est.Estimate(rx[est.Guard() : est.Guard()+est.PrefixLen()])
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	for i, h := range taps {
		if math.Abs(got[i]-h) > 1e-6 {
			t.Errorf("tap %d = %v, want %v", i, got[i], h)
		}
	}
}

func TestEstimate_NearZeroBinsGuarded(t *testing.T) {
	// A constant prefix has an all-zero spectrum outside DC; the floor must
	// keep the division finite.
	prefix := []float64{1, 1, 1, 1, 1, 1, 1, 1}
	est, err := NewEstimator(prefix, 3, 0)
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	rx := []float64{1, 1, 1, 1, 1, 1, 1, 1}
	got, err := est.Estimate(rx)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	for i, v := range got {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("tap %d = %v, must be finite", i, v)
		}
	}
}

func TestNewEstimator_Validation(t *testing.T) {
	if _, err := NewEstimator(NewPNPrefix(8, 1), 0, 0); err == nil {
		t.Error("estLen 0 should be rejected")
	}
	if _, err := NewEstimator(NewPNPrefix(4, 1), 8, 0); err == nil {
		t.Error("prefix shorter than estLen should be rejected")
	}
}

func TestEstimate_WindowLength(t *testing.T) {
	est, _ := NewEstimator(NewPNPrefix(16, 1), 4, 0)
	if _, err := est.Estimate(make([]float64, 8)); err == nil {
		t.Error("wrong window length should be rejected")
	}
}
