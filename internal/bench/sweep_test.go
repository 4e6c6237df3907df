package bench

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testConfig trims the budgets so the sweep finishes quickly while keeping
// the reference channel.
func testConfig() *Config {
	cfg := Default()
	cfg.BlockSize = 512
	cfg.TrainLen = 256
	cfg.MaxErrors = 50
	cfg.MaxBits = 30_000
	cfg.Seed = 42
	return cfg
}

func findResult(t *testing.T, results []PointResult, m Method, ebNo float64) PointResult {
	t.Helper()
	for _, r := range results {
		if r.Method == m && r.EbNoDB == ebNo {
			return r
		}
	}
	t.Fatalf("no result for %s at %v dB", m, ebNo)
	return PointResult{}
}

// The end-to-end ordering property on the reference channel at 10 dB:
// linear is measurably worse than DFE, which is no better than ideal MLSE.
func TestRun_EqualizerOrdering(t *testing.T) {
	cfg := testConfig()
	cfg.EbNoDB = []float64{10}
	cfg.Methods = []Method{MethodLinear, MethodDFE, MethodMLSEIdeal}

	results, err := Run(cfg, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	linear := findResult(t, results, MethodLinear, 10)
	dfe := findResult(t, results, MethodDFE, 10)
	ideal := findResult(t, results, MethodMLSEIdeal, 10)

	if linear.BER < dfe.BER {
		t.Errorf("linear BER %v better than DFE %v on the severe channel", linear.BER, dfe.BER)
	}
	// Allow a little statistical slack between DFE and ideal MLSE.
	if ideal.BER > dfe.BER+0.005 {
		t.Errorf("ideal MLSE BER %v worse than DFE %v", ideal.BER, dfe.BER)
	}
}

// BER must not increase with Eb/No (statistical property, fixed seed).
func TestRun_MonotoneBER(t *testing.T) {
	cfg := testConfig()
	cfg.EbNoDB = []float64{4, 10}
	cfg.Methods = []Method{MethodDFE}

	results, err := Run(cfg, nil)
	require.NoError(t, err)

	low := findResult(t, results, MethodDFE, 4)
	high := findResult(t, results, MethodDFE, 10)
	if high.BER > low.BER {
		t.Errorf("BER rose with Eb/No: %v at 4 dB, %v at 10 dB", low.BER, high.BER)
	}
}

// The bit budget may be overshot by at most one block.
func TestRun_BudgetOvershootBounded(t *testing.T) {
	cfg := testConfig()
	cfg.EbNoDB = []float64{12}
	cfg.Methods = []Method{MethodDFE}
	cfg.MaxErrors = 1 << 30 // bits budget terminates the point

	results, err := Run(cfg, nil)
	require.NoError(t, err)

	res := results[0]
	if res.Bits < cfg.MaxBits {
		t.Errorf("stopped at %d bits, below the %d budget", res.Bits, cfg.MaxBits)
	}
	if res.Bits >= cfg.MaxBits+cfg.BlockSize {
		t.Errorf("overshot budget by more than one block: %d >= %d", res.Bits, cfg.MaxBits+cfg.BlockSize)
	}
}

// Imperfect MLSE re-estimates the channel per block; its BER tracks ideal
// qualitatively (same order of magnitude band, no exact gap asserted).
func TestRun_ImperfectMLSETracksIdeal(t *testing.T) {
	cfg := testConfig()
	cfg.EbNoDB = []float64{10}
	cfg.Methods = []Method{MethodMLSEIdeal, MethodMLSEImperfect}

	results, err := Run(cfg, nil)
	require.NoError(t, err)

	imperfect := findResult(t, results, MethodMLSEImperfect, 10)
	if imperfect.BER > 0.05 {
		t.Errorf("imperfect MLSE BER %v, expected a working decode at 10 dB", imperfect.BER)
	}
}

// Same config and seed must reproduce identical results.
func TestRun_Reproducible(t *testing.T) {
	cfg := testConfig()
	cfg.EbNoDB = []float64{8}
	cfg.Methods = []Method{MethodLinear}

	a, err := Run(cfg, nil)
	require.NoError(t, err)
	b, err := Run(cfg, nil)
	require.NoError(t, err)

	require.Equal(t, a, b)
}

// Coded mode: at a comfortable Eb/No the Reed-Solomon layer recovers nearly
// every frame over the DFE.
func TestRun_CodedRecovery(t *testing.T) {
	cfg := testConfig()
	cfg.EbNoDB = []float64{16}
	cfg.Methods = nil
	cfg.Coded = CodedConfig{
		Enabled:      true,
		Frames:       10,
		PayloadBytes: 32,
		DataShards:   8,
		ParityShards: 4,
	}

	results, err := Run(cfg, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	require.NotNil(t, res.Coded)
	if res.Coded.Recovered < 8 {
		t.Errorf("recovered %d/%d frames at 16 dB", res.Coded.Recovered, res.Coded.Frames)
	}
}
