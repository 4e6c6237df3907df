package bench

import (
	"fmt"
	"math/rand"

	"github.com/jeongseonghan/eqbench/internal/modem"
)

// Run executes the full sweep: every configured method across every Eb/No
// value, strictly sequential. Each point derives its own generator from the
// experiment seed, so points share no state and the sweep is reproducible.
func Run(cfg *Config, rep Reporter) ([]PointResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rep == nil {
		rep = NopReporter{}
	}

	scheme, err := modem.NewScheme(cfg.ModOrder)
	if err != nil {
		return nil, err
	}
	r := &runner{cfg: cfg, scheme: scheme, rep: rep}

	var results []PointResult
	for mi, method := range cfg.Methods {
		for pi, ebNo := range cfg.EbNoDB {
			rep.PointStarted(method, ebNo)

			rng := pointRNG(cfg.Seed, mi, pi)
			var res PointResult
			switch method {
			case MethodLinear, MethodDFE:
				res, err = r.runAdaptive(method, ebNo, rng)
			case MethodMLSEIdeal, MethodMLSEImperfect:
				res, err = r.runMLSE(method, ebNo, rng)
			default:
				err = fmt.Errorf("sweep: unknown method %q", method)
			}
			if err != nil {
				return nil, fmt.Errorf("sweep: %s at %.1f dB: %w", method, ebNo, err)
			}

			rep.PointDone(res)
			results = append(results, res)
		}
	}

	if cfg.Coded.Enabled {
		for pi, ebNo := range cfg.EbNoDB {
			rep.PointStarted(MethodCoded, ebNo)

			res, err := r.runCoded(ebNo, pointRNG(cfg.Seed, len(cfg.Methods), pi))
			if err != nil {
				return nil, fmt.Errorf("sweep: %s at %.1f dB: %w", MethodCoded, ebNo, err)
			}

			rep.PointDone(res)
			results = append(results, res)
		}
	}
	return results, nil
}

// pointRNG derives an independent generator for one (method, point) pair.
func pointRNG(seed int64, methodIdx, pointIdx int) *rand.Rand {
	return rand.New(rand.NewSource(seed + int64(methodIdx)*1_000_003 + int64(pointIdx)*7919))
}
