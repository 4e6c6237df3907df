package bench

import (
	"bytes"
	"math/rand"

	"github.com/jeongseonghan/eqbench/internal/channel"
	"github.com/jeongseonghan/eqbench/internal/equalizer"
	"github.com/jeongseonghan/eqbench/internal/estimate"
	"github.com/jeongseonghan/eqbench/internal/fec"
	"github.com/jeongseonghan/eqbench/internal/mlse"
	"github.com/jeongseonghan/eqbench/internal/modem"
)

// PointResult is the outcome of one (method, Eb/No) measurement.
type PointResult struct {
	Method    Method       `json:"method"`
	EbNoDB    float64      `json:"ebNoDB"`
	Errors    int          `json:"errors"`
	Bits      int          `json:"bits"`
	Blocks    int          `json:"blocks"`
	BER       float64      `json:"ber"`
	TheoryBER float64      `json:"theoryBER"`
	Burst     BurstStats   `json:"burst"`
	Coded     *CodedResult `json:"coded,omitempty"`
}

// CodedResult holds the coded-mode frame statistics.
type CodedResult struct {
	Frames       int `json:"frames"`
	Recovered    int `json:"recovered"`
	ErasedShards int `json:"erasedShards"`
}

// Reporter receives progress while a sweep runs. It is a sink: nothing it
// returns feeds back into the measurement.
type Reporter interface {
	PointStarted(method Method, ebNoDB float64)
	BlockProcessed(method Method, ebNoDB float64, acc Accumulator, equalized []float64)
	PointDone(res PointResult)
}

// NopReporter discards all progress.
type NopReporter struct{}

func (NopReporter) PointStarted(Method, float64)                            {}
func (NopReporter) BlockProcessed(Method, float64, Accumulator, []float64)  {}
func (NopReporter) PointDone(PointResult)                                   {}

// runner owns the per-sweep collaborators. All per-point state is created
// fresh inside each run method, so points are fully independent.
type runner struct {
	cfg    *Config
	scheme *modem.Scheme
	rep    Reporter
}

func randomBits(rng *rand.Rand, n int) []byte {
	bits := make([]byte, n)
	for i := range bits {
		bits[i] = byte(rng.Intn(2))
	}
	return bits
}

// compareSymbols demodulates aligned decision and reference symbols, counts
// bit errors, and feeds the burst tracker.
func (r *runner) compareSymbols(decisions, ref []float64, burst *BurstStats) (int, int, error) {
	sliced := make([]float64, len(decisions))
	for i, y := range decisions {
		sliced[i] = r.scheme.Slice(y)
	}
	gotBits := r.scheme.Demodulate(sliced)
	refBits := r.scheme.Demodulate(ref)

	errs, _, err := CountErrors(refBits, gotBits)
	if err != nil {
		return 0, 0, err
	}
	for i := range refBits {
		burst.Observe(gotBits[i] != refBits[i])
	}
	return errs, len(refBits), nil
}

// runAdaptive measures one Eb/No point with the linear or DFE equalizer.
// Equalizer weights persist across blocks within the point (RLS on the first
// block, LMS after) and are discarded when the point completes.
func (r *runner) runAdaptive(method Method, ebNoDB float64, rng *rand.Rand) (PointResult, error) {
	eqCfg := equalizer.Config{
		ForwardTaps: r.cfg.ForwardTaps,
		RefTap:      r.cfg.RefTap,
		Forgetting:  r.cfg.Forgetting,
		StepSize:    r.cfg.StepSize,
		Slicer:      r.scheme.Slice,
	}

	var eq equalizer.Equalizer
	var err error
	if method == MethodDFE {
		eqCfg.FeedbackTaps = r.cfg.FeedbackTaps
		eq, err = equalizer.NewDFE(eqCfg)
	} else {
		eq, err = equalizer.NewLinear(eqCfg)
	}
	if err != nil {
		return PointResult{}, err
	}

	fir, err := channel.NewFIR(r.cfg.ChannelTaps)
	if err != nil {
		return PointResult{}, err
	}
	noise := channel.NewAWGN(rng)
	snrDB := channel.EbNoToSNR(ebNoDB, r.scheme.BitsPerSymbol(), 1)

	var acc Accumulator
	var burst BurstStats
	blocks := 0
	for !acc.Done(r.cfg.MaxErrors, r.cfg.MaxBits) {
		bits := randomBits(rng, r.cfg.BlockSize*r.scheme.BitsPerSymbol())
		tx, err := r.scheme.Modulate(bits)
		if err != nil {
			return PointResult{}, err
		}

		rx := noise.Add(fir.Apply(tx), snrDB)
		out := eq.Equalize(rx, tx[:r.cfg.TrainLen])

		// out[n] estimates tx[n-delay]; compare over the aligned range only.
		delay := eq.Delay()
		errs, nbits, err := r.compareSymbols(out[delay:], tx[:len(out)-delay], &burst)
		if err != nil {
			return PointResult{}, err
		}
		acc.Add(errs, nbits)
		blocks++
		r.rep.BlockProcessed(method, ebNoDB, acc, out)
	}

	burst.Finalize()
	return PointResult{
		Method:    method,
		EbNoDB:    ebNoDB,
		Errors:    acc.Errors,
		Bits:      acc.Bits,
		Blocks:    blocks,
		BER:       acc.BER(),
		TheoryBER: r.scheme.TheoreticalBER(ebNoDB),
		Burst:     burst,
	}, nil
}

// runMLSE measures one Eb/No point with the trellis detector. In ideal mode
// the detector holds the true impulse response; in imperfect mode each block
// carries a guarded PN prefix and the response is re-estimated per block.
func (r *runner) runMLSE(method Method, ebNoDB float64, rng *rand.Rand) (PointResult, error) {
	imperfect := method == MethodMLSEImperfect

	assumed := append([]float64(nil), r.cfg.ChannelTaps...)
	var est *estimate.Estimator
	if imperfect {
		// Deliberate excess taps on the assumed response.
		assumed = append(assumed, make([]float64, r.cfg.EstExcess)...)
		prefix := estimate.NewPNPrefix(r.cfg.PrefixLen, r.cfg.Seed)
		var err error
		est, err = estimate.NewEstimator(prefix, len(assumed), 0)
		if err != nil {
			return PointResult{}, err
		}
	}

	det, err := mlse.NewDetector(mlse.Config{
		Alphabet:     r.scheme.Levels(),
		Channel:      assumed,
		TracebackLen: r.cfg.TracebackLen,
	})
	if err != nil {
		return PointResult{}, err
	}

	fir, err := channel.NewFIR(r.cfg.ChannelTaps)
	if err != nil {
		return PointResult{}, err
	}
	noise := channel.NewAWGN(rng)
	snrDB := channel.EbNoToSNR(ebNoDB, r.scheme.BitsPerSymbol(), 1)

	// A short known preamble primes the channel delay line and the trellis,
	// avoiding an acquisition transient at the start of the point.
	levels := r.scheme.Levels()
	preamble := make([]float64, len(assumed)-1)
	for i := range preamble {
		preamble[i] = levels[len(levels)-1]
	}
	if len(preamble) > 0 {
		fir.Apply(preamble)
		if err := det.Prime(preamble); err != nil {
			return PointResult{}, err
		}
	}

	// Decoded symbols lag the transmitted stream by the traceback depth, so
	// the pending transmitted symbols wait in a queue; counted marks which of
	// them are data (prefix symbols are known overhead).
	var pending []float64
	var counted []bool

	var acc Accumulator
	var burst BurstStats
	blocks := 0

	consume := func(decoded []float64) error {
		n := len(decoded)
		var gotData, refData []float64
		for i := 0; i < n; i++ {
			if counted[i] {
				gotData = append(gotData, decoded[i])
				refData = append(refData, pending[i])
			}
		}
		pending = pending[n:]
		counted = counted[n:]

		if len(gotData) == 0 {
			return nil
		}
		errs, nbits, err := r.compareSymbols(gotData, refData, &burst)
		if err != nil {
			return err
		}
		acc.Add(errs, nbits)
		return nil
	}

	for !acc.Done(r.cfg.MaxErrors, r.cfg.MaxBits) {
		bits := randomBits(rng, r.cfg.BlockSize*r.scheme.BitsPerSymbol())
		data, err := r.scheme.Modulate(bits)
		if err != nil {
			return PointResult{}, err
		}

		var tx []float64
		if imperfect {
			tx = append(est.BuildPrefix(), data...)
		} else {
			tx = data
		}

		rx := noise.Add(fir.Apply(tx), snrDB)

		if imperfect {
			h, err := est.Estimate(rx[est.Guard() : est.Guard()+est.PrefixLen()])
			if err != nil {
				return PointResult{}, err
			}
			if err := det.SetChannel(h); err != nil {
				return PointResult{}, err
			}
		}

		pending = append(pending, tx...)
		flags := make([]bool, len(tx))
		for i := len(tx) - len(data); i < len(tx); i++ {
			flags[i] = true
		}
		counted = append(counted, flags...)

		if err := consume(det.Detect(rx)); err != nil {
			return PointResult{}, err
		}
		blocks++
		r.rep.BlockProcessed(method, ebNoDB, acc, nil)
	}

	if err := consume(det.Flush()); err != nil {
		return PointResult{}, err
	}

	burst.Finalize()
	return PointResult{
		Method:    method,
		EbNoDB:    ebNoDB,
		Errors:    acc.Errors,
		Bits:      acc.Bits,
		Blocks:    blocks,
		BER:       acc.BER(),
		TheoryBER: r.scheme.TheoreticalBER(ebNoDB),
		Burst:     burst,
	}, nil
}

// runCoded measures Reed-Solomon frame recovery over the DFE at one Eb/No
// point. Raw pre-FEC BER is reported alongside the frame statistics.
func (r *runner) runCoded(ebNoDB float64, rng *rand.Rand) (PointResult, error) {
	codec, err := fec.NewCodec(r.cfg.Coded.DataShards, r.cfg.Coded.ParityShards)
	if err != nil {
		return PointResult{}, err
	}

	eq, err := equalizer.NewDFE(equalizer.Config{
		ForwardTaps:  r.cfg.ForwardTaps,
		FeedbackTaps: r.cfg.FeedbackTaps,
		RefTap:       r.cfg.RefTap,
		Forgetting:   r.cfg.Forgetting,
		StepSize:     r.cfg.StepSize,
		Slicer:       r.scheme.Slice,
	})
	if err != nil {
		return PointResult{}, err
	}

	fir, err := channel.NewFIR(r.cfg.ChannelTaps)
	if err != nil {
		return PointResult{}, err
	}
	noise := channel.NewAWGN(rng)
	snrDB := channel.EbNoToSNR(ebNoDB, r.scheme.BitsPerSymbol(), 1)

	bps := r.scheme.BitsPerSymbol()
	levels := r.scheme.Levels()
	pad := levels[len(levels)-1]

	var acc Accumulator
	var burst BurstStats
	coded := CodedResult{Frames: r.cfg.Coded.Frames}

	for f := 0; f < r.cfg.Coded.Frames; f++ {
		payload := make([]byte, r.cfg.Coded.PayloadBytes)
		rng.Read(payload)

		frame, err := codec.EncodeFrame(payload)
		if err != nil {
			return PointResult{}, err
		}

		frameBits := bytesToBits(frame)
		// Pad to a whole number of symbols.
		for len(frameBits)%bps != 0 {
			frameBits = append(frameBits, 0)
		}
		tx, err := r.scheme.Modulate(frameBits)
		if err != nil {
			return PointResult{}, err
		}

		// Tail padding pushes the last payload symbols past the equalizer's
		// group delay so every frame symbol has an aligned output.
		padded := make([]float64, len(tx)+eq.Delay())
		copy(padded, tx)
		for i := len(tx); i < len(padded); i++ {
			padded[i] = pad
		}

		rx := noise.Add(fir.Apply(padded), snrDB)
		trainLen := r.cfg.TrainLen
		if trainLen > len(padded) {
			trainLen = len(padded)
		}
		out := eq.Equalize(rx, padded[:trainLen])

		decisions := make([]float64, len(tx))
		copy(decisions, out[eq.Delay():eq.Delay()+len(tx)])

		errs, nbits, err := r.compareSymbols(decisions, tx, &burst)
		if err != nil {
			return PointResult{}, err
		}
		acc.Add(errs, nbits)

		for i := range decisions {
			decisions[i] = r.scheme.Slice(decisions[i])
		}
		rxBits := r.scheme.Demodulate(decisions)[:len(frame)*8]
		got, erased, err := codec.DecodeFrame(bitsToBytes(rxBits), len(payload))
		coded.ErasedShards += erased
		if err == nil && bytes.Equal(got, payload) {
			coded.Recovered++
		}
	}

	burst.Finalize()
	return PointResult{
		Method:    MethodCoded,
		EbNoDB:    ebNoDB,
		Errors:    acc.Errors,
		Bits:      acc.Bits,
		Blocks:    coded.Frames,
		BER:       acc.BER(),
		TheoryBER: r.scheme.TheoreticalBER(ebNoDB),
		Burst:     burst,
		Coded:     &coded,
	}, nil
}

func bytesToBits(data []byte) []byte {
	bits := make([]byte, 0, len(data)*8)
	for _, b := range data {
		for j := 7; j >= 0; j-- {
			bits = append(bits, (b>>uint(j))&1)
		}
	}
	return bits
}

func bitsToBytes(bits []byte) []byte {
	out := make([]byte, len(bits)/8)
	for i := range out {
		var b byte
		for j := 0; j < 8; j++ {
			b = (b << 1) | (bits[i*8+j] & 1)
		}
		out[i] = b
	}
	return out
}

