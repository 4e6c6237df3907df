// Package mlse implements maximum-likelihood sequence estimation over a
// known or estimated channel impulse response: a Viterbi search on the
// trellis of channel-memory states with squared-distance branch metrics and
// bounded traceback. The detector operates continuously, so trellis and
// survivor state persist across block boundaries.
package mlse

import (
	"fmt"
	"math"
)

// Config describes the trellis geometry.
type Config struct {
	Alphabet     []float64 // constellation levels, M = len(Alphabet)
	Channel      []float64 // channel impulse response hypothesis, L = len(Channel)
	TracebackLen int       // survivor depth before a symbol is finalized
}

// decision records, per state and trellis stage, the surviving predecessor
// and the symbol hypothesized on that transition.
type decision struct {
	prev int32
	sym  uint8
}

// Detector is a continuous-operation MLSE equalizer. Symbols are emitted
// with a delay of TracebackLen stages; Flush drains the tail.
type Detector struct {
	alphabet []float64
	h        []float64
	m        int
	chanLen  int
	states   int
	pow      []int // m^i lookup
	tbLen    int

	oldMetric []float64
	newMetric []float64

	hist      [][]decision // ring buffer of tbLen stages
	histPos   int          // next write slot (oldest stage when full)
	histCount int
}

// NewDetector validates the configuration and builds the trellis.
func NewDetector(cfg Config) (*Detector, error) {
	m := len(cfg.Alphabet)
	chanLen := len(cfg.Channel)
	switch {
	case m < 2:
		return nil, fmt.Errorf("mlse: alphabet size %d, need >= 2", m)
	case chanLen < 1:
		return nil, fmt.Errorf("mlse: empty channel response")
	case cfg.TracebackLen < chanLen-1 || cfg.TracebackLen < 1:
		return nil, fmt.Errorf("mlse: traceback length %d shorter than channel memory %d",
			cfg.TracebackLen, chanLen-1)
	}

	states := 1
	pow := make([]int, chanLen)
	for i := range pow {
		pow[i] = states
		states *= m
	}
	states = pow[chanLen-1] // m^(L-1)

	d := &Detector{
		alphabet:  append([]float64(nil), cfg.Alphabet...),
		h:         append([]float64(nil), cfg.Channel...),
		m:         m,
		chanLen:   chanLen,
		states:    states,
		pow:       pow,
		tbLen:     cfg.TracebackLen,
		oldMetric: make([]float64, states),
		newMetric: make([]float64, states),
		hist:      make([][]decision, cfg.TracebackLen),
	}
	for i := range d.hist {
		d.hist[i] = make([]decision, states)
	}
	d.Reset()
	return d, nil
}

// NumStates returns the trellis state count M^(L-1).
func (d *Detector) NumStates() int { return d.states }

// Delay returns the decision delay in symbols.
func (d *Detector) Delay() int { return d.tbLen }

// Reset clears path metrics and survivor history. All states start equal.
func (d *Detector) Reset() {
	for i := range d.oldMetric {
		d.oldMetric[i] = 0
	}
	d.histPos = 0
	d.histCount = 0
}

// Prime pins the trellis to the state implied by known preceding symbols
// (at least L-1 of them), so decoding can start without an acquisition
// transient. History is cleared.
func (d *Detector) Prime(known []float64) error {
	if len(known) < d.chanLen-1 {
		return fmt.Errorf("mlse: priming needs %d symbols, got %d", d.chanLen-1, len(known))
	}

	state := 0
	for i := 0; i < d.chanLen-1; i++ {
		// Low digit holds the most recent symbol.
		sym := d.symIndex(known[len(known)-1-i])
		state += sym * d.pow[i]
	}

	for i := range d.oldMetric {
		d.oldMetric[i] = math.Inf(1)
	}
	d.oldMetric[state] = 0
	d.histPos = 0
	d.histCount = 0
	return nil
}

// SetChannel swaps in a refreshed channel estimate without disturbing path
// state. The assumed response length is fixed at construction.
func (d *Detector) SetChannel(h []float64) error {
	if len(h) != d.chanLen {
		return fmt.Errorf("mlse: channel estimate length %d, detector built for %d", len(h), d.chanLen)
	}
	copy(d.h, h)
	return nil
}

// Detect runs the received samples through the trellis and returns the
// symbols finalized so far. Output lags input by TracebackLen samples.
func (d *Detector) Detect(received []float64) []float64 {
	var out []float64
	for _, x := range received {
		if d.histCount == d.tbLen {
			out = append(out, d.emitOldest())
		}
		d.step(x)
	}
	return out
}

// Flush finalizes and returns the symbols still held in the traceback
// window. Path metrics survive, so detection may continue afterwards.
func (d *Detector) Flush() []float64 {
	out := make([]float64, d.histCount)
	state := d.bestState()
	for i := 0; i < d.histCount; i++ {
		idx := (d.histPos - 1 - i + 2*d.tbLen) % d.tbLen
		dec := d.hist[idx][state]
		out[d.histCount-1-i] = d.alphabet[dec.sym]
		state = int(dec.prev)
	}
	d.histPos = 0
	d.histCount = 0
	return out
}

// step advances the trellis by one received sample.
func (d *Detector) step(x float64) {
	dec := d.hist[d.histPos]
	for s := range d.newMetric {
		d.newMetric[s] = math.Inf(1)
	}

	for s := 0; s < d.states; s++ {
		base := d.oldMetric[s]
		if math.IsInf(base, 1) {
			continue
		}

		// Tail ISI contribution is fixed by the state.
		var tail float64
		for k := 1; k < d.chanLen; k++ {
			digit := (s / d.pow[k-1]) % d.m
			tail += d.h[k] * d.alphabet[digit]
		}

		var next int
		if d.chanLen > 1 {
			next = d.m * (s % d.pow[d.chanLen-2])
		}
		for a := 0; a < d.m; a++ {
			diff := x - (d.h[0]*d.alphabet[a] + tail)
			metric := base + diff*diff
			ns := next + a
			if metric < d.newMetric[ns] {
				d.newMetric[ns] = metric
				dec[ns] = decision{prev: int32(s), sym: uint8(a)}
			}
		}
	}

	d.oldMetric, d.newMetric = d.newMetric, d.oldMetric
	d.normalize()

	d.histPos = (d.histPos + 1) % d.tbLen
	if d.histCount < d.tbLen {
		d.histCount++
	}
}

// emitOldest traces the survivor of the current best state back to the
// oldest retained stage and finalizes its symbol.
func (d *Detector) emitOldest() float64 {
	state := d.bestState()
	var sym uint8
	for i := 0; i < d.histCount; i++ {
		idx := (d.histPos - 1 - i + 2*d.tbLen) % d.tbLen
		dec := d.hist[idx][state]
		sym = dec.sym
		state = int(dec.prev)
	}
	d.histCount--
	return d.alphabet[sym]
}

func (d *Detector) bestState() int {
	best := 0
	for s := 1; s < d.states; s++ {
		if d.oldMetric[s] < d.oldMetric[best] {
			best = s
		}
	}
	return best
}

// normalize keeps path metrics bounded over long runs.
func (d *Detector) normalize() {
	min := d.oldMetric[d.bestState()]
	if math.IsInf(min, 1) || min == 0 {
		return
	}
	for s := range d.oldMetric {
		d.oldMetric[s] -= min
	}
}

func (d *Detector) symIndex(v float64) int {
	best := 0
	bestDist := math.Abs(v - d.alphabet[0])
	for i := 1; i < d.m; i++ {
		if dist := math.Abs(v - d.alphabet[i]); dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return best
}
