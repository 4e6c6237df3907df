package modem

import (
	"fmt"
	"math"
)

// Scheme is an M-ary antipodal PAM mapping with Gray-coded levels,
// normalized to unit average power. Order 2 is plain BPSK (±1).
type Scheme struct {
	order  int
	bits   int
	levels []float64 // amplitude by position along the axis
	gray   []int     // axis position → bit pattern
	pos    []int     // bit pattern → axis position
}

// NewScheme creates a PAM scheme for the given modulation order.
func NewScheme(order int) (*Scheme, error) {
	if order < 2 || order&(order-1) != 0 {
		return nil, fmt.Errorf("modulation order %d: must be a power of two >= 2", order)
	}

	bits := 0
	for v := order; v > 1; v >>= 1 {
		bits++
	}

	s := &Scheme{
		order:  order,
		bits:   bits,
		levels: make([]float64, order),
		gray:   make([]int, order),
		pos:    make([]int, order),
	}

	// Symmetric odd levels: -(M-1), ..., -1, +1, ..., +(M-1)
	var power float64
	for i := 0; i < order; i++ {
		s.levels[i] = float64(2*i - order + 1)
		power += s.levels[i] * s.levels[i]
	}

	// Normalize to unit average power
	scale := 1.0 / math.Sqrt(power/float64(order))
	for i := range s.levels {
		s.levels[i] *= scale
	}

	// Gray code mapping between bit patterns and axis positions
	for i := 0; i < order; i++ {
		g := i ^ (i >> 1)
		s.gray[i] = g
		s.pos[g] = i
	}

	return s, nil
}

// Order returns the modulation order M.
func (s *Scheme) Order() int { return s.order }

// BitsPerSymbol returns log2(M).
func (s *Scheme) BitsPerSymbol() int { return s.bits }

// Levels returns a copy of the constellation amplitudes.
func (s *Scheme) Levels() []float64 {
	out := make([]float64, len(s.levels))
	copy(out, s.levels)
	return out
}

// Modulate maps data bits (0/1 bytes) to PAM symbols.
// The bit count must be a multiple of BitsPerSymbol.
func (s *Scheme) Modulate(bits []byte) ([]float64, error) {
	if len(bits)%s.bits != 0 {
		return nil, fmt.Errorf("bit count %d is not a multiple of %d", len(bits), s.bits)
	}

	symbols := make([]float64, len(bits)/s.bits)
	for i := range symbols {
		pattern := 0
		for j := 0; j < s.bits; j++ {
			pattern = (pattern << 1) | int(bits[i*s.bits+j]&1)
		}
		symbols[i] = s.levels[s.pos[pattern]]
	}
	return symbols, nil
}

// Demodulate slices symbols to the nearest level and unmaps to bits.
func (s *Scheme) Demodulate(symbols []float64) []byte {
	bits := make([]byte, 0, len(symbols)*s.bits)
	for _, x := range symbols {
		pattern := s.gray[s.sliceIndex(x)]
		for j := s.bits - 1; j >= 0; j-- {
			bits = append(bits, byte((pattern>>j)&1))
		}
	}
	return bits
}

// Slice returns the constellation level nearest to x.
func (s *Scheme) Slice(x float64) float64 {
	return s.levels[s.sliceIndex(x)]
}

func (s *Scheme) sliceIndex(x float64) int {
	// Levels are uniformly spaced, so the nearest one is a rounded offset.
	step := s.levels[1] - s.levels[0]
	idx := int(math.Round((x - s.levels[0]) / step))
	if idx < 0 {
		idx = 0
	}
	if idx >= s.order {
		idx = s.order - 1
	}
	return idx
}
