package bench

// BurstStats summarizes error clustering over a decoded bit stream. A burst
// is a maximal run of consecutive bit errors. Decision feedback makes errors
// cluster, so the DFE shows longer bursts than the linear equalizer at the
// same BER.
type BurstStats struct {
	Bursts  int     `json:"bursts"`
	MaxLen  int     `json:"maxLen"`
	MeanLen float64 `json:"meanLen"`

	cur   int
	total int
}

// Observe feeds one bit comparison outcome in stream order.
func (b *BurstStats) Observe(isError bool) {
	if isError {
		b.cur++
		b.total++
		if b.cur > b.MaxLen {
			b.MaxLen = b.cur
		}
		return
	}
	if b.cur > 0 {
		b.Bursts++
		b.cur = 0
	}
}

// Finalize closes an open burst and computes the mean length.
func (b *BurstStats) Finalize() {
	if b.cur > 0 {
		b.Bursts++
		b.cur = 0
	}
	if b.Bursts > 0 {
		b.MeanLen = float64(b.total) / float64(b.Bursts)
	}
}
