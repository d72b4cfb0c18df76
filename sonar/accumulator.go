package sonar

import "fmt"

// Accumulator cuts a stream of captured blocks into whole periods.
//
// Samples beyond the current period are kept for the next one. When the
// consumer falls behind by more than the configured backlog, the oldest
// whole periods are discarded so that period boundaries stay aligned with
// the transmit buffer.
type Accumulator struct {
	period     int
	maxPeriods int
	buf        []float64
	out        []float64
	discarded  uint64
}

// NewAccumulator creates an accumulator emitting periods of the given
// length and buffering at most maxPeriods periods.
func NewAccumulator(period, maxPeriods int) (*Accumulator, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: period length %d", ErrInvalidParameter, period)
	}
	if maxPeriods <= 0 {
		return nil, fmt.Errorf("%w: backlog %d", ErrInvalidParameter, maxPeriods)
	}
	return &Accumulator{
		period:     period,
		maxPeriods: maxPeriods,
		buf:        make([]float64, 0, period*2),
		out:        make([]float64, period),
	}, nil
}

// Append adds captured samples.
func (a *Accumulator) Append(samples []float32) {
	for _, v := range samples {
		a.buf = append(a.buf, float64(v))
	}

	limit := a.period * a.maxPeriods
	if excess := len(a.buf) - limit; excess > 0 {
		drop := (excess + a.period - 1) / a.period * a.period
		a.buf = append(a.buf[:0], a.buf[drop:]...)
		a.discarded += uint64(drop / a.period)
	}
}

// Next returns the next complete period. The returned slice is reused by
// the following call.
func (a *Accumulator) Next() ([]float64, bool) {
	if len(a.buf) < a.period {
		return nil, false
	}
	copy(a.out, a.buf[:a.period])
	a.buf = append(a.buf[:0], a.buf[a.period:]...)
	return a.out, true
}

// Reset discards buffered samples and switches to a new period length.
// Non-positive lengths keep the current one.
func (a *Accumulator) Reset(period int) {
	a.buf = a.buf[:0]
	if period > 0 && period != a.period {
		a.period = period
		a.out = make([]float64, period)
	}
}

// Period returns the period length in samples.
func (a *Accumulator) Period() int { return a.period }

// Buffered returns the number of samples waiting for a full period.
func (a *Accumulator) Buffered() int { return len(a.buf) }

// Discarded returns the number of whole periods dropped on overflow.
func (a *Accumulator) Discarded() uint64 { return a.discarded }
