package sonar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cwbudde/echotrace/measure/echo"
	"github.com/cwbudde/echotrace/stats/level"
)

const (
	defaultResultBuffer = 16
	defaultBacklog      = 4
)

// Measurement is the outcome of one captured period.
type Measurement struct {
	Time       time.Time
	Seq        uint64 // period sequence number since the monitor started
	Generation uint64 // transport generation the period belongs to
	Result     echo.Result
	Level      level.Stats   // input level of the period
	Latency    time.Duration // time spent estimating
}

// Observer receives monitor events. Implementations must be safe for use
// from the monitor goroutine and must not block.
type Observer interface {
	BlockReceived(samples int)
	PeriodDiscarded(n int)
	Measured(m Measurement)
	MeasurementDropped()
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithLogger sets the logger. Default discards.
func WithLogger(l *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		if l != nil {
			m.log = l
		}
	}
}

// WithObserver registers an observer for monitor events.
func WithObserver(o Observer) MonitorOption {
	return func(m *Monitor) {
		m.obs = o
	}
}

// WithResultBuffer sets how many measurements may wait for a reader.
func WithResultBuffer(n int) MonitorOption {
	return func(m *Monitor) {
		if n > 0 {
			m.resultBuffer = n
		}
	}
}

// WithBacklog sets how many periods of capture may queue up before the
// oldest are discarded.
func WithBacklog(periods int) MonitorOption {
	return func(m *Monitor) {
		if periods > 0 {
			m.backlog = periods
		}
	}
}

// WithEstimatorOptions passes options to the echo estimator.
func WithEstimatorOptions(opts ...echo.Option) MonitorOption {
	return func(m *Monitor) {
		m.estOpts = append(m.estOpts, opts...)
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// Monitor consumes captured blocks, estimates the echo distance of every
// period and publishes Measurements.
type Monitor struct {
	transport *Transport
	log       *slog.Logger
	obs       Observer
	now       func() time.Time

	resultBuffer int
	backlog      int
	estOpts      []echo.Option

	results chan Measurement
	dropped atomic.Uint64

	// consumer state, owned by the goroutine calling Run or Process
	acc        *Accumulator
	est        *echo.Estimator
	estParams  Params
	generation uint64
	seq        uint64
	discarded  uint64
	nextBlock  uint64 // expected Block.Seq, 0 before the first block
	aligned    bool   // accumulator starts on a period boundary
}

// NewMonitor creates a monitor reading from t.
func NewMonitor(t *Transport, opts ...MonitorOption) (*Monitor, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}

	m := &Monitor{
		transport:    t,
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:          time.Now,
		resultBuffer: defaultResultBuffer,
		backlog:      defaultBacklog,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	w := t.Waveform()
	if err := m.rebuildEstimator(w.Params()); err != nil {
		return nil, err
	}
	acc, err := NewAccumulator(w.Len(), m.backlog)
	if err != nil {
		return nil, err
	}
	m.acc = acc
	m.generation = t.Generation()
	m.results = make(chan Measurement, m.resultBuffer)
	return m, nil
}

// Results returns the measurement stream. It is closed when Run returns.
func (m *Monitor) Results() <-chan Measurement {
	return m.results
}

// Dropped returns the number of measurements discarded because the reader
// was too slow.
func (m *Monitor) Dropped() uint64 {
	return m.dropped.Load()
}

// Run drains captured blocks until ctx is cancelled. It must be called at
// most once.
func (m *Monitor) Run(ctx context.Context) error {
	defer close(m.results)

	blocks := m.transport.Handoff().Blocks()
	m.log.Debug("monitor started", "period_samples", m.acc.Period())
	for {
		select {
		case <-ctx.Done():
			m.log.Debug("monitor stopped", "periods", m.seq, "dropped", m.dropped.Load())
			return nil
		case b := <-blocks:
			m.Process(b)
		}
	}
}

// Process consumes one block and publishes a measurement for every period
// it completes. The block is released back to the handoff.
func (m *Monitor) Process(b *Block) {
	if b == nil {
		return
	}

	w := m.transport.Waveform()
	m.sync(w)

	if m.nextBlock != 0 && b.Seq != m.nextBlock {
		m.log.Debug("capture gap, realigning", "expected", m.nextBlock, "got", b.Seq)
		m.acc.Reset(w.Len())
		m.aligned = false
	}
	m.nextBlock = b.Seq + 1

	m.acc.Append(m.align(b, w.Len()))
	n := len(b.Samples)
	m.transport.Handoff().Release(b)
	if m.obs != nil {
		m.obs.BlockReceived(n)
	}

	if d := m.acc.Discarded(); d != m.discarded {
		m.log.Warn("capture backlog overflow, periods discarded", "periods", d-m.discarded)
		if m.obs != nil {
			m.obs.PeriodDiscarded(int(d - m.discarded))
		}
		m.discarded = d
	}

	for {
		period, ok := m.acc.Next()
		if !ok {
			return
		}
		m.measure(period, w)
	}
}

// align returns the part of b that continues the accumulated stream. After
// a reset, samples before the next period boundary are skipped.
func (m *Monitor) align(b *Block, period int) []float32 {
	if m.aligned || b.Phase < 0 {
		m.aligned = true
		return b.Samples
	}
	if b.Period != period {
		return nil
	}
	skip := (period - b.Phase) % period
	if skip >= len(b.Samples) {
		return nil
	}
	m.aligned = true
	return b.Samples[skip:]
}

// sync resets the accumulator after a restart or a period length change,
// and rebuilds the estimator when the sample rate or speed of sound change.
func (m *Monitor) sync(w *Waveform) {
	if gen := m.transport.Generation(); gen != m.generation {
		m.generation = gen
		m.acc.Reset(w.Len())
		m.aligned = false
	} else if w.Len() != m.acc.Period() {
		m.acc.Reset(w.Len())
		m.aligned = false
	}

	p := w.Params()
	if p.SampleRate != m.estParams.SampleRate || p.SpeedOfSound != m.estParams.SpeedOfSound {
		if err := m.rebuildEstimator(p); err != nil {
			m.log.Error("estimator rebuild failed", "err", err)
		}
	}
}

func (m *Monitor) rebuildEstimator(p Params) error {
	est, err := echo.New(p.SampleRate, p.SpeedOfSound, m.estOpts...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	m.est = est
	m.estParams = p
	return nil
}

func (m *Monitor) measure(period []float64, w *Waveform) {
	start := time.Now()
	res := m.est.Estimate(period, w.Reference)
	m.seq++

	meas := Measurement{
		Time:       m.now(),
		Seq:        m.seq,
		Generation: m.generation,
		Result:     res,
		Level:      level.Calculate(period),
		Latency:    time.Since(start),
	}

	if m.obs != nil {
		m.obs.Measured(meas)
	}
	m.log.Debug("period estimated",
		"seq", meas.Seq,
		"outcome", res.Outcome.String(),
		"distance_m", res.Distance,
		"delta", res.SampleDelta,
		"rms_db", meas.Level.RMSdB,
	)

	select {
	case m.results <- meas:
	default:
		m.dropped.Add(1)
		if m.obs != nil {
			m.obs.MeasurementDropped()
		}
	}
}
