package sonar

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

const defaultDiagnosticsBuffer = 32

// TransportStats is a snapshot of the transport counters.
type TransportStats struct {
	Callbacks  uint64 // device callbacks served
	Frames     uint64 // playback frames written
	Pushed     uint64 // captured blocks queued
	Dropped    uint64 // captured blocks dropped on a full queue
	Faults     uint64 // callbacks that could not play the waveform
	Generation uint64 // number of successful starts
}

// TransportOption configures a Transport.
type TransportOption func(*transportConfig)

type transportConfig struct {
	queueCapacity int
	diagBuffer    int
}

// WithQueueCapacity sets the number of captured blocks that may wait for
// the consumer. Default 10.
func WithQueueCapacity(n int) TransportOption {
	return func(c *transportConfig) {
		c.queueCapacity = n
	}
}

// WithDiagnosticsBuffer sets how many device messages are buffered before
// new ones are dropped.
func WithDiagnosticsBuffer(n int) TransportOption {
	return func(c *transportConfig) {
		if n > 0 {
			c.diagBuffer = n
		}
	}
}

// Transport owns the playback cursor and the duplex stream.
//
// Start, Stop, Reconfigure and SetParams may be called from any goroutine.
// Process is the device callback and runs on the audio thread.
type Transport struct {
	driver  Driver
	handoff *Handoff // fixed for the lifetime of the transport

	mu      sync.Mutex // serializes control operations
	params  Params
	device  Device
	running atomic.Bool

	wave       atomic.Pointer[Waveform]
	generation atomic.Uint64

	cursor  int // touched only by Process and by Start before the device runs
	latency int // capture lag in frames, set by Start before the device runs

	callbacks atomic.Uint64
	frames    atomic.Uint64
	faults    atomic.Uint64

	diag chan string
}

// NewTransport builds the waveform for p and prepares a stopped transport.
func NewTransport(p Params, drv Driver, opts ...TransportOption) (*Transport, error) {
	if drv == nil {
		return nil, fmt.Errorf("%w: nil driver", ErrInvalidParameter)
	}

	cfg := transportConfig{
		queueCapacity: DefaultQueueCapacity,
		diagBuffer:    defaultDiagnosticsBuffer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	w, err := BuildWaveform(p)
	if err != nil {
		return nil, err
	}
	h, err := NewHandoff(cfg.queueCapacity, p.BlockSize)
	if err != nil {
		return nil, err
	}

	t := &Transport{
		driver:  drv,
		handoff: h,
		params:  p,
		diag:    make(chan string, cfg.diagBuffer),
	}
	t.wave.Store(w)
	return t, nil
}

// Start opens and starts the device. Calling Start on a running transport
// does nothing. On failure the transport stays stopped and the error wraps
// ErrDevice.
func (t *Transport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running.Load() {
		return nil
	}
	return t.startLocked()
}

// StartStrict is Start but returns ErrAlreadyRunning when the transport is
// running.
func (t *Transport) StartStrict() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running.Load() {
		return ErrAlreadyRunning
	}
	return t.startLocked()
}

func (t *Transport) startLocked() error {
	t.cursor = 0
	t.handoff.Drain()

	cfg := StreamConfig{
		SampleRate: t.params.SampleRate,
		BlockSize:  t.params.BlockSize,
	}
	dev, err := t.driver.Open(cfg, t.Process, t.notify)
	if err != nil {
		return fmt.Errorf("%w: open: %w", ErrDevice, err)
	}
	t.latency = 0
	if lr, ok := dev.(LatencyReporter); ok {
		t.latency = max(lr.CaptureLatency(), 0)
	}
	if err := dev.Start(); err != nil {
		if cerr := dev.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return fmt.Errorf("%w: start: %w", ErrDevice, err)
	}

	t.device = dev
	t.generation.Add(1)
	t.running.Store(true)
	return nil
}

// Stop stops and releases the device. It is safe to call on a stopped
// transport. The device is closed even when stopping it fails.
func (t *Transport) Stop() (err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running.Load() {
		return nil
	}
	dev := t.device
	t.device = nil
	t.running.Store(false)

	defer func() {
		if cerr := dev.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("%w: close: %w", ErrDevice, cerr))
		}
	}()

	if serr := dev.Stop(); serr != nil {
		return fmt.Errorf("%w: stop: %w", ErrDevice, serr)
	}
	return nil
}

// Reconfigure rebuilds the chirp with new start and end frequencies and
// swaps it in without stopping the stream. The playback cursor is kept.
func (t *Transport) Reconfigure(f0, f1 float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.params.WithChirp(f0, f1)
	w, err := BuildWaveform(p)
	if err != nil {
		return err
	}
	t.params = p
	t.wave.Store(w)
	return nil
}

// SetParams replaces the full parameter set. Changing the sample rate or
// block size requires a stopped transport. The handoff keeps the block size
// it was created with; larger device blocks are split on push.
func (t *Transport) SetParams(p Params) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running.Load() && (p.SampleRate != t.params.SampleRate || p.BlockSize != t.params.BlockSize) {
		return fmt.Errorf("%w: sample rate and block size are fixed while streaming", ErrRunning)
	}

	w, err := BuildWaveform(p)
	if err != nil {
		return err
	}
	t.params = p
	t.wave.Store(w)
	return nil
}

// Process is the device callback. It writes the next len(out) samples of
// the periodic buffer to out, wrapping as needed, and queues a copy of in
// tagged with the playback position it was captured against, corrected by
// the device's capture latency.
func (t *Transport) Process(out, in []float32) {
	t.callbacks.Add(1)

	phase, period := -1, 0
	w := t.wave.Load()
	if w == nil || len(w.playback) == 0 {
		clear(out)
		t.faults.Add(1)
	} else {
		period = len(w.playback)
		if t.cursor < 0 || t.cursor >= period {
			t.cursor = 0
		}
		// in was recorded against playback latency frames back.
		phase = ((t.cursor-t.latency)%period + period) % period
		t.cursor = fillCircular(out, w.playback, t.cursor)
		t.frames.Add(uint64(len(out)))
	}

	if len(in) > 0 {
		t.handoff.TryPushAt(in, phase, period)
	}
}

// fillCircular copies from src starting at pos into dst, wrapping at the end
// of src, and returns the next position.
func fillCircular(dst, src []float32, pos int) int {
	if pos < 0 || pos >= len(src) {
		pos = 0
	}
	for n := 0; n < len(dst); {
		c := copy(dst[n:], src[pos:])
		n += c
		pos += c
		if pos == len(src) {
			pos = 0
		}
	}
	return pos
}

func (t *Transport) notify(msg string) {
	select {
	case t.diag <- msg:
	default:
	}
}

// Handoff returns the captured block queue.
func (t *Transport) Handoff() *Handoff {
	return t.handoff
}

// Waveform returns the waveform currently being played.
func (t *Transport) Waveform() *Waveform {
	return t.wave.Load()
}

// Params returns the current parameters.
func (t *Transport) Params() Params {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.params
}

// Running reports whether the device is streaming.
func (t *Transport) Running() bool {
	return t.running.Load()
}

// Generation returns the number of successful starts. It changes whenever
// the captured stream restarts.
func (t *Transport) Generation() uint64 {
	return t.generation.Load()
}

// Diagnostics returns device status messages. Messages are dropped when
// nobody reads them.
func (t *Transport) Diagnostics() <-chan string {
	return t.diag
}

// Stats returns a snapshot of the transport counters.
func (t *Transport) Stats() TransportStats {
	h := t.Handoff()
	return TransportStats{
		Callbacks:  t.callbacks.Load(),
		Frames:     t.frames.Load(),
		Pushed:     h.Pushed(),
		Dropped:    h.Dropped(),
		Faults:     t.faults.Load(),
		Generation: t.generation.Load(),
	}
}
