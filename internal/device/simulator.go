package device

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/cwbudde/echotrace/dsp/core"
	"github.com/cwbudde/echotrace/sonar"
)

// Reflector is a surface returning a scaled copy of the transmitted signal.
type Reflector struct {
	Distance float64 // one-way distance in meters
	Gain     float64 // amplitude relative to the direct path
}

// SimConfig describes a simulated room.
type SimConfig struct {
	DirectDelay  time.Duration // speaker to microphone latency
	Reflectors   []Reflector
	NoiseSigma   float64 // standard deviation of additive Gaussian noise
	SpeedOfSound float64 // m/s, default 343
	Seed         int64
	Realtime     bool // pace callbacks at the stream sample rate
}

// Simulator is a driver whose capture side hears its own playback through
// a direct path and a set of reflectors. Capture of a block is delivered
// with the following callback; the first callback carries no capture, so
// capture sample k is heard at playback sample k.
type Simulator struct {
	cfg SimConfig
}

// NewSimulator creates a simulated loopback driver.
func NewSimulator(cfg SimConfig) *Simulator {
	if cfg.SpeedOfSound <= 0 {
		cfg.SpeedOfSound = sonar.DefaultSpeedOfSound
	}
	return &Simulator{cfg: cfg}
}

type path struct {
	delay int
	gain  float64
}

// Open prepares a simulated stream.
func (s *Simulator) Open(cfg sonar.StreamConfig, cb sonar.Callback, notify sonar.Notify) (sonar.Device, error) {
	if cfg.SampleRate <= 0 || cfg.BlockSize <= 0 {
		return nil, fmt.Errorf("simulator: invalid stream %v Hz, %d frames", cfg.SampleRate, cfg.BlockSize)
	}
	if notify == nil {
		notify = func(string) {}
	}

	direct := int(math.Round(s.cfg.DirectDelay.Seconds() * cfg.SampleRate))
	paths := []path{{delay: direct, gain: 1}}
	for _, r := range s.cfg.Reflectors {
		if r.Distance < 0 {
			return nil, fmt.Errorf("simulator: negative distance %v", r.Distance)
		}
		extra := int(math.Round(2 * r.Distance / s.cfg.SpeedOfSound * cfg.SampleRate))
		paths = append(paths, path{delay: direct + extra, gain: r.Gain})
	}

	maxDelay := 0
	for _, p := range paths {
		maxDelay = max(maxDelay, p.delay)
	}

	notify(fmt.Sprintf("simulator: %d paths, max delay %d samples", len(paths), maxDelay))
	return &simDevice{
		cfg:    cfg,
		cb:     cb,
		paths:  paths,
		hist:   make([]float32, maxDelay+cfg.BlockSize),
		out:    make([]float32, cfg.BlockSize),
		in:     make([]float32, cfg.BlockSize),
		sigma:  s.cfg.NoiseSigma,
		rng:    rand.New(rand.NewSource(s.cfg.Seed)),
		paced:  s.cfg.Realtime,
		notify: notify,
	}, nil
}

type simDevice struct {
	cfg    sonar.StreamConfig
	cb     sonar.Callback
	paths  []path
	hist   []float32 // ring of recent playback
	pos    int       // samples played so far
	out    []float32
	in     []float32
	sigma  float64
	rng    *rand.Rand
	paced  bool
	notify sonar.Notify

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

var errSimRunning = errors.New("simulator: already started")

func (d *simDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stop != nil {
		return errSimRunning
	}
	d.stop = make(chan struct{})
	d.wg.Add(1)
	go d.loop(d.stop)
	return nil
}

func (d *simDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stop == nil {
		return nil
	}
	close(d.stop)
	d.wg.Wait()
	d.stop = nil
	return nil
}

func (d *simDevice) Close() error {
	return d.Stop()
}

// CaptureLatency reports the one-block delay of the loopback: capture of a
// block is delivered with the following callback.
func (d *simDevice) CaptureLatency() int {
	return d.cfg.BlockSize
}

func (d *simDevice) loop(stop <-chan struct{}) {
	defer d.wg.Done()

	var tick <-chan time.Time
	if d.paced {
		clock := core.ApplyProcessorOptions(core.WithSampleRate(d.cfg.SampleRate), core.WithBlockSize(d.cfg.BlockSize))
		period := time.Duration(clock.BlockDuration() * float64(time.Second))
		t := time.NewTicker(period)
		defer t.Stop()
		tick = t.C
	}

	for {
		if tick != nil {
			select {
			case <-stop:
				return
			case <-tick:
			}
		} else {
			select {
			case <-stop:
				return
			default:
			}
		}

		d.step()
	}
}

// step runs one callback and synthesizes the capture for the next one.
func (d *simDevice) step() {
	in := d.in
	if d.pos == 0 {
		in = in[:0]
	}
	d.cb(d.out, in)
	d.record(d.out)
	d.listen(d.in)
	d.pos += len(d.out)
}

func (d *simDevice) record(out []float32) {
	n := len(d.hist)
	for i, v := range out {
		d.hist[(d.pos+i)%n] = v
	}
}

// listen synthesizes the capture of the block just played.
func (d *simDevice) listen(in []float32) {
	n := len(d.hist)
	for i := range in {
		k := d.pos + i
		var v float64
		if d.sigma > 0 {
			v = d.rng.NormFloat64() * d.sigma
		}
		for _, p := range d.paths {
			if j := k - p.delay; j >= 0 {
				v += p.gain * float64(d.hist[j%n])
			}
		}
		in[i] = float32(v)
	}
}
