package echo

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/cwbudde/echotrace/dsp/conv"
	"github.com/cwbudde/echotrace/dsp/core"
)

// Errors returned by estimator construction.
var (
	ErrInvalidSampleRate = errors.New("echo: sample rate must be positive")
	ErrInvalidSpeed      = errors.New("echo: speed of sound must be positive")
	ErrInvalidRatio      = errors.New("echo: ratio must be in (0, 1)")
	ErrInvalidSafeZone   = errors.New("echo: safe zone must be non-negative")
	ErrInvalidProminence = errors.New("echo: prominence must be >= 1")
)

const (
	defaultDetectionRatio = 0.2
	defaultEchoRatio      = 0.05
	defaultSafeZone       = 0.002 // seconds, covers the chirp correlation main lobe
	defaultProminence     = 10
)

// Outcome classifies an estimation.
type Outcome int

const (
	// Detected means an echo was found after the direct path.
	Detected Outcome = iota
	// Silent means the input was empty or nothing exceeded the detection threshold.
	Silent
	// Buried means the direct path did not stand out from the correlation floor.
	Buried
	// Faint means nothing outside the masked direct path reached the echo threshold.
	Faint
	// Early means the strongest secondary peak did not arrive after the direct path.
	Early
)

// String returns a short lowercase label.
func (o Outcome) String() string {
	switch o {
	case Detected:
		return "detected"
	case Silent:
		return "silent"
	case Buried:
		return "buried"
	case Faint:
		return "faint"
	case Early:
		return "early"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result holds one estimation.
type Result struct {
	Distance    float64   // one-way distance in meters, 0 when no echo
	SampleDelta int       // echo lag minus direct lag, 0 when no echo
	Magnitude   []float64 // |cross-correlation|, len(recording)+len(reference)-1
	Outcome     Outcome

	DirectIndex int     // index of the direct path in Magnitude, -1 if none
	EchoIndex   int     // index of the echo in Magnitude, -1 if none
	DirectLag   int     // lag of the direct path in samples
	EchoLag     int     // lag of the echo in samples
	Peak        float64 // magnitude at DirectIndex
	EchoPeak    float64 // magnitude at EchoIndex
}

// NoEcho reports whether the result is the no-echo sentinel.
func (r Result) NoEcho() bool {
	return r.Distance == 0
}

// Estimator turns a recorded period and the reference pulse into a distance.
// It holds configuration only and is safe for concurrent use.
type Estimator struct {
	sampleRate     float64
	speedOfSound   float64
	detectionRatio float64
	echoRatio      float64
	safeZone       float64
	prominence     float64
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithDetectionRatio sets the fraction of the maximum that at least one
// correlation sample must exceed. Default 0.2.
func WithDetectionRatio(r float64) Option {
	return func(e *Estimator) {
		e.detectionRatio = r
	}
}

// WithEchoRatio sets the fraction of the maximum the echo must reach.
// Default 0.05.
func WithEchoRatio(r float64) Option {
	return func(e *Estimator) {
		e.echoRatio = r
	}
}

// WithSafeZone sets the half-width in seconds of the window masked around
// the direct path. Default 2 ms.
func WithSafeZone(seconds float64) Option {
	return func(e *Estimator) {
		e.safeZone = seconds
	}
}

// WithProminence sets how many times the direct peak must exceed the median
// correlation magnitude. Default 10. WithProminence(1) disables the check,
// since the peak is never below the median, and leaves the plain
// threshold, mask and echo gate algorithm.
func WithProminence(ratio float64) Option {
	return func(e *Estimator) {
		e.prominence = ratio
	}
}

// New creates an Estimator.
func New(sampleRate, speedOfSound float64, opts ...Option) (*Estimator, error) {
	e := &Estimator{
		sampleRate:     sampleRate,
		speedOfSound:   speedOfSound,
		detectionRatio: defaultDetectionRatio,
		echoRatio:      defaultEchoRatio,
		safeZone:       defaultSafeZone,
		prominence:     defaultProminence,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	if err := e.validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Estimator) validate() error {
	switch {
	case !(e.sampleRate > 0) || math.IsInf(e.sampleRate, 0):
		return fmt.Errorf("%w: %v", ErrInvalidSampleRate, e.sampleRate)
	case !(e.speedOfSound > 0) || math.IsInf(e.speedOfSound, 0):
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, e.speedOfSound)
	case !(e.detectionRatio > 0 && e.detectionRatio < 1):
		return fmt.Errorf("%w: detection %v", ErrInvalidRatio, e.detectionRatio)
	case !(e.echoRatio > 0 && e.echoRatio < 1):
		return fmt.Errorf("%w: echo %v", ErrInvalidRatio, e.echoRatio)
	case !(e.safeZone >= 0):
		return fmt.Errorf("%w: %v", ErrInvalidSafeZone, e.safeZone)
	case !(e.prominence >= 1):
		return fmt.Errorf("%w: %v", ErrInvalidProminence, e.prominence)
	}
	return nil
}

// SampleRate returns the configured sample rate in Hz.
func (e *Estimator) SampleRate() float64 { return e.sampleRate }

// SpeedOfSound returns the configured propagation speed in m/s.
func (e *Estimator) SpeedOfSound() float64 { return e.speedOfSound }

// SafeZoneSamples returns the masking half-width in samples.
func (e *Estimator) SafeZoneSamples() int {
	return core.SamplesFor(e.sampleRate, e.safeZone)
}

// Distance converts a round-trip lag in samples to a one-way distance.
func (e *Estimator) Distance(delta int) float64 {
	return float64(delta) / e.sampleRate * e.speedOfSound / 2
}

// MaxDistance returns the largest distance that fits in a recording of n
// samples behind a direct path at lag 0.
func (e *Estimator) MaxDistance(n int) float64 {
	if n <= 0 {
		return 0
	}
	return e.Distance(n - 1)
}

// Estimate correlates recording against reference and locates the echo.
func (e *Estimator) Estimate(recording, reference []float64) Result {
	res := Result{Outcome: Silent, DirectIndex: -1, EchoIndex: -1}

	corr, err := conv.Correlate(recording, reference)
	if err != nil {
		return res
	}
	mag := conv.Magnitude(corr, corr)
	res.Magnitude = mag

	maxIdx, peak := conv.FindPeak(mag)
	if !(peak > 0) || !exceeds(mag, e.detectionRatio*peak) {
		return res
	}
	res.DirectIndex = maxIdx
	res.DirectLag = Lag(maxIdx, len(reference))
	res.Peak = peak

	if peak < e.prominence*median(mag) {
		res.Outcome = Buried
		return res
	}

	masked := Mask(mag, maxIdx, e.SafeZoneSamples())
	echoIdx, echoPeak := conv.FindPeak(masked)
	if echoPeak < e.echoRatio*peak {
		res.Outcome = Faint
		return res
	}
	res.EchoIndex = echoIdx
	res.EchoLag = Lag(echoIdx, len(reference))
	res.EchoPeak = echoPeak

	delta := res.EchoLag - res.DirectLag
	if delta <= 0 {
		res.Outcome = Early
		return res
	}

	res.Outcome = Detected
	res.SampleDelta = delta
	res.Distance = e.Distance(delta)
	return res
}

// Lag returns the lag of a magnitude index for a reference of refLen samples.
func Lag(index, refLen int) int {
	return conv.LagFromIndex(index, refLen)
}

// Mask returns a copy of mag with [center-halfWidth, center+halfWidth)
// set to zero, clamped to the slice bounds.
func Mask(mag []float64, center, halfWidth int) []float64 {
	out := slices.Clone(mag)
	if len(out) == 0 || halfWidth <= 0 {
		return out
	}

	start := core.ClampInt(center-halfWidth, 0, len(out))
	end := core.ClampInt(center+halfWidth, 0, len(out))
	clear(out[start:end])
	return out
}

func exceeds(x []float64, threshold float64) bool {
	for _, v := range x {
		if v > threshold {
			return true
		}
	}
	return false
}

func median(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	s := slices.Clone(x)
	slices.Sort(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
