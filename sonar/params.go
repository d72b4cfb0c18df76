package sonar

import (
	"fmt"
	"math"

	"github.com/cwbudde/echotrace/dsp/core"
)

// Defaults for a desktop speaker and microphone.
const (
	DefaultSampleRate    = 44100.0
	DefaultBlockSize     = 4096
	DefaultStartFreq     = 2000.0
	DefaultEndFreq       = 8000.0
	DefaultDuration      = 0.005
	DefaultInterval      = 0.1
	DefaultSpeedOfSound  = 343.0
	DefaultQueueCapacity = 10
)

// Params describes the transmitted pulse and the stream carrying it.
type Params struct {
	StartFreq    float64 // chirp frequency at t=0 in Hz
	EndFreq      float64 // chirp frequency at t=Duration in Hz
	Duration     float64 // chirp length in seconds
	Interval     float64 // period length in seconds
	SampleRate   float64 // stream sample rate in Hz
	BlockSize    int     // frames per device callback
	SpeedOfSound float64 // propagation speed in m/s
}

// DefaultParams returns a 2-8 kHz, 5 ms chirp repeated every 100 ms at 44.1 kHz.
func DefaultParams() Params {
	return Params{
		StartFreq:    DefaultStartFreq,
		EndFreq:      DefaultEndFreq,
		Duration:     DefaultDuration,
		Interval:     DefaultInterval,
		SampleRate:   DefaultSampleRate,
		BlockSize:    DefaultBlockSize,
		SpeedOfSound: DefaultSpeedOfSound,
	}
}

// Validate checks that the parameters describe a playable pulse.
// A falling chirp (StartFreq > EndFreq) is allowed.
func (p Params) Validate() error {
	if !positive(p.SampleRate) {
		return fmt.Errorf("%w: sample rate %v", ErrInvalidParameter, p.SampleRate)
	}

	nyquist := p.SampleRate / 2
	if !positive(p.StartFreq) || p.StartFreq >= nyquist {
		return fmt.Errorf("%w: start frequency %v outside (0, %v)", ErrInvalidParameter, p.StartFreq, nyquist)
	}
	if !positive(p.EndFreq) || p.EndFreq >= nyquist {
		return fmt.Errorf("%w: end frequency %v outside (0, %v)", ErrInvalidParameter, p.EndFreq, nyquist)
	}

	if !positive(p.Duration) {
		return fmt.Errorf("%w: duration %v", ErrInvalidParameter, p.Duration)
	}
	if !positive(p.Interval) || p.Duration >= p.Interval {
		return fmt.Errorf("%w: interval %v must exceed duration %v", ErrInvalidParameter, p.Interval, p.Duration)
	}
	if p.ChirpSamples() < 1 {
		return fmt.Errorf("%w: duration %v shorter than one sample", ErrInvalidParameter, p.Duration)
	}

	if p.BlockSize <= 0 {
		return fmt.Errorf("%w: block size %d", ErrInvalidParameter, p.BlockSize)
	}
	if !positive(p.SpeedOfSound) {
		return fmt.Errorf("%w: speed of sound %v", ErrInvalidParameter, p.SpeedOfSound)
	}
	return nil
}

// ChirpSamples returns round(SampleRate*Duration).
func (p Params) ChirpSamples() int {
	return core.SamplesFor(p.SampleRate, p.Duration)
}

// PeriodSamples returns round(SampleRate*Interval).
func (p Params) PeriodSamples() int {
	return core.SamplesFor(p.SampleRate, p.Interval)
}

// WithChirp returns a copy with new start and end frequencies.
func (p Params) WithChirp(f0, f1 float64) Params {
	p.StartFreq = f0
	p.EndFreq = f1
	return p
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
