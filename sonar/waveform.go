package sonar

import (
	"fmt"

	"github.com/cwbudde/echotrace/dsp/core"
	"github.com/cwbudde/echotrace/dsp/signal"
	"github.com/cwbudde/echotrace/dsp/window"
)

// Waveform is the periodic transmit buffer and the reference chirp it was
// built from. A Waveform is never modified after BuildWaveform returns; the
// exported slices must be treated as read-only.
type Waveform struct {
	// Reference is the windowed chirp, round(SampleRate*Duration) samples.
	Reference []float64
	// Period is the chirp followed by silence, round(SampleRate*Interval) samples.
	Period []float64

	params   Params
	playback []float32
}

// BuildWaveform synthesizes the chirp described by p and embeds it at the
// start of one period of silence. Identical parameters yield identical
// buffers.
func BuildWaveform(p Params) (*Waveform, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	gen := signal.NewGenerator(core.WithSampleRate(p.SampleRate), core.WithBlockSize(p.BlockSize))
	chirp, err := gen.LinearChirp(p.StartFreq, p.EndFreq, p.Duration, p.ChirpSamples())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	if err := window.ApplyHann(chirp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	period := make([]float64, p.PeriodSamples())
	copy(period, chirp)

	playback := make([]float32, len(period))
	for i, v := range period {
		playback[i] = float32(v)
	}

	return &Waveform{
		Reference: chirp,
		Period:    period,
		params:    p,
		playback:  playback,
	}, nil
}

// Params returns the parameters the waveform was built from.
func (w *Waveform) Params() Params {
	return w.params
}

// Len returns the period length in samples.
func (w *Waveform) Len() int {
	return len(w.Period)
}
