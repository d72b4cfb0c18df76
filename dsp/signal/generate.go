// Package signal generates deterministic test and excitation signals.
package signal

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/echotrace/dsp/core"
)

// Errors returned by generator functions.
var (
	ErrInvalidSampleRate = errors.New("signal: sample rate must be positive")
	ErrInvalidLength     = errors.New("signal: sample count must be positive")
	ErrInvalidDuration   = errors.New("signal: duration must be positive")
)

// Generator creates deterministic signals from a shared configuration.
type Generator struct {
	cfg  core.ProcessorConfig
	seed int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets deterministic random seed for noise generation.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a configured signal generator.
func NewGenerator(opts ...core.ProcessorOption) *Generator {
	return &Generator{
		cfg:  core.ApplyProcessorOptions(opts...),
		seed: 1,
	}
}

// NewGeneratorWithOptions creates a configured signal generator with signal-specific options.
func NewGeneratorWithOptions(coreOpts []core.ProcessorOption, opts ...Option) *Generator {
	g := NewGenerator(coreOpts...)
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Config returns the generator processor configuration.
func (g *Generator) Config() core.ProcessorConfig {
	return g.cfg
}

// LinearChirp generates samples of a sine whose instantaneous frequency
// rises (or falls) linearly from f0 at t=0 to f1 at t=duration.
//
// The samples are taken at t_i = i*duration/samples, i.e. evenly spaced over
// the half-open interval [0, duration). The phase is
//
//	φ(t) = 2π * (f0*t + (f1-f0)/(2*duration) * t²)
func (g *Generator) LinearChirp(f0, f1, duration float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, samples)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: %f", ErrInvalidDuration, duration)
	}

	out := make([]float64, samples)
	step := duration / float64(samples)
	k := (f1 - f0) / (2 * duration)
	for i := range out {
		t := float64(i) * step
		out[i] = math.Sin(2 * math.Pi * (f0*t + k*t*t))
	}
	return out, nil
}

// Chirp generates a linear chirp lasting duration seconds at the generator's
// sample rate, using round(sampleRate*duration) samples.
func (g *Generator) Chirp(f0, f1, duration float64) ([]float64, error) {
	if g.cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %f", ErrInvalidSampleRate, g.cfg.SampleRate)
	}
	return g.LinearChirp(f0, f1, duration, g.cfg.Samples(duration))
}

// GaussianNoise generates deterministic zero-mean normal noise with
// standard deviation sigma.
func (g *Generator) GaussianNoise(sigma float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, samples)
	}
	if sigma < 0 {
		return nil, fmt.Errorf("noise sigma must be >= 0: %f", sigma)
	}
	out := make([]float64, samples)
	rng := rand.New(rand.NewSource(g.seed))
	for i := range out {
		out[i] = rng.NormFloat64() * sigma
	}
	return out, nil
}
