package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/echotrace/measure/echo"
	"github.com/cwbudde/echotrace/sonar"
)

// Config is the complete application configuration.
type Config struct {
	Pulse     PulseConfig     `yaml:"pulse"`
	Audio     AudioConfig     `yaml:"audio"`
	Estimator EstimatorConfig `yaml:"estimator"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Report    ReportConfig    `yaml:"report"`
}

// PulseConfig describes the transmitted chirp.
type PulseConfig struct {
	StartFreq    float64 `yaml:"start_freq"`     // Hz
	EndFreq      float64 `yaml:"end_freq"`       // Hz
	Duration     float64 `yaml:"duration"`       // seconds
	Interval     float64 `yaml:"interval"`       // seconds
	SpeedOfSound float64 `yaml:"speed_of_sound"` // m/s
}

// AudioConfig describes the duplex stream.
type AudioConfig struct {
	SampleRate     float64 `yaml:"sample_rate"`
	BlockSize      int     `yaml:"block_size"`
	QueueCapacity  int     `yaml:"queue_capacity"`
	CaptureDevice  string  `yaml:"capture_device"`
	PlaybackDevice string  `yaml:"playback_device"`
}

// EstimatorConfig tunes the echo gates.
type EstimatorConfig struct {
	DetectionRatio float64 `yaml:"detection_ratio"`
	EchoRatio      float64 `yaml:"echo_ratio"`
	SafeZone       float64 `yaml:"safe_zone"` // seconds
	Prominence     float64 `yaml:"prominence"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stdout, stderr or a file path
}

// ReportConfig controls exported history files.
type ReportConfig struct {
	Dir     string `yaml:"dir"`
	History int    `yaml:"history"` // measurements kept for export
}

// Default returns the built-in configuration.
func Default() *Config {
	p := sonar.DefaultParams()
	return &Config{
		Pulse: PulseConfig{
			StartFreq:    p.StartFreq,
			EndFreq:      p.EndFreq,
			Duration:     p.Duration,
			Interval:     p.Interval,
			SpeedOfSound: p.SpeedOfSound,
		},
		Audio: AudioConfig{
			SampleRate:    p.SampleRate,
			BlockSize:     p.BlockSize,
			QueueCapacity: sonar.DefaultQueueCapacity,
		},
		Estimator: EstimatorConfig{
			DetectionRatio: 0.2,
			EchoRatio:      0.05,
			SafeZone:       0.002,
			Prominence:     10,
		},
		Metrics: MetricsConfig{
			Address: "127.0.0.1:9464",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Report: ReportConfig{
			Dir:     ".",
			History: 100,
		},
	}
}

// Load reads a YAML file on top of the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("pulse/audio config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Estimator.Validate(c.Audio.SampleRate, c.Pulse.SpeedOfSound); err != nil {
		return fmt.Errorf("estimator config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.Report.Validate(); err != nil {
		return fmt.Errorf("report config: %w", err)
	}
	return nil
}

// Validate checks the stream settings not covered by sonar.Params.
func (a *AudioConfig) Validate() error {
	if a.QueueCapacity < 1 {
		return fmt.Errorf("%w: queue_capacity must be at least 1, got %d", sonar.ErrInvalidParameter, a.QueueCapacity)
	}
	return nil
}

// Validate builds a throwaway estimator to check the gates.
func (e *EstimatorConfig) Validate(sampleRate, speedOfSound float64) error {
	if _, err := echo.New(sampleRate, speedOfSound, e.Options()...); err != nil {
		return fmt.Errorf("%w: %w", sonar.ErrInvalidParameter, err)
	}
	return nil
}

// Options converts the section to estimator options.
func (e *EstimatorConfig) Options() []echo.Option {
	return []echo.Option{
		echo.WithDetectionRatio(e.DetectionRatio),
		echo.WithEchoRatio(e.EchoRatio),
		echo.WithSafeZone(e.SafeZone),
		echo.WithProminence(e.Prominence),
	}
}

// Validate checks the endpoint address when metrics are enabled.
func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Address == "" {
		return fmt.Errorf("%w: address cannot be empty when metrics are enabled", sonar.ErrInvalidParameter)
	}
	return nil
}

// Validate checks level and format names.
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: level must be debug, info, warn or error, got %q", sonar.ErrInvalidParameter, l.Level)
	}
	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: format must be text or json, got %q", sonar.ErrInvalidParameter, l.Format)
	}
	return nil
}

// Validate checks the history length.
func (r *ReportConfig) Validate() error {
	if r.History < 1 {
		return fmt.Errorf("%w: history must be at least 1, got %d", sonar.ErrInvalidParameter, r.History)
	}
	return nil
}

// Params converts the pulse and audio sections to sonar parameters.
func (c *Config) Params() sonar.Params {
	return sonar.Params{
		StartFreq:    c.Pulse.StartFreq,
		EndFreq:      c.Pulse.EndFreq,
		Duration:     c.Pulse.Duration,
		Interval:     c.Pulse.Interval,
		SampleRate:   c.Audio.SampleRate,
		BlockSize:    c.Audio.BlockSize,
		SpeedOfSound: c.Pulse.SpeedOfSound,
	}
}
