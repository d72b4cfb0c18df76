// Command echotrace measures the distance to the nearest reflecting surface
// by playing a chirp through the speaker and cross-correlating what the
// microphone hears.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/echotrace/internal/config"
	"github.com/cwbudde/echotrace/internal/device"
	"github.com/cwbudde/echotrace/sonar"
)

// flags holds command line overrides. Only flags the user set are applied
// on top of the configuration file.
type flags struct {
	configPath string
	logLevel   string

	startFreq  float64
	endFreq    float64
	duration   float64
	interval   float64
	sampleRate float64
	blockSize  int
	capture    string
	playback   string

	simulate    bool
	simDistance float64
	simGain     float64
	simNoise    float64
	simLatency  time.Duration
	simSeed     int64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:   "echotrace",
		Short: "EchoTrace - acoustic distance meter",
		Long: `EchoTrace plays a short linear chirp through the default speaker,
records the microphone and estimates the distance to the nearest reflecting
surface from the delay between the direct sound and its first echo.

Use --simulate to run against a software loopback instead of sound hardware.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "Path to a YAML configuration file")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.Float64Var(&f.startFreq, "f0", sonar.DefaultStartFreq, "Chirp start frequency in Hz")
	pf.Float64Var(&f.endFreq, "f1", sonar.DefaultEndFreq, "Chirp end frequency in Hz")
	pf.Float64Var(&f.duration, "duration", sonar.DefaultDuration, "Chirp length in seconds")
	pf.Float64Var(&f.interval, "interval", sonar.DefaultInterval, "Chirp repetition interval in seconds")
	pf.Float64Var(&f.sampleRate, "sample-rate", sonar.DefaultSampleRate, "Stream sample rate in Hz")
	pf.IntVar(&f.blockSize, "block-size", sonar.DefaultBlockSize, "Frames per device callback")
	pf.StringVar(&f.capture, "capture", "", "Capture device name (default device when empty)")
	pf.StringVar(&f.playback, "playback", "", "Playback device name (default device when empty)")

	pf.BoolVar(&f.simulate, "simulate", false, "Use a simulated room instead of sound hardware")
	pf.Float64Var(&f.simDistance, "sim-distance", 1.0, "Simulated reflector distance in meters")
	pf.Float64Var(&f.simGain, "sim-gain", 0.3, "Simulated echo amplitude relative to the direct path")
	pf.Float64Var(&f.simNoise, "sim-noise", 0.001, "Simulated noise standard deviation")
	pf.DurationVar(&f.simLatency, "sim-latency", 5*time.Millisecond, "Simulated speaker to microphone latency")
	pf.Int64Var(&f.simSeed, "sim-seed", 1, "Simulated noise seed")

	rootCmd.AddCommand(
		newRunCmd(f),
		newMeasureCmd(f),
		newDevicesCmd(),
		newSimulateCmd(f),
	)
	return rootCmd
}

// loadConfig reads the configuration file, if any, and applies the flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := func(name string) bool {
		fl := cmd.Flag(name)
		return fl != nil && fl.Changed
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("f0") {
		cfg.Pulse.StartFreq = f.startFreq
	}
	if changed("f1") {
		cfg.Pulse.EndFreq = f.endFreq
	}
	if changed("duration") {
		cfg.Pulse.Duration = f.duration
	}
	if changed("interval") {
		cfg.Pulse.Interval = f.interval
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if changed("block-size") {
		cfg.Audio.BlockSize = f.blockSize
	}
	if changed("capture") {
		cfg.Audio.CaptureDevice = f.capture
	}
	if changed("playback") {
		cfg.Audio.PlaybackDevice = f.playback
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newDriver picks the simulated room or the miniaudio backend.
func newDriver(cfg *config.Config, f *flags, realtime bool) sonar.Driver {
	if f.simulate {
		return device.NewSimulator(simConfig(cfg, f, realtime))
	}
	return device.NewMalgo(device.Options{
		CaptureName:  cfg.Audio.CaptureDevice,
		PlaybackName: cfg.Audio.PlaybackDevice,
	})
}

func simConfig(cfg *config.Config, f *flags, realtime bool) device.SimConfig {
	return device.SimConfig{
		DirectDelay:  f.simLatency,
		Reflectors:   []device.Reflector{{Distance: f.simDistance, Gain: f.simGain}},
		NoiseSigma:   f.simNoise,
		SpeedOfSound: cfg.Pulse.SpeedOfSound,
		Seed:         f.simSeed,
		Realtime:     realtime,
	}
}

// newSession builds the transport and the monitor from cfg.
func newSession(cfg *config.Config, drv sonar.Driver, opts ...sonar.MonitorOption) (*sonar.Transport, *sonar.Monitor, error) {
	t, err := sonar.NewTransport(cfg.Params(), drv, sonar.WithQueueCapacity(cfg.Audio.QueueCapacity))
	if err != nil {
		return nil, nil, fmt.Errorf("create transport: %w", err)
	}

	opts = append(opts, sonar.WithEstimatorOptions(cfg.Estimator.Options()...))
	mon, err := sonar.NewMonitor(t, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create monitor: %w", err)
	}
	return t, mon, nil
}
