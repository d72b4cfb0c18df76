package main

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/echotrace/dsp/core"
	"github.com/cwbudde/echotrace/dsp/signal"
	"github.com/cwbudde/echotrace/internal/config"
	"github.com/cwbudde/echotrace/internal/report"
	"github.com/cwbudde/echotrace/measure/echo"
	"github.com/cwbudde/echotrace/sonar"
)

func newSimulateCmd(f *flags) *cobra.Command {
	var snapshot bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Estimate the echo in one synthetic period",
		Long: `Simulate builds one period containing the direct chirp, a reflection
from --sim-distance and Gaussian noise, then runs the echo estimator on it.
No audio device is opened.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}

			w, err := sonar.BuildWaveform(cfg.Params())
			if err != nil {
				return err
			}
			rec, err := synthesize(w, cfg, f)
			if err != nil {
				return err
			}

			est, err := echo.New(cfg.Audio.SampleRate, cfg.Pulse.SpeedOfSound, cfg.Estimator.Options()...)
			if err != nil {
				return err
			}
			res := est.Estimate(rec, w.Reference)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "outcome:  %s\n", res.Outcome)
			fmt.Fprintf(out, "delta:    %d samples\n", res.SampleDelta)
			fmt.Fprintf(out, "distance: %.4f m (simulated %.4f m)\n", res.Distance, f.simDistance)
			fmt.Fprintf(out, "range:    %.2f m max\n", est.MaxDistance(len(rec)))

			if snapshot {
				h := report.NewHistory(1)
				h.Add(time.Now(), res)
				path, err := report.SaveSnapshot(cfg.Report.Dir, report.Snapshot{
					Time:        time.Now(),
					Correlation: res.Magnitude,
					DirectIndex: res.DirectIndex,
					EchoIndex:   res.EchoIndex,
					Distances:   h.Distances(),
					HistorySize: h.Cap(),
				}, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "saved %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&snapshot, "png", false, "Save a PNG of the correlation to the report directory")
	return cmd
}

// synthesize returns one captured period: the reference at the simulated
// latency, an attenuated copy delayed by the round trip, and noise.
func synthesize(w *sonar.Waveform, cfg *config.Config, f *flags) ([]float64, error) {
	if f.simDistance < 0 || f.simLatency < 0 {
		return nil, fmt.Errorf("%w: negative simulated distance or latency", sonar.ErrInvalidParameter)
	}

	sr := cfg.Audio.SampleRate
	gen := signal.NewGeneratorWithOptions(
		[]core.ProcessorOption{core.WithSampleRate(sr)},
		signal.WithSeed(f.simSeed),
	)
	rec, err := gen.GaussianNoise(f.simNoise, len(w.Period))
	if err != nil {
		return nil, err
	}

	direct := int(math.Round(f.simLatency.Seconds() * sr))
	echoAt := direct + int(math.Round(2*f.simDistance/cfg.Pulse.SpeedOfSound*sr))
	for i, v := range w.Reference {
		if j := direct + i; j < len(rec) {
			rec[j] += v
		}
		if j := echoAt + i; j < len(rec) {
			rec[j] += f.simGain * v
		}
	}
	return rec, nil
}
