package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/echotrace/internal/report"
	"github.com/cwbudde/echotrace/sonar"
)

func newMeasureCmd(f *flags) *cobra.Command {
	var (
		count   int
		timeout time.Duration
		export  bool
	)

	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Measure a number of periods without the terminal display",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			logger, closeLog := initLogger(cfg.Logging, false)
			defer closeLog()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			// Headless simulation runs faster than real time.
			t, mon, err := newSession(cfg, newDriver(cfg, f, false), sonar.WithLogger(logger))
			if err != nil {
				return err
			}

			history := report.NewHistory(max(count, cfg.Report.History))
			err = measure(ctx, t, mon, count, cmd.OutOrStdout(), func(meas sonar.Measurement) {
				history.Add(meas.Time, meas.Result)
				logger.Debug("measurement",
					slog.Uint64("seq", meas.Seq),
					slog.String("outcome", meas.Result.Outcome.String()),
					slog.Float64("distance_m", meas.Result.Distance),
					slog.Duration("latency", meas.Latency),
				)
			})
			if err != nil {
				return err
			}

			st := t.Stats()
			logger.Info("measurement finished",
				slog.Int("periods", history.Len()),
				slog.Uint64("callbacks", st.Callbacks),
				slog.Uint64("blocks_dropped", st.Dropped),
				slog.Uint64("measurements_dropped", mon.Dropped()),
			)

			if export {
				path, err := report.SaveCSV(cfg.Report.Dir, history, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 10, "Number of periods to measure")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Give up after this long")
	cmd.Flags().BoolVar(&export, "csv", false, "Export the measured distances as CSV to the report directory")
	return cmd
}

// measure runs the monitor until count periods were estimated and prints
// one line per period to w.
func measure(ctx context.Context, t *sonar.Transport, mon *sonar.Monitor, count int, w io.Writer, each func(sonar.Measurement)) (err error) {
	if count < 1 {
		return fmt.Errorf("%w: count must be at least 1, got %d", sonar.ErrInvalidParameter, count)
	}

	runCtx, stopMonitor := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- mon.Run(runCtx) }()
	defer func() {
		stopMonitor()
		err = errors.Join(err, <-done)
	}()

	if err := t.Start(); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, t.Stop())
	}()

	for n := 0; n < count; {
		select {
		case <-ctx.Done():
			return fmt.Errorf("measured %d of %d periods: %w", n, count, ctx.Err())
		case meas, ok := <-mon.Results():
			if !ok {
				return fmt.Errorf("monitor stopped after %d periods", n)
			}
			n++
			if each != nil {
				each(meas)
			}
			fmt.Fprintf(w, "%4d  %-8s  %s\n", meas.Seq, meas.Result.Outcome, formatDistance(meas))
		}
	}
	return nil
}

func formatDistance(meas sonar.Measurement) string {
	if meas.Result.NoEcho() {
		return "--"
	}
	return fmt.Sprintf("%.3f m", meas.Result.Distance)
}
