package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/cwbudde/echotrace/internal/metrics"
	"github.com/cwbudde/echotrace/internal/report"
	"github.com/cwbudde/echotrace/internal/ui"
	"github.com/cwbudde/echotrace/sonar"
)

func newRunCmd(f *flags) *cobra.Command {
	var autostart bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the interactive terminal display",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, f, autostart)
		},
	}
	cmd.Flags().BoolVar(&autostart, "start", false, "Start measuring immediately")
	return cmd
}

func runInteractive(cmd *cobra.Command, f *flags, autostart bool) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	logger, closeLog := initLogger(cfg.Logging, true)
	defer closeLog()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	t, mon, err := newSession(cfg, newDriver(cfg, f, true),
		sonar.WithLogger(logger),
		sonar.WithObserver(m),
	)
	if err != nil {
		return err
	}
	metrics.RegisterTransport(reg, t)
	defer func() {
		if err := t.Stop(); err != nil {
			logger.Error("failed to stop transport", slog.String("error", err.Error()))
		}
	}()

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Address, reg, logger); err != nil {
				logger.Error("metrics endpoint failed", slog.String("error", err.Error()))
			}
		}()
	}

	history := report.NewHistory(cfg.Report.History)
	model := ui.New(t, history, ui.WithExportDir(cfg.Report.Dir))
	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		if err := mon.Run(ctx); err != nil {
			logger.Error("monitor stopped", slog.String("error", err.Error()))
		}
	}()
	go func() {
		for meas := range mon.Results() {
			p.Send(ui.MeasurementMsg(meas))
		}
	}()
	go forwardDiagnostics(ctx, t, func(msg string) {
		logger.Warn("device message", slog.String("message", msg))
		p.Send(ui.StatusMsg(msg))
	})

	if autostart {
		if err := t.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
			fmt.Fprintln(os.Stderr, "Check that a microphone and speaker are available, or try:")
			fmt.Fprintln(os.Stderr, "  echotrace run --simulate    (software loopback, no hardware needed)")
			return err
		}
	}

	logger.Info("interactive session started", slog.Any("params", cfg.Params()))
	_, err = p.Run()
	return err
}

// forwardDiagnostics passes transport messages to fn until ctx is done.
func forwardDiagnostics(ctx context.Context, t *sonar.Transport, fn func(string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-t.Diagnostics():
			fn(msg)
		}
	}
}
