// Package metrics exports sonar activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwbudde/echotrace/measure/echo"
	"github.com/cwbudde/echotrace/sonar"
)

const namespace = "echotrace"

// Metrics holds the collectors fed by the monitor. It implements
// sonar.Observer.
type Metrics struct {
	BlocksReceived      prometheus.Counter
	SamplesReceived     prometheus.Counter
	PeriodsDiscarded    prometheus.Counter
	Periods             *prometheus.CounterVec
	MeasurementsDropped prometheus.Counter
	Distance            prometheus.Gauge
	InputRMS            prometheus.Gauge
	InputPeak           prometheus.Gauge
	EstimateDuration    prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BlocksReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_blocks_total",
			Help:      "Total number of captured blocks consumed by the monitor",
		}),
		SamplesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_samples_total",
			Help:      "Total number of captured samples consumed by the monitor",
		}),
		PeriodsDiscarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "periods_discarded_total",
			Help:      "Total number of captured periods dropped because the monitor fell behind",
		}),
		Periods: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "periods_estimated_total",
			Help:      "Total number of estimated periods by outcome",
		}, []string{"outcome"}),
		MeasurementsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurements_dropped_total",
			Help:      "Total number of measurements not delivered because the reader was slow",
		}),
		Distance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "distance_meters",
			Help:      "Most recent detected echo distance",
		}),
		InputRMS: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "input_rms_dbfs",
			Help:      "RMS level of the most recent period",
		}),
		InputPeak: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "input_peak_dbfs",
			Help:      "Peak level of the most recent period",
		}),
		EstimateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "estimate_duration_seconds",
			Help:      "Time spent estimating one period",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}
}

// BlockReceived implements sonar.Observer.
func (m *Metrics) BlockReceived(samples int) {
	m.BlocksReceived.Inc()
	m.SamplesReceived.Add(float64(samples))
}

// PeriodDiscarded implements sonar.Observer.
func (m *Metrics) PeriodDiscarded(n int) {
	m.PeriodsDiscarded.Add(float64(n))
}

// Measured implements sonar.Observer.
func (m *Metrics) Measured(meas sonar.Measurement) {
	m.Periods.WithLabelValues(meas.Result.Outcome.String()).Inc()
	if meas.Result.Outcome == echo.Detected {
		m.Distance.Set(meas.Result.Distance)
	}
	setFinite(m.InputRMS, meas.Level.RMSdB)
	setFinite(m.InputPeak, meas.Level.PeakdB)
	m.EstimateDuration.Observe(meas.Latency.Seconds())
}

// MeasurementDropped implements sonar.Observer.
func (m *Metrics) MeasurementDropped() {
	m.MeasurementsDropped.Inc()
}

func setFinite(g prometheus.Gauge, v float64) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return
	}
	g.Set(v)
}

// RegisterTransport exposes the transport's real-time counters. They are
// read on scrape, so the audio thread never touches a collector.
func RegisterTransport(reg prometheus.Registerer, t *sonar.Transport) {
	f := promauto.With(reg)
	stat := func(pick func(sonar.TransportStats) uint64) func() float64 {
		return func() float64 { return float64(pick(t.Stats())) }
	}

	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "callbacks_total",
		Help:      "Total number of audio device callbacks",
	}, stat(func(s sonar.TransportStats) uint64 { return s.Callbacks }))
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "playback_frames_total",
		Help:      "Total number of playback frames written",
	}, stat(func(s sonar.TransportStats) uint64 { return s.Frames }))
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handoff_pushed_total",
		Help:      "Total number of captured blocks queued for the monitor",
	}, stat(func(s sonar.TransportStats) uint64 { return s.Pushed }))
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handoff_dropped_total",
		Help:      "Total number of captured blocks dropped on a full queue",
	}, stat(func(s sonar.TransportStats) uint64 { return s.Dropped }))
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "callback_faults_total",
		Help:      "Total number of callbacks that played silence because no waveform was loaded",
	}, stat(func(s sonar.TransportStats) uint64 { return s.Faults }))
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "handoff_queue_length",
		Help:      "Captured blocks waiting for the monitor",
	}, func() float64 { return float64(t.Handoff().Len()) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "transport_running",
		Help:      "1 while the audio stream is running",
	}, func() float64 {
		if t.Running() {
			return 1
		}
		return 0
	})
}

// Serve exposes g on addr under /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("metrics endpoint listening", slog.String("address", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
