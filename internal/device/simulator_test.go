package device

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/cwbudde/echotrace/measure/echo"
	"github.com/cwbudde/echotrace/sonar"
)

func openSim(t *testing.T, cfg SimConfig, stream sonar.StreamConfig, cb sonar.Callback) *simDevice {
	t.Helper()

	dev, err := NewSimulator(cfg).Open(stream, cb, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return dev.(*simDevice)
}

func TestSimulatorOpenInvalid(t *testing.T) {
	sim := NewSimulator(SimConfig{})
	if _, err := sim.Open(sonar.StreamConfig{SampleRate: 0, BlockSize: 8}, func(_, _ []float32) {}, nil); err == nil {
		t.Fatal("Open() with zero sample rate succeeded")
	}

	sim = NewSimulator(SimConfig{Reflectors: []Reflector{{Distance: -1, Gain: 1}}})
	if _, err := sim.Open(sonar.StreamConfig{SampleRate: 1000, BlockSize: 8}, func(_, _ []float32) {}, nil); err == nil {
		t.Fatal("Open() with negative distance succeeded")
	}
}

func TestSimulatorLoopbackAlignment(t *testing.T) {
	// 1000 Hz, 343 m/s: a reflector at 0.686 m adds 4 samples.
	cfg := SimConfig{
		DirectDelay: 2 * time.Millisecond,
		Reflectors:  []Reflector{{Distance: 0.686, Gain: 0.5}},
	}

	var captured []float32
	calls := 0
	cb := func(out, in []float32) {
		clear(out)
		if calls == 0 {
			out[0] = 1
			if len(in) != 0 {
				t.Errorf("first callback capture len = %d, want 0", len(in))
			}
		}
		calls++
		captured = append(captured, in...)
	}

	d := openSim(t, cfg, sonar.StreamConfig{SampleRate: 1000, BlockSize: 4}, cb)
	if got := d.CaptureLatency(); got != 4 {
		t.Fatalf("CaptureLatency() = %d, want one block of 4", got)
	}
	for i := 0; i < 4; i++ {
		d.step()
	}

	want := make([]float32, 12)
	want[2] = 1
	want[6] = 0.5
	for i := range want {
		if captured[i] != want[i] {
			t.Fatalf("captured[%d] = %v, want %v (all %v)", i, captured[i], want[i], captured)
		}
	}
}

func TestSimulatorStartStop(t *testing.T) {
	calls := make(chan struct{}, 1)
	cb := func(out, in []float32) {
		select {
		case calls <- struct{}{}:
		default:
		}
	}

	d := openSim(t, SimConfig{}, sonar.StreamConfig{SampleRate: 1000, BlockSize: 16}, cb)
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := d.Start(); err == nil {
		t.Fatal("second Start() succeeded")
	}

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("no callback after Start")
	}

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestSimulatorEndToEnd(t *testing.T) {
	for _, block := range []int{441, sonar.DefaultBlockSize} {
		t.Run(fmt.Sprintf("block %d", block), func(t *testing.T) {
			p := sonar.DefaultParams()
			p.BlockSize = block

			sim := NewSimulator(SimConfig{
				DirectDelay: time.Millisecond,
				Reflectors:  []Reflector{{Distance: 1.0, Gain: 0.3}},
				NoiseSigma:  0.005,
				Seed:        3,
				Realtime:    true,
			})
			tr, err := sonar.NewTransport(p, sim)
			if err != nil {
				t.Fatalf("NewTransport() error = %v", err)
			}
			mon, err := sonar.NewMonitor(tr)
			if err != nil {
				t.Fatalf("NewMonitor() error = %v", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go func() { _ = mon.Run(ctx) }()

			if err := tr.Start(); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			defer func() {
				if err := tr.Stop(); err != nil {
					t.Errorf("Stop() error = %v", err)
				}
			}()

			// Direct path 1 ms after the period start.
			wantDirect := 44
			want := math.Round(2*1.0/p.SpeedOfSound*p.SampleRate) / p.SampleRate * p.SpeedOfSound / 2
			timeout := time.After(5 * time.Second)
			for seen := 0; seen < 3; {
				select {
				case m := <-mon.Results():
					seen++
					if m.Result.Outcome != echo.Detected {
						t.Fatalf("period %d outcome = %v, want detected", m.Seq, m.Result.Outcome)
					}
					if m.Result.DirectLag != wantDirect {
						t.Fatalf("period %d DirectLag = %d, want %d", m.Seq, m.Result.DirectLag, wantDirect)
					}
					if math.Abs(m.Result.Distance-want) > 0.01 {
						t.Fatalf("Distance = %.4f, want %.4f", m.Result.Distance, want)
					}
				case <-timeout:
					t.Fatalf("only %d periods measured within 5s", seen)
				}
			}
		})
	}
}
