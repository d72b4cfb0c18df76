package echo

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/echotrace/dsp/core"
	"github.com/cwbudde/echotrace/dsp/signal"
	"github.com/cwbudde/echotrace/dsp/window"
	"github.com/cwbudde/echotrace/internal/testutil"
)

const (
	testRate  = 44100.0
	testSpeed = 343.0
)

func testReference(t testing.TB) []float64 {
	t.Helper()

	gen := signal.NewGenerator(core.WithSampleRate(testRate))
	ref, err := gen.Chirp(2000, 8000, 0.005)
	if err != nil {
		t.Fatalf("Chirp() error = %v", err)
	}
	if err := window.ApplyHann(ref); err != nil {
		t.Fatalf("ApplyHann() error = %v", err)
	}
	return ref
}

func newTestEstimator(t testing.TB, opts ...Option) *Estimator {
	t.Helper()

	est, err := New(testRate, testSpeed, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return est
}

// syntheticRecording places the reference at the direct offset, a scaled copy
// at the echo offset and adds Gaussian noise.
func syntheticRecording(ref []float64, length, direct, echo int, gain, sigma float64, seed int64) []float64 {
	rec := make([]float64, length)
	if sigma > 0 {
		rec = testutil.GaussianNoise(seed, sigma, length)
	}
	testutil.AddAt(rec, ref, direct, 1)
	if gain != 0 {
		testutil.AddAt(rec, ref, echo, gain)
	}
	return rec
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name  string
		rate  float64
		speed float64
		opts  []Option
		want  error
	}{
		{name: "defaults", rate: testRate, speed: testSpeed},
		{name: "zero rate", rate: 0, speed: testSpeed, want: ErrInvalidSampleRate},
		{name: "nan rate", rate: math.NaN(), speed: testSpeed, want: ErrInvalidSampleRate},
		{name: "negative speed", rate: testRate, speed: -1, want: ErrInvalidSpeed},
		{name: "detection ratio 1", rate: testRate, speed: testSpeed, opts: []Option{WithDetectionRatio(1)}, want: ErrInvalidRatio},
		{name: "echo ratio 0", rate: testRate, speed: testSpeed, opts: []Option{WithEchoRatio(0)}, want: ErrInvalidRatio},
		{name: "negative safe zone", rate: testRate, speed: testSpeed, opts: []Option{WithSafeZone(-0.001)}, want: ErrInvalidSafeZone},
		{name: "prominence below 1", rate: testRate, speed: testSpeed, opts: []Option{WithProminence(0.5)}, want: ErrInvalidProminence},
		{name: "nil option ignored", rate: testRate, speed: testSpeed, opts: []Option{nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.rate, tt.speed, tt.opts...)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("New() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSafeZoneSamples(t *testing.T) {
	if got := newTestEstimator(t).SafeZoneSamples(); got != 88 {
		t.Fatalf("SafeZoneSamples() = %d, want 88", got)
	}
	if got := newTestEstimator(t, WithSafeZone(0.001)).SafeZoneSamples(); got != 44 {
		t.Fatalf("SafeZoneSamples() = %d, want 44", got)
	}
}

func TestDistance(t *testing.T) {
	est := newTestEstimator(t)
	want := 221 / testRate * testSpeed / 2
	if got := est.Distance(221); math.Abs(got-want) > 1e-12 {
		t.Fatalf("Distance(221) = %v, want %v", got, want)
	}
	if got := est.MaxDistance(4410); got <= 17 || got >= 17.2 {
		t.Fatalf("MaxDistance(4410) = %v, want ~17.15", got)
	}
	if got := est.MaxDistance(0); got != 0 {
		t.Fatalf("MaxDistance(0) = %v, want 0", got)
	}
}

func TestEstimateKnownDelay(t *testing.T) {
	ref := testReference(t)
	direct := core.SamplesFor(testRate, 0.001)
	echoAt := core.SamplesFor(testRate, 0.006)
	rec := syntheticRecording(ref, 4410, direct, echoAt, 0.3, 0.01, 42)

	res := newTestEstimator(t).Estimate(rec, ref)

	if res.Outcome != Detected {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, Detected)
	}
	if res.SampleDelta != echoAt-direct {
		t.Fatalf("SampleDelta = %d, want %d", res.SampleDelta, echoAt-direct)
	}
	if math.Abs(res.Distance-0.8575) > 0.05 {
		t.Fatalf("Distance = %.4f, want 0.8575 +/- 0.05", res.Distance)
	}
	if res.DirectLag != direct || res.EchoLag != echoAt {
		t.Fatalf("lags = (%d, %d), want (%d, %d)", res.DirectLag, res.EchoLag, direct, echoAt)
	}
	if want := len(rec) + len(ref) - 1; len(res.Magnitude) != want {
		t.Fatalf("len(Magnitude) = %d, want %d", len(res.Magnitude), want)
	}
	if res.Magnitude[res.DirectIndex] != res.Peak {
		t.Fatalf("Magnitude[DirectIndex] = %v, want %v", res.Magnitude[res.DirectIndex], res.Peak)
	}
	if res.EchoPeak >= res.Peak {
		t.Fatalf("EchoPeak %v >= Peak %v", res.EchoPeak, res.Peak)
	}
	for i, v := range res.Magnitude {
		if v < 0 {
			t.Fatalf("Magnitude[%d] = %v, want >= 0", i, v)
		}
	}
}

func TestEstimateNoiseOnly(t *testing.T) {
	ref := testReference(t)
	est := newTestEstimator(t)

	for seed := int64(1); seed <= 8; seed++ {
		rec := testutil.GaussianNoise(seed, 0.01, 4410)
		res := est.Estimate(rec, ref)
		if !res.NoEcho() || res.SampleDelta != 0 {
			t.Fatalf("seed %d: Distance = %v, SampleDelta = %d, want no echo", seed, res.Distance, res.SampleDelta)
		}
		if res.Outcome != Buried {
			t.Fatalf("seed %d: Outcome = %v, want %v", seed, res.Outcome, Buried)
		}
	}
}

func TestEstimateProminenceOneDisablesGate(t *testing.T) {
	ref := testReference(t)
	est := newTestEstimator(t, WithProminence(1))

	for seed := int64(1); seed <= 8; seed++ {
		rec := testutil.GaussianNoise(seed, 0.01, 4410)
		if res := est.Estimate(rec, ref); res.Outcome == Buried {
			t.Fatalf("seed %d: Outcome = %v with WithProminence(1), want gate disabled", seed, res.Outcome)
		}
	}

	rec := syntheticRecording(ref, 4410, 200, 460, 0.5, 0, 0)
	res := est.Estimate(rec, ref)
	if res.Outcome != Detected || res.SampleDelta != 260 {
		t.Fatalf("Outcome/SampleDelta = %v/%d, want %v/260", res.Outcome, res.SampleDelta, Detected)
	}
}

func TestEstimateSilent(t *testing.T) {
	ref := testReference(t)
	rec := make([]float64, 4410)

	res := newTestEstimator(t).Estimate(rec, ref)
	if !res.NoEcho() || res.Outcome != Silent {
		t.Fatalf("Estimate(zeros) = %+v, want silent sentinel", res.Outcome)
	}
	if res.DirectIndex != -1 || res.EchoIndex != -1 {
		t.Fatalf("indices = (%d, %d), want (-1, -1)", res.DirectIndex, res.EchoIndex)
	}
	if want := len(rec) + len(ref) - 1; len(res.Magnitude) != want {
		t.Fatalf("len(Magnitude) = %d, want %d", len(res.Magnitude), want)
	}
}

func TestEstimateEmpty(t *testing.T) {
	ref := testReference(t)
	est := newTestEstimator(t)

	for _, tc := range []struct {
		name     string
		rec, ref []float64
	}{
		{name: "empty recording", rec: nil, ref: ref},
		{name: "empty reference", rec: make([]float64, 100), ref: nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res := est.Estimate(tc.rec, tc.ref)
			if !res.NoEcho() || res.Outcome != Silent || len(res.Magnitude) != 0 {
				t.Fatalf("Estimate() = %v with %d magnitude samples, want silent and empty", res.Outcome, len(res.Magnitude))
			}
		})
	}
}

func TestEstimateEchoBeforeDirect(t *testing.T) {
	ref := testReference(t)
	// The louder copy comes later, so the secondary peak precedes it.
	rec := make([]float64, 4410)
	testutil.AddAt(rec, ref, 50, 0.5)
	testutil.AddAt(rec, ref, 300, 1)

	res := newTestEstimator(t).Estimate(rec, ref)
	if !res.NoEcho() || res.SampleDelta != 0 {
		t.Fatalf("Distance = %v, SampleDelta = %d, want no echo", res.Distance, res.SampleDelta)
	}
	if res.Outcome != Early {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, Early)
	}
	if res.EchoLag != 50 || res.DirectLag != 300 {
		t.Fatalf("lags = (%d, %d), want (300, 50)", res.DirectLag, res.EchoLag)
	}
}

func TestEstimateDirectOnly(t *testing.T) {
	ref := testReference(t)
	rec := syntheticRecording(ref, 4410, 44, 0, 0, 0, 0)

	res := newTestEstimator(t).Estimate(rec, ref)
	if !res.NoEcho() || res.Outcome != Faint {
		t.Fatalf("Outcome = %v, Distance = %v, want faint sentinel", res.Outcome, res.Distance)
	}
	if res.DirectLag != 44 {
		t.Fatalf("DirectLag = %d, want 44", res.DirectLag)
	}
}

func TestEstimateEchoRatioOption(t *testing.T) {
	ref := testReference(t)
	rec := syntheticRecording(ref, 4410, 44, 265, 0.3, 0, 0)

	if res := newTestEstimator(t).Estimate(rec, ref); res.SampleDelta != 221 {
		t.Fatalf("default SampleDelta = %d, want 221", res.SampleDelta)
	}
	res := newTestEstimator(t, WithEchoRatio(0.5)).Estimate(rec, ref)
	if res.Outcome != Faint {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, Faint)
	}
}

func TestEstimateDoesNotMaskMagnitude(t *testing.T) {
	ref := testReference(t)
	rec := syntheticRecording(ref, 4410, 44, 265, 0.3, 0, 0)

	res := newTestEstimator(t).Estimate(rec, ref)
	sz := newTestEstimator(t).SafeZoneSamples()
	neighbour := res.Magnitude[res.DirectIndex+sz/2]
	if neighbour == 0 {
		t.Fatal("returned magnitude is masked around the direct path")
	}
}

func TestMask(t *testing.T) {
	mag := make([]float64, 20)
	for i := range mag {
		mag[i] = 1
	}

	tests := []struct {
		name       string
		center, hw int
		start, end int
	}{
		{name: "interior", center: 10, hw: 3, start: 7, end: 13},
		{name: "clamped start", center: 1, hw: 3, start: 0, end: 4},
		{name: "clamped end", center: 19, hw: 3, start: 16, end: 20},
		{name: "wider than input", center: 10, hw: 50, start: 0, end: 20},
		{name: "zero width", center: 10, hw: 0, start: 10, end: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mask(mag, tt.center, tt.hw)
			for i, v := range got {
				inside := i >= tt.start && i < tt.end
				if inside && v != 0 {
					t.Fatalf("got[%d] = %v, want 0", i, v)
				}
				if !inside && v != 1 {
					t.Fatalf("got[%d] = %v, want 1", i, v)
				}
			}
			for i, v := range mag {
				if v != 1 {
					t.Fatalf("input modified at %d", i)
				}
			}
		})
	}
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{
		Detected:   "detected",
		Silent:     "silent",
		Buried:     "buried",
		Faint:      "faint",
		Early:      "early",
		Outcome(9): "outcome(9)",
	} {
		if got := o.String(); got != want {
			t.Fatalf("Outcome(%d).String() = %q, want %q", int(o), got, want)
		}
	}
}
