package sonar

import (
	"errors"
	"testing"

	"github.com/cwbudde/echotrace/internal/testutil"
)

func TestNewAccumulatorInvalid(t *testing.T) {
	if _, err := NewAccumulator(0, 4); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("NewAccumulator(0, 4) error = %v, want ErrInvalidParameter", err)
	}
	if _, err := NewAccumulator(10, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("NewAccumulator(10, 0) error = %v, want ErrInvalidParameter", err)
	}
}

func TestAccumulatorEmitsWholePeriods(t *testing.T) {
	acc, err := NewAccumulator(10, 4)
	if err != nil {
		t.Fatalf("NewAccumulator() error = %v", err)
	}
	stream := testutil.Ramp(27)

	// Feed unevenly sized blocks.
	for _, chunk := range [][]float32{stream[:3], stream[3:8], stream[8:21], stream[21:]} {
		acc.Append(chunk)
	}

	for p := 0; p < 2; p++ {
		got, ok := acc.Next()
		if !ok {
			t.Fatalf("Next() #%d ok = false", p)
		}
		for i, v := range got {
			if want := float64(p*10 + i); v != want {
				t.Fatalf("period %d sample %d = %v, want %v", p, i, v, want)
			}
		}
	}
	if _, ok := acc.Next(); ok {
		t.Fatal("Next() with 7 buffered samples ok = true")
	}
	if acc.Buffered() != 7 {
		t.Fatalf("Buffered() = %d, want 7", acc.Buffered())
	}
}

func TestAccumulatorBacklogDropsWholePeriods(t *testing.T) {
	acc, err := NewAccumulator(10, 2)
	if err != nil {
		t.Fatalf("NewAccumulator() error = %v", err)
	}

	acc.Append(testutil.Ramp(35))
	if acc.Discarded() != 2 {
		t.Fatalf("Discarded() = %d, want 2", acc.Discarded())
	}
	if acc.Buffered() != 15 {
		t.Fatalf("Buffered() = %d, want 15", acc.Buffered())
	}

	got, ok := acc.Next()
	if !ok {
		t.Fatal("Next() ok = false")
	}
	if got[0] != 20 {
		t.Fatalf("first sample after overflow = %v, want 20 (period aligned)", got[0])
	}
}

func TestAccumulatorReset(t *testing.T) {
	acc, err := NewAccumulator(10, 4)
	if err != nil {
		t.Fatalf("NewAccumulator() error = %v", err)
	}
	acc.Append(testutil.Ramp(15))

	acc.Reset(4)
	if acc.Buffered() != 0 || acc.Period() != 4 {
		t.Fatalf("after Reset: Buffered=%d Period=%d, want 0/4", acc.Buffered(), acc.Period())
	}

	acc.Append(testutil.Ramp(4))
	got, ok := acc.Next()
	if !ok || len(got) != 4 {
		t.Fatalf("Next() = %v, %v, want 4 samples", got, ok)
	}

	acc.Reset(0)
	if acc.Period() != 4 {
		t.Fatalf("Reset(0) changed period to %d", acc.Period())
	}
}
