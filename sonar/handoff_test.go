package sonar

import (
	"errors"
	"testing"

	"github.com/cwbudde/echotrace/internal/testutil"
)

func newTestHandoff(t *testing.T, capacity, blockSize int) *Handoff {
	t.Helper()

	h, err := NewHandoff(capacity, blockSize)
	if err != nil {
		t.Fatalf("NewHandoff() error = %v", err)
	}
	return h
}

func TestNewHandoffInvalid(t *testing.T) {
	if _, err := NewHandoff(0, 16); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("NewHandoff(0, 16) error = %v, want ErrInvalidParameter", err)
	}
	if _, err := NewHandoff(10, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("NewHandoff(10, 0) error = %v, want ErrInvalidParameter", err)
	}
}

func TestHandoffBackpressure(t *testing.T) {
	h := newTestHandoff(t, 10, 8)
	in := testutil.Ramp(8)

	for i := 0; i < 15; i++ {
		ok := h.TryPush(in)
		if want := i < 10; ok != want {
			t.Fatalf("TryPush #%d = %v, want %v", i, ok, want)
		}
	}

	if h.Len() != 10 || h.Cap() != 10 {
		t.Fatalf("Len/Cap = %d/%d, want 10/10", h.Len(), h.Cap())
	}
	if h.Pushed() != 10 || h.Dropped() != 5 {
		t.Fatalf("Pushed/Dropped = %d/%d, want 10/5", h.Pushed(), h.Dropped())
	}

	// The queue keeps the oldest blocks.
	b := <-h.Blocks()
	if b.Seq != 1 {
		t.Fatalf("first Seq = %d, want 1", b.Seq)
	}
	testutil.RequireFloat32Equal(t, b.Samples, in)
	h.Release(b)

	if !h.TryPush(in) {
		t.Fatal("TryPush after consuming one block = false, want true")
	}
}

func TestHandoffCopiesInput(t *testing.T) {
	h := newTestHandoff(t, 2, 4)
	in := []float32{1, 2, 3}
	h.TryPush(in)
	in[0] = 99

	b := <-h.Blocks()
	testutil.RequireFloat32Equal(t, b.Samples, []float32{1, 2, 3})
}

func TestHandoffSplitsLargeInput(t *testing.T) {
	h := newTestHandoff(t, 10, 4)
	if !h.TryPush(testutil.Ramp(10)) {
		t.Fatal("TryPush() = false, want true")
	}

	want := [][]float32{{0, 1, 2, 3}, {4, 5, 6, 7}, {8, 9}}
	for i, w := range want {
		b := <-h.Blocks()
		testutil.RequireFloat32Equal(t, b.Samples, w)
		if b.Seq != uint64(i+1) {
			t.Fatalf("block %d Seq = %d, want %d", i, b.Seq, i+1)
		}
		h.Release(b)
	}
}

func TestHandoffTryPushAtTagsPhase(t *testing.T) {
	h := newTestHandoff(t, 10, 4)
	h.TryPushAt(testutil.Ramp(10), 7, 9)

	want := []int{7, 2, 6}
	for i, phase := range want {
		b := <-h.Blocks()
		if b.Phase != phase || b.Period != 9 {
			t.Fatalf("block %d Phase/Period = %d/%d, want %d/9", i, b.Phase, b.Period, phase)
		}
		h.Release(b)
	}

	h.TryPush([]float32{1})
	if b := <-h.Blocks(); b.Phase != -1 {
		t.Fatalf("untagged Phase = %d, want -1", b.Phase)
	}
}

func TestHandoffFreeListExhausted(t *testing.T) {
	h := newTestHandoff(t, 2, 4)
	in := testutil.Ramp(4)

	// Four blocks exist. Hold two, fill the queue with the other two.
	h.TryPush(in)
	h.TryPush(in)
	held := []*Block{<-h.Blocks(), <-h.Blocks()}
	h.TryPush(in)
	h.TryPush(in)

	if h.TryPush(in) {
		t.Fatal("TryPush() with no free block = true, want false")
	}
	if h.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", h.Dropped())
	}

	for _, b := range held {
		h.Release(b)
	}
	if got := h.Drain(); got != 2 {
		t.Fatalf("Drain() = %d, want 2", got)
	}
	if h.Len() != 0 {
		t.Fatalf("Len() after Drain = %d, want 0", h.Len())
	}
	if !h.TryPush(in) {
		t.Fatal("TryPush() after release = false, want true")
	}
}

func TestHandoffReleaseIgnoresForeignBlocks(t *testing.T) {
	h := newTestHandoff(t, 2, 4)
	h.Release(nil)
	h.Release(&Block{buf: make([]float32, 7)})

	for i := 0; i < 2; i++ {
		if !h.TryPush([]float32{1}) {
			t.Fatalf("TryPush #%d = false", i)
		}
	}
}

func TestHandoffTryPushDoesNotAllocate(t *testing.T) {
	h := newTestHandoff(t, 4, 64)
	in := make([]float32, 64)

	allocs := testing.AllocsPerRun(100, func() {
		h.TryPush(in)
		h.Release(<-h.Blocks())
	})
	if allocs != 0 {
		t.Fatalf("TryPush allocates %v times per run", allocs)
	}
}

func TestHandoffDrainRacesConsumer(t *testing.T) {
	h := newTestHandoff(t, 64, 8)
	in := testutil.Ramp(8)
	for i := 0; i < 64; i++ {
		if !h.TryPush(in) {
			t.Fatalf("TryPush #%d = false, want true", i)
		}
	}

	seen := make(map[uint64]int)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case b := <-h.Blocks():
				seen[b.Seq]++
				h.Release(b)
			default:
				return
			}
		}
	}()
	drained := h.Drain()
	<-done

	for seq, n := range seen {
		if n != 1 {
			t.Fatalf("Seq %d consumed %d times, want 1", seq, n)
		}
	}
	if got := len(seen) + drained; got != 64 {
		t.Fatalf("consumed %d + drained %d = %d, want 64", len(seen), drained, got)
	}
	if h.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", h.Len())
	}
}
