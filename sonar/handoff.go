package sonar

import (
	"fmt"
	"sync/atomic"
)

// Block is one slice of captured audio travelling from the device callback
// to the consumer. Blocks are preallocated and recycled through
// Handoff.Release.
type Block struct {
	Samples []float32 // captured samples, len <= block size
	Seq     uint64    // push sequence number, starting at 1
	Phase   int       // position of Samples[0] in the transmit period, -1 if unknown
	Period  int       // transmit period length Phase refers to

	buf []float32
}

// Handoff is a bounded single-producer queue of captured blocks.
//
// TryPush never blocks and never allocates. When the queue is full, or every
// preallocated block is still held by the consumer, the newest data is
// dropped and counted.
type Handoff struct {
	queue     chan *Block
	free      chan *Block
	blockSize int

	pushed  atomic.Uint64
	dropped atomic.Uint64
}

// NewHandoff creates a handoff queue holding up to capacity blocks of at
// most blockSize samples each.
func NewHandoff(capacity, blockSize int) (*Handoff, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: queue capacity %d", ErrInvalidParameter, capacity)
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: block size %d", ErrInvalidParameter, blockSize)
	}

	// Two spare blocks let the consumer hold one while the producer fills
	// a full queue.
	total := capacity + 2
	h := &Handoff{
		queue:     make(chan *Block, capacity),
		free:      make(chan *Block, total),
		blockSize: blockSize,
	}
	for i := 0; i < total; i++ {
		buf := make([]float32, blockSize)
		h.free <- &Block{Samples: buf[:0], buf: buf}
	}
	return h, nil
}

// TryPush copies in into one or more free blocks and queues them.
// Input longer than the block size is split. It reports whether every
// sample was queued.
func (h *Handoff) TryPush(in []float32) bool {
	return h.TryPushAt(in, -1, 0)
}

// TryPushAt is TryPush for input whose first sample sits at phase within a
// transmit period of the given length. Each queued block carries its own
// phase so the consumer can realign after a drop.
func (h *Handoff) TryPushAt(in []float32, phase, period int) bool {
	if period <= 0 {
		phase = -1
	}
	ok := true
	for len(in) > 0 {
		n := min(len(in), h.blockSize)
		if !h.pushOne(in[:n], phase, period) {
			ok = false
		}
		if phase >= 0 {
			phase = (phase + n) % period
		}
		in = in[n:]
	}
	return ok
}

func (h *Handoff) pushOne(chunk []float32, phase, period int) bool {
	var b *Block
	select {
	case b = <-h.free:
	default:
		h.dropped.Add(1)
		return false
	}

	b.Samples = b.buf[:len(chunk)]
	copy(b.Samples, chunk)
	b.Seq = h.pushed.Load() + h.dropped.Load() + 1
	b.Phase = phase
	b.Period = period

	select {
	case h.queue <- b:
		h.pushed.Add(1)
		return true
	default:
		h.recycle(b)
		h.dropped.Add(1)
		return false
	}
}

// Blocks returns the receive side of the queue.
func (h *Handoff) Blocks() <-chan *Block {
	return h.queue
}

// Release returns a consumed block to the free list. The block must not be
// used afterwards.
func (h *Handoff) Release(b *Block) {
	if b == nil || cap(b.buf) != h.blockSize {
		return
	}
	h.recycle(b)
}

func (h *Handoff) recycle(b *Block) {
	b.Samples = b.buf[:0]
	select {
	case h.free <- b:
	default:
	}
}

// Drain releases every queued block and returns how many were discarded.
// It may race a concurrent consumer for blocks; each block goes to exactly
// one of them.
func (h *Handoff) Drain() int {
	n := 0
	for {
		select {
		case b := <-h.queue:
			h.recycle(b)
			n++
		default:
			return n
		}
	}
}

// Len returns the number of queued blocks.
func (h *Handoff) Len() int { return len(h.queue) }

// Cap returns the queue capacity.
func (h *Handoff) Cap() int { return cap(h.queue) }

// BlockSize returns the maximum samples per block.
func (h *Handoff) BlockSize() int { return h.blockSize }

// Pushed returns the number of blocks queued so far.
func (h *Handoff) Pushed() uint64 { return h.pushed.Load() }

// Dropped returns the number of blocks discarded because the queue was full.
func (h *Handoff) Dropped() uint64 { return h.dropped.Load() }
