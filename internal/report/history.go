// Package report keeps the recent distance history and exports it as CSV
// or as a PNG snapshot.
package report

import (
	"time"

	"github.com/cwbudde/echotrace/measure/echo"
)

// DefaultHistory is the number of measurements kept by default.
const DefaultHistory = 100

// Entry is one point of the distance trend.
type Entry struct {
	Time     time.Time
	Distance float64 // meters
	Detected bool    // false when Distance repeats the previous value
}

// History is a bounded distance trend. When a period has no echo the
// previous distance (or 0) is repeated so the trend stays continuous.
// A History is not safe for concurrent use.
type History struct {
	max     int
	entries []Entry
}

// NewHistory creates a history holding at most size entries.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistory
	}
	return &History{max: size, entries: make([]Entry, 0, size)}
}

// Add records a result and returns the distance that was stored.
func (h *History) Add(t time.Time, r echo.Result) float64 {
	e := Entry{Time: t, Distance: r.Distance, Detected: !r.NoEcho()}
	if !e.Detected {
		e.Distance = 0
		if n := len(h.entries); n > 0 {
			e.Distance = h.entries[n-1].Distance
		}
	}

	if len(h.entries) == h.max {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.max-1]
	}
	h.entries = append(h.entries, e)
	return e.Distance
}

// Entries returns a copy of the stored entries, oldest first.
func (h *History) Entries() []Entry {
	return append([]Entry(nil), h.entries...)
}

// Distances returns the stored distances, oldest first.
func (h *History) Distances() []float64 {
	out := make([]float64, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Distance
	}
	return out
}

// Last returns the newest entry.
func (h *History) Last() (Entry, bool) {
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Len returns the number of stored entries.
func (h *History) Len() int { return len(h.entries) }

// Cap returns the maximum number of entries.
func (h *History) Cap() int { return h.max }

// Reset removes all entries.
func (h *History) Reset() { h.entries = h.entries[:0] }
