// Package sonar runs an audio-band sonar over a full-duplex sound device.
//
// A Hann-windowed linear chirp followed by silence forms one period. The
// Transport plays that period in a loop from the device callback and hands
// every captured block to a bounded Handoff without blocking. A Monitor
// drains the handoff on its own goroutine, cuts the capture stream into
// periods with an Accumulator and runs the echo estimator on each one.
//
// Two execution contexts exist:
//
//   - the real-time context: Transport.Process, called by the audio device
//     for every block. It does not allocate, lock or perform I/O.
//   - the consumer context: Monitor.Run, which owns the accumulator and
//     publishes Measurements.
//
// The Handoff is the only structure shared between them. Retuning swaps the
// waveform through an atomic pointer; the playback cursor keeps its position,
// so the first period after a retune may contain a partial chirp.
package sonar
