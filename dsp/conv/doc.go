// Package conv provides the cross-correlation routines used for echo ranging.
//
// Cross-correlation measures how similar two signals are as a function of
// the displacement (lag) of the second relative to the first:
//
//	corr, err := conv.Correlate(recording, template)
//	peakIdx, _ := conv.ArgMaxAbs(corr)
//	lag := conv.LagFromIndex(peakIdx, len(template))
//
// The full output of correlating a (length N) with b (length M) has
// N+M-1 samples. Output index k corresponds to lag k-(M-1); a positive lag
// means b lines up with a starting lag samples after a[0].
//
// # Algorithm Selection
//
// [Correlate] uses direct O(N*M) summation for templates shorter than 64
// samples and FFT-based correlation otherwise. [CorrelateDirect] and
// [CorrelateFFT] force one strategy; both produce the same result within
// floating point rounding.
package conv
