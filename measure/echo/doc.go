// Package echo estimates the range to a reflecting surface from one period
// of recorded sonar audio.
//
// The recording is cross-correlated with the transmitted reference pulse.
// The strongest correlation peak is taken to be the direct path from speaker
// to microphone. A window around it is masked out and the strongest
// remaining peak is taken to be the echo. The lag between the two peaks is
// the round trip time:
//
//	distance = (Δlag / sampleRate) * speedOfSound / 2
//
// # Usage
//
//	est, err := echo.New(44100, 343)
//	if err != nil {
//	    return err
//	}
//	res := est.Estimate(period, reference)
//	if res.NoEcho() {
//	    // nothing distinguishable from noise this period
//	}
//
// # Gating
//
// A result is reported as "no echo" (Distance 0, SampleDelta 0) when:
//
//   - no correlation sample exceeds 20% of the maximum (silent input),
//   - the direct peak does not stand out from the median correlation level,
//   - the strongest sample outside the masked window is below 5% of the
//     maximum, or
//   - the secondary peak does not come strictly after the direct peak.
//
// The unmasked correlation magnitude is returned in every case so that it
// can be plotted.
package echo
