package core

import "math"

// ClampInt limits value to [lo, hi]. Index arithmetic near buffer edges
// goes through here.
func ClampInt(value, lo, hi int) int {
	return min(max(value, lo), hi)
}

// LinearToDB converts an amplitude to dBFS. Silence maps to -Inf and
// negative input to NaN.
func LinearToDB(linear float64) float64 {
	switch {
	case linear < 0:
		return math.NaN()
	case linear == 0:
		return math.Inf(-1)
	}
	return 20 * math.Log10(linear)
}

// DBToLinear is the inverse of LinearToDB.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}
