package echo

import (
	"testing"

	"github.com/cwbudde/echotrace/internal/testutil"
)

func BenchmarkEstimate(b *testing.B) {
	ref := testReference(b)
	rec := testutil.GaussianNoise(7, 0.01, 4410)
	testutil.AddAt(rec, ref, 44, 1)
	testutil.AddAt(rec, ref, 265, 0.3)
	est := newTestEstimator(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = est.Estimate(rec, ref)
	}
}
