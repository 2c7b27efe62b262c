package matching

import (
	"math"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
)

// HistogramCorrelation returns the Pearson correlation of two hour-of-week
// activity histograms, clamped to [0, 1]. Negative correlation carries no
// same-person evidence and is treated as zero. Returns zero when either
// histogram is empty or flat.
func HistogramCorrelation(a, b entity.IntArray) float64 {
	n := entity.ActivityBucketCount
	if len(a) < n || len(b) < n {
		return 0
	}

	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += float64(a[i])
		sumB += float64(b[i])
	}
	if sumA == 0 || sumB == 0 {
		return 0
	}
	meanA := sumA / float64(n)
	meanB := sumB / float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := float64(a[i]) - meanA
		db := float64(b[i]) - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}

	corr := cov / math.Sqrt(varA*varB)
	if corr < 0 {
		return 0
	}
	if corr > 1 {
		return 1
	}
	return corr
}

// TemporalScore converts a correlation into confidence: correlations below
// the floor contribute nothing, others scale by the configured weight.
func TemporalScore(correlation float64, cfg *Config) float64 {
	if correlation < cfg.TemporalFloor {
		return 0
	}
	return correlation * cfg.TemporalWeight
}
