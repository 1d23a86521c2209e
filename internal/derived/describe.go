// Package derived computes per-organoid metrics from distance samples:
// descriptive statistics, threshold counts, outlier filtering and the
// quantile-based invasion threshold.
package derived

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	apperrors "organoidcli/internal/errors"
	"organoidcli/pkg/contracts/domain"
)

// Quantile returns the q-quantile of an ascending sample by linear
// interpolation between the two nearest ranks (Hyndman-Fan type 7).
// gonum's stat.Quantile with LinInterp interpolates the empirical CDF
// (type 4) and gives different quartiles on small samples.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	index := q * float64(n-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Describe summarises a raw sample. The standard deviation is the sample
// (n-1) estimate and is zero for a single value.
func Describe(sample []float64) (domain.DescriptiveStats, error) {
	if len(sample) == 0 {
		return domain.DescriptiveStats{}, apperrors.NewEmptyGroupError("", "cannot describe an empty sample")
	}
	sorted := append([]float64(nil), sample...)
	sort.Float64s(sorted)

	s := domain.DescriptiveStats{
		Count:  len(sorted),
		Min:    sorted[0],
		Q1:     Quantile(sorted, 0.25),
		Median: Quantile(sorted, 0.5),
		Q3:     Quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
		Mean:   stat.Mean(sorted, nil),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	s.Range = s.Max - s.Min
	s.IQR = s.Q3 - s.Q1
	s.Q1Q4 = s.Max - s.Q1
	s.Q2Q4 = s.Max - s.Median
	s.Q3Q4 = s.Max - s.Q3
	s.Std3 = s.Mean + 3*s.StdDev
	return s, nil
}

// StatThreshold returns one statistic of a reference sample, for use as a
// count threshold.
func StatThreshold(reference []float64, name domain.StatName) (float64, error) {
	s, err := Describe(reference)
	if err != nil {
		return 0, err
	}
	return s.Value(name)
}
