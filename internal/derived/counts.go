package derived

import (
	"organoidcli/pkg/contracts/domain"
)

// CountAbove counts values strictly greater than t.
func CountAbove(sample []float64, t float64) int {
	n := 0
	for _, v := range sample {
		if v > t {
			n++
		}
	}
	return n
}

// CountBelow counts values strictly less than t.
func CountBelow(sample []float64, t float64) int {
	n := 0
	for _, v := range sample {
		if v < t {
			n++
		}
	}
	return n
}

// CountEqual counts values equal to t.
func CountEqual(sample []float64, t float64) int {
	n := 0
	for _, v := range sample {
		if v == t {
			n++
		}
	}
	return n
}

// CountAboveEachStat counts, for each named statistic of the sample
// itself, the values exceeding it.
func CountAboveEachStat(sample []float64, names []domain.StatName) (map[domain.StatName]int, error) {
	s, err := Describe(sample)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.StatName]int, len(names))
	for _, name := range names {
		t, err := s.Value(name)
		if err != nil {
			return nil, err
		}
		out[name] = CountAbove(sample, t)
	}
	return out, nil
}

// RemoveOutliers keeps values strictly below mean+3*stdev of the sample.
// The bound is returned so callers can re-apply it; it must not be
// recomputed on the filtered sample.
func RemoveOutliers(sample []float64) (filtered []float64, bound float64, err error) {
	s, err := Describe(sample)
	if err != nil {
		return nil, 0, err
	}
	return FilterBelow(sample, s.Std3), s.Std3, nil
}

// FilterBelow keeps values strictly less than bound, in order.
func FilterBelow(sample []float64, bound float64) []float64 {
	out := make([]float64, 0, len(sample))
	for _, v := range sample {
		if v < bound {
			out = append(out, v)
		}
	}
	return out
}
