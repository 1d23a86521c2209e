package domain

import "fmt"

// StatName names one field of DescriptiveStats.
type StatName string

const (
	StatMin    StatName = "min"
	StatQ1     StatName = "q1"
	StatMedian StatName = "median"
	StatQ3     StatName = "q3"
	StatMax    StatName = "max"
	StatRange  StatName = "range"
	StatIQR    StatName = "iqr"
	StatQ1Q4   StatName = "q1q4"
	StatQ2Q4   StatName = "q2q4"
	StatQ3Q4   StatName = "q3q4"
	StatStd3   StatName = "std3"
	StatMean   StatName = "mean"
	StatStdDev StatName = "stdev"
)

// DescribedStats lists the statistics reported per organoid, in report
// order.
var DescribedStats = []StatName{
	StatMin, StatQ1, StatMedian, StatQ3, StatMax,
	StatRange, StatIQR, StatQ1Q4, StatQ2Q4, StatQ3Q4, StatStd3,
}

// DescriptiveStats summarises one organoid's raw sample.
type DescriptiveStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Range  float64 `json:"range"`
	IQR    float64 `json:"iqr"`
	Q1Q4   float64 `json:"q1q4"`
	Q2Q4   float64 `json:"q2q4"`
	Q3Q4   float64 `json:"q3q4"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdev"`
	Std3   float64 `json:"std3"`
}

// Value returns the named statistic.
func (s DescriptiveStats) Value(name StatName) (float64, error) {
	switch name {
	case StatMin:
		return s.Min, nil
	case StatQ1:
		return s.Q1, nil
	case StatMedian:
		return s.Median, nil
	case StatQ3:
		return s.Q3, nil
	case StatMax:
		return s.Max, nil
	case StatRange:
		return s.Range, nil
	case StatIQR:
		return s.IQR, nil
	case StatQ1Q4:
		return s.Q1Q4, nil
	case StatQ2Q4:
		return s.Q2Q4, nil
	case StatQ3Q4:
		return s.Q3Q4, nil
	case StatStd3:
		return s.Std3, nil
	case StatMean:
		return s.Mean, nil
	case StatStdDev:
		return s.StdDev, nil
	}
	return 0, fmt.Errorf("unknown statistic %q", name)
}

// PairwiseComparison is one row of a post-hoc comparison table.
type PairwiseComparison struct {
	GroupA   string  `json:"group1"`
	GroupB   string  `json:"group2"`
	MeanDiff float64 `json:"meandiff"`
	PAdj     float64 `json:"p_adj"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
	Reject   bool    `json:"reject"`
}

// AnovaResult is a one-way ANOVA with its Tukey HSD table.
type AnovaResult struct {
	Family      string               `json:"family"`
	Groups      []string             `json:"groups"`
	F           float64              `json:"f"`
	PValue      float64              `json:"p_value"`
	DFBetween   int                  `json:"df_between"`
	DFWithin    int                  `json:"df_within"`
	Alpha       float64              `json:"alpha"`
	Comparisons []PairwiseComparison `json:"comparisons"`
}

// KruskalResult is a Kruskal-Wallis H test.
type KruskalResult struct {
	Family string   `json:"family"`
	Groups []string `json:"groups"`
	H      float64  `json:"h"`
	PValue float64  `json:"p_value"`
	DF     int      `json:"df"`
}

// RegressionResult is a least-squares fit of y on x through the origin.
type RegressionResult struct {
	N        int     `json:"n"`
	Slope    float64 `json:"slope"`
	StdErr   float64 `json:"std_err"`
	T        float64 `json:"t"`
	PValue   float64 `json:"p_value"`
	RSquared float64 `json:"r_squared"`
}
