package statistics

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"organoidcli/pkg/contracts/domain"
)

// Anova runs a one-way ANOVA across the table's columns followed by a
// Tukey HSD comparison of every pair of groups.
func (r *GonumRunner) Anova(family string, groups *domain.WideTable[domain.GroupKey]) (*domain.AnovaResult, error) {
	ss, err := samples(groups)
	if err != nil {
		return nil, err
	}

	k := len(ss)
	total := 0
	grand := 0.0
	means := make([]float64, k)
	for i, s := range ss {
		means[i] = stat.Mean(s.values, nil)
		total += len(s.values)
		for _, v := range s.values {
			grand += v
		}
	}
	grand /= float64(total)

	var ssBetween, ssWithin float64
	for i, s := range ss {
		d := means[i] - grand
		ssBetween += float64(len(s.values)) * d * d
		for _, v := range s.values {
			e := v - means[i]
			ssWithin += e * e
		}
	}

	dfB, dfW := k-1, total-k
	res := &domain.AnovaResult{
		Family:    family,
		Groups:    labels(ss),
		DFBetween: dfB,
		DFWithin:  dfW,
		Alpha:     r.alpha,
	}

	msWithin := ssWithin / float64(dfW)
	switch {
	case ssWithin == 0 && ssBetween == 0:
		res.F, res.PValue = math.NaN(), math.NaN()
	case ssWithin == 0:
		res.F, res.PValue = math.Inf(1), 0
	default:
		res.F = (ssBetween / float64(dfB)) / msWithin
		res.PValue = distuv.F{D1: float64(dfB), D2: float64(dfW)}.Survival(res.F)
	}

	res.Comparisons = tukeyHSD(ss, means, msWithin, dfW, r.alpha)

	r.logger.Debug("ANOVA complete",
		slog.String("family", family),
		slog.Int("groups", k),
		slog.Float64("f", res.F),
		slog.Float64("p", res.PValue))
	return res, nil
}

// tukeyHSD compares every pair (i < j) in column order. The mean
// difference is group j minus group i.
func tukeyHSD(ss []sample, means []float64, msWithin float64, dfW int, alpha float64) []domain.PairwiseComparison {
	k := len(ss)
	qCrit := StudentizedRangeQuantile(1-alpha, k, float64(dfW))

	out := make([]domain.PairwiseComparison, 0, k*(k-1)/2)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			diff := means[j] - means[i]
			se := math.Sqrt(msWithin / 2 * (1/float64(len(ss[i].values)) + 1/float64(len(ss[j].values))))

			c := domain.PairwiseComparison{
				GroupA:   ss[i].label,
				GroupB:   ss[j].label,
				MeanDiff: diff,
				Lower:    diff - qCrit*se,
				Upper:    diff + qCrit*se,
			}
			if se == 0 {
				c.PAdj = 0
				if diff == 0 {
					c.PAdj = 1
				}
			} else {
				q := math.Abs(diff) / se
				c.PAdj = clamp01(1 - StudentizedRangeCDF(q, k, float64(dfW)))
			}
			c.Reject = c.PAdj < alpha
			out = append(out, c)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
