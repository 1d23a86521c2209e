package statistics

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	apperrors "organoidcli/internal/errors"
	"organoidcli/pkg/contracts/domain"
)

// Kruskal runs a Kruskal-Wallis H test with tie correction.
func (r *GonumRunner) Kruskal(family string, groups *domain.WideTable[domain.GroupKey]) (*domain.KruskalResult, error) {
	ss, err := samples(groups)
	if err != nil {
		return nil, err
	}

	type obs struct {
		value float64
		group int
	}
	var all []obs
	for i, s := range ss {
		for _, v := range s.values {
			all = append(all, obs{value: v, group: i})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].value < all[j].value })

	n := float64(len(all))
	rankSums := make([]float64, len(ss))
	ties := 0.0
	for i := 0; i < len(all); {
		j := i + 1
		for j < len(all) && all[j].value == all[i].value {
			j++
		}
		// Ranks i+1..j share their average.
		rank := float64(i+1+j) / 2
		for m := i; m < j; m++ {
			rankSums[all[m].group] += rank
		}
		t := float64(j - i)
		ties += t*t*t - t
		i = j
	}

	h := 0.0
	for i, s := range ss {
		h += rankSums[i] * rankSums[i] / float64(len(s.values))
	}
	h = 12/(n*(n+1))*h - 3*(n+1)

	correction := 1 - ties/(n*n*n-n)
	if correction == 0 {
		return nil, apperrors.NewStatisticalPreconditionError("all observations are identical").
			WithContext("family", family)
	}
	h /= correction

	df := len(ss) - 1
	res := &domain.KruskalResult{
		Family: family,
		Groups: labels(ss),
		H:      h,
		DF:     df,
		PValue: distuv.ChiSquared{K: float64(df)}.Survival(h),
	}

	r.logger.Debug("Kruskal-Wallis complete",
		slog.String("family", family),
		slog.Float64("h", res.H),
		slog.Float64("p", res.PValue))
	return res, nil
}
