package statistics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "organoidcli/internal/errors"
	"organoidcli/pkg/contracts/domain"
)

// Regression fits y = slope*x by least squares without an intercept. The
// R-squared is uncentered, as is usual for a fit through the origin.
func (r *GonumRunner) Regression(y, x []float64) (*domain.RegressionResult, error) {
	if len(x) != len(y) {
		return nil, apperrors.NewStatisticalPreconditionError(
			fmt.Sprintf("series lengths differ: %d and %d", len(y), len(x)))
	}
	n := len(x)
	if n < 2 {
		return nil, apperrors.NewStatisticalPreconditionError("regression needs at least 2 observations")
	}

	var sxx, syy float64
	for i := range x {
		sxx += x[i] * x[i]
		syy += y[i] * y[i]
	}
	if sxx == 0 {
		return nil, apperrors.NewStatisticalPreconditionError("regressor is identically zero")
	}

	_, slope := stat.LinearRegression(x, y, nil, true)

	ssr := 0.0
	for i := range x {
		e := y[i] - slope*x[i]
		ssr += e * e
	}
	df := float64(n - 1)

	res := &domain.RegressionResult{
		N:        n,
		Slope:    slope,
		RSquared: math.NaN(),
	}
	if syy > 0 {
		res.RSquared = 1 - ssr/syy
	}
	res.StdErr = math.Sqrt(ssr / df / sxx)
	switch {
	case res.StdErr > 0:
		res.T = slope / res.StdErr
		res.PValue = 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(math.Abs(res.T))
	case slope != 0:
		res.T = math.Inf(1)
	default:
		res.T, res.PValue = math.NaN(), math.NaN()
	}
	return res, nil
}
