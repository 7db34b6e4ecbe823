package forecast

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/appraiser/internal/domain"
)

// TrendModel extrapolates an ordinary least-squares regression of value on
// time index.
type TrendModel struct{}

func (TrendModel) Name() string { return ModelTrend }

// Estimate fits value = alpha + beta*t over t = 0..n-1 and evaluates the
// line Horizon periods past the last observation.
func (TrendModel) Estimate(in Input) (float64, error) {
	n := len(in.Series)
	if n < 2 {
		return 0, domain.InsufficientDataf("trend model needs at least 2 observations, got %d", n)
	}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	ys := in.Series.Values()

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return 0, domain.InsufficientDataf("trend regression degenerate over %d observations", n)
	}

	t := float64(n - 1 + in.HorizonOrDefault())
	return alpha + beta*t, nil
}
