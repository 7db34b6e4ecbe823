package forecast

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/appraiser/internal/domain"
	"github.com/aristath/appraiser/pkg/formulas"
)

// minARIMAObservations is the minimum history length for the time-series
// model; below this the differenced series cannot support an autoregression.
const minARIMAObservations = 3

// ARIMAModel is a low-order autoregressive-integrated model, ARIMA(1,1,0):
// first-difference the series, fit an AR(1) on the differences by least
// squares, then forecast by iterating the recursion and re-integrating.
type ARIMAModel struct{}

func (ARIMAModel) Name() string { return ModelTimeSeries }

func (ARIMAModel) Estimate(in Input) (float64, error) {
	n := len(in.Series)
	if n < minARIMAObservations {
		return 0, domain.InsufficientDataf("time-series model needs at least %d observations, got %d", minARIMAObservations, n)
	}

	values := in.Series.Values()
	diffs := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diffs[i-1] = values[i] - values[i-1]
	}

	constant, phi := fitAR1(diffs)

	level := values[n-1]
	lastDiff := diffs[len(diffs)-1]
	for step := 0; step < in.HorizonOrDefault(); step++ {
		next := constant + phi*lastDiff
		level += next
		lastDiff = next
	}
	return level, nil
}

// fitAR1 estimates d[t] = c + phi*d[t-1] by OLS. With too few difference
// pairs for a regression the model degrades to a pure drift (mean difference),
// which is the documented fallback for short histories.
func fitAR1(diffs []float64) (constant, phi float64) {
	if len(diffs) < 3 {
		return formulas.Mean(diffs), 0
	}

	lagged := diffs[:len(diffs)-1]
	current := diffs[1:]
	alpha, beta := stat.LinearRegression(lagged, current, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return formulas.Mean(diffs), 0
	}

	// Keep the autoregression stationary; an explosive coefficient on a
	// handful of annual observations is noise, not signal.
	beta = formulas.Clamp(beta, -0.99, 0.99)
	return alpha, beta
}
