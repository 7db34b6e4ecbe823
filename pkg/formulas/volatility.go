package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// HistoricalVolatility estimates annualized volatility from daily closing
// prices using a rolling standard deviation of returns over the given window
// (typically 252 trading days).
//
// Returns nil when the price history is shorter than the window; callers fall
// back to a tag-derived or default volatility in that case.
func HistoricalVolatility(closes []float64, window int) *float64 {
	if window <= 1 || len(closes) < window+1 {
		return nil
	}

	returns := CalculateReturns(closes)
	if len(returns) < window {
		return nil
	}

	// Rolling stddev via go-talib; the last value is the current window.
	rolling := talib.StdDev(returns, window, 1.0)
	if len(rolling) == 0 {
		return nil
	}

	last := rolling[len(rolling)-1]
	if math.IsNaN(last) || last <= 0 {
		return nil
	}

	annualized := last * math.Sqrt(252)
	return &annualized
}
