// Package forecast implements the multi-model forecast ensemble used to
// predict a financial metric (EPS or revenue) from noisy, sometimes-missing
// historical data.
//
// Each sub-model implements the Model interface and is independently
// fallible; the ensemble blends their point estimates with caller-supplied
// weights and substitutes a documented default when a sub-model fails. The
// ensemble itself never fails solely because one sub-model failed.
package forecast

import "github.com/aristath/appraiser/internal/domain"

// Model names used as weight keys.
const (
	ModelTrend          = "trend"
	ModelTimeSeries     = "time_series"
	ModelCrossSectional = "cross_sectional"
	ModelConsensus      = "consensus"
)

// Input carries everything a sub-model may need for one estimate. Models use
// the subset relevant to them and ignore the rest.
type Input struct {
	Metric  domain.Metric
	Series  domain.HistoricalSeries
	Horizon int // periods ahead; 0 is treated as 1

	// Cross-sectional regression inputs.
	Peers   []domain.PeerFundamentals
	Subject domain.SubjectFeatures

	// Externally supplied analyst estimate; nil when unavailable.
	Consensus *float64
}

// HorizonOrDefault returns the forecast horizon, defaulting to one period.
func (in Input) HorizonOrDefault() int {
	if in.Horizon <= 0 {
		return 1
	}
	return in.Horizon
}

// Model is a single forecasting method producing a point estimate.
type Model interface {
	Name() string
	Estimate(in Input) (float64, error)
}
