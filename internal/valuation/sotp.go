package valuation

import (
	"github.com/rs/zerolog"

	"github.com/aristath/appraiser/internal/domain"
)

// Aggregator combines per-segment valuations into a sum-of-the-parts target
// price.
type Aggregator struct {
	log zerolog.Logger
}

// NewAggregator constructs the SOTP aggregator.
func NewAggregator(log zerolog.Logger) *Aggregator {
	return &Aggregator{log: log.With().Str("component", "sotp_aggregator").Logger()}
}

// Aggregate sums segment values, subtracts consolidated net debt and divides
// by shares outstanding. Total business value is the plain sum of the inputs,
// so equity value + net debt always reconciles back to it exactly.
func (a *Aggregator) Aggregate(valuations []domain.ValuationResult, netDebt, sharesOutstanding float64) (domain.SOTPResult, error) {
	if sharesOutstanding <= 0 {
		return domain.SOTPResult{}, domain.InvalidAssumptionf(
			"shares outstanding must be positive, got %.2f", sharesOutstanding)
	}

	total := 0.0
	for _, v := range valuations {
		total += v.Value
	}

	weights := make([]domain.SegmentWeight, 0, len(valuations))
	for _, v := range valuations {
		pct := 0.0
		if total > 0 {
			pct = v.Value / total * 100
		}
		weights = append(weights, domain.SegmentWeight{
			SegmentID:  v.SegmentID,
			Value:      v.Value,
			Percentage: pct,
		})
	}

	equity := total - netDebt
	target := equity / sharesOutstanding

	a.log.Debug().
		Float64("total_business_value", total).
		Float64("net_debt", netDebt).
		Float64("target_price", target).
		Int("segments", len(valuations)).
		Msg("Aggregated sum-of-the-parts valuation")

	return domain.SOTPResult{
		Valuations:         valuations,
		Weights:            weights,
		TotalBusinessValue: total,
		NetDebt:            netDebt,
		SharesOutstanding:  sharesOutstanding,
		TotalEquityValue:   equity,
		TargetPrice:        target,
	}, nil
}
