package valuation

import (
	"github.com/aristath/appraiser/internal/domain"
	"github.com/aristath/appraiser/internal/forecast"
)

// ForwardPS returns the forward price-to-sales ratio implied by the current
// market capitalization and next year's revenue forecast. The forecast is the
// denominator of the multiple, so a non-positive forecast is rejected rather
// than producing an infinite or negative ratio.
func ForwardPS(marketCap, forecastRevenue float64) (float64, error) {
	if forecastRevenue <= 0 {
		return 0, domain.InvalidAssumptionf(
			"forward P/S needs a positive revenue forecast, got %.2f", forecastRevenue)
	}
	return marketCap / forecastRevenue, nil
}

// ForwardPESharePrice values the whole company as blended forward EPS times
// the blended P/E multiple. The EPS blend leans on the time-series and
// cross-sectional models; analyst per-share estimates enter through the
// multiple side instead. A non-positive EPS forecast cannot anchor a P/E and
// is rejected as an invalid assumption.
func (v *Valuator) ForwardPESharePrice(eps domain.HistoricalSeries, ctx Context) (float64, domain.BlendedForecast, error) {
	blend, err := v.forecaster.Blend(forecast.Input{
		Metric:  domain.MetricEPS,
		Series:  eps,
		Peers:   ctx.Peers,
		Subject: ctx.Subject,
	}, forecast.EPSWeights())
	if err != nil {
		return 0, domain.BlendedForecast{}, err
	}
	if blend.Estimate <= 0 {
		return 0, blend, domain.InvalidAssumptionf(
			"forward P/E needs a positive eps forecast, got %.4f", blend.Estimate)
	}

	pe := BlendMultiple(ctx.OwnPEHistory, peerPEs(ctx.Peers), ctx.PEOverride, v.defaults.PEMultiple)
	return blend.Estimate * pe, blend, nil
}

// ForecastCompanyRevenue blends a consolidated one-year revenue forecast for
// the forward P/S check, with the same weights the segment forecasts use.
func (v *Valuator) ForecastCompanyRevenue(revenue domain.HistoricalSeries, ctx Context) (domain.BlendedForecast, error) {
	weights := ctx.RevenueWeights
	if weights == nil {
		weights = forecast.RevenueWeights()
	}

	return v.forecaster.Blend(forecast.Input{
		Metric:    domain.MetricRevenue,
		Series:    revenue,
		Peers:     ctx.Peers,
		Subject:   ctx.Subject,
		Consensus: ctx.ConsensusRevenue,
	}, weights)
}
