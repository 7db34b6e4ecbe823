// Package domain contains the core types shared across the valuation engine.
// The domain layer is pure: no infrastructure dependencies, no mutable state.
// Every value is created fresh per valuation request and immutable once produced.
package domain

// Metric identifies a financial statement line item fetched as a time series.
type Metric string

const (
	MetricRevenue         Metric = "revenue"
	MetricOperatingIncome Metric = "operating_income"
	MetricEBITDA          Metric = "ebitda"
	MetricEPS             Metric = "eps"
	MetricDebt            Metric = "debt"
	MetricCash            Metric = "cash"
	MetricFreeCashFlow    Metric = "free_cash_flow"
)

// Point is a single (period, value) observation in a historical series.
// Period is a fiscal year (e.g. 2023).
type Point struct {
	Period int     `json:"period"`
	Value  float64 `json:"value"`
}

// HistoricalSeries is an ordered sequence of observations, oldest first.
// Periods may contain gaps; callers must not assume consecutive years.
type HistoricalSeries []Point

// Values returns the observation values in chronological order.
func (s HistoricalSeries) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}

// Last returns the most recent observation value and true, or 0 and false
// for an empty series.
func (s HistoricalSeries) Last() (float64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1].Value, true
}

// LastPeriod returns the most recent period, or 0 for an empty series.
func (s HistoricalSeries) LastPeriod() int {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Period
}

// GrowthRates returns period-over-period percentage changes.
// A zero-valued observation terminates the chain for that pair (no division).
func (s HistoricalSeries) GrowthRates() []float64 {
	if len(s) < 2 {
		return nil
	}
	rates := make([]float64, 0, len(s)-1)
	for i := 1; i < len(s); i++ {
		prev := s[i-1].Value
		if prev == 0 {
			continue
		}
		rates = append(rates, (s[i].Value-prev)/prev)
	}
	return rates
}

// IsChronological reports whether periods are strictly increasing.
func (s HistoricalSeries) IsChronological() bool {
	for i := 1; i < len(s); i++ {
		if s[i].Period <= s[i-1].Period {
			return false
		}
	}
	return true
}
