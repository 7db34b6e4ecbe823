package valuation

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/appraiser/internal/domain"
	"github.com/aristath/appraiser/internal/forecast"
	"github.com/aristath/appraiser/internal/options"
	"github.com/aristath/appraiser/pkg/formulas"
)

// forecastHorizon is how many periods ahead segment metrics are projected
// before a forward multiple is applied.
const forecastHorizon = 2

// marginScaleEffect is the operating-leverage adjustment: each 10% of revenue
// growth lifts the projected margin by 1%.
const marginScaleEffect = 0.1

// Context carries the company-level inputs shared by all segments of one
// valuation request.
type Context struct {
	NetDebt            float64
	TotalRevenue       float64 // consolidated latest revenue, for net-debt allocation
	Peers              []domain.PeerFundamentals
	Subject            domain.SubjectFeatures
	ConsensusRevenue   *float64
	OwnPEHistory       []float64
	OwnEVEBITDAHistory []float64

	// Optional caller overrides.
	PEOverride       *float64
	EVEBITDAOverride *float64
	RevenueWeights   map[string]float64
}

// Params are the sampled drivers used by the Monte Carlo sensitivity loop in
// place of the ensemble forecasts. The pricing code below them is identical
// for both paths.
type Params struct {
	RevenueGrowth      float64
	OperatingMargin    float64
	PEMultiple         float64
	EVEBITDAMultiple   float64
	SuccessProbability float64
}

// Valuator prices a single segment with its assigned method.
type Valuator struct {
	forecaster *forecast.Ensemble
	pricer     *options.Pricer
	defaults   domain.DefaultAssumptions
	log        zerolog.Logger
}

// NewValuator constructs a segment valuator from its collaborators.
func NewValuator(forecaster *forecast.Ensemble, pricer *options.Pricer, defaults domain.DefaultAssumptions, log zerolog.Logger) *Valuator {
	return &Valuator{
		forecaster: forecaster,
		pricer:     pricer,
		defaults:   defaults,
		log:        log.With().Str("component", "segment_valuator").Logger(),
	}
}

// Value prices a segment using ensemble forecasts for the forward metrics.
func (v *Valuator) Value(segment domain.Segment, ctx Context) (domain.ValuationResult, error) {
	if !segment.Method.Valid() {
		return domain.ValuationResult{}, domain.Configurationf(
			"segment %q has no valid valuation method (%q)", segment.ID, segment.Method)
	}

	switch segment.Method {
	case domain.MethodEarningsMultiple:
		return v.valueByEarnings(segment, ctx)
	case domain.MethodEnterpriseMultiple:
		return v.valueByEnterprise(segment, ctx)
	default:
		return v.valueByRealOptions(segment, nil)
	}
}

// ValueWithParams prices a segment from explicitly sampled drivers. The
// Monte Carlo sensitivity loop calls this with one Params draw per trial;
// the pricing helpers are the same ones used by Value.
func (v *Valuator) ValueWithParams(segment domain.Segment, ctx Context, params Params) (domain.ValuationResult, error) {
	if !segment.Method.Valid() {
		return domain.ValuationResult{}, domain.Configurationf(
			"segment %q has no valid valuation method (%q)", segment.ID, segment.Method)
	}

	baseRevenue, _ := segment.Revenue.Last()
	projectedRevenue := baseRevenue * math.Pow(1+params.RevenueGrowth, forecastHorizon)

	switch segment.Method {
	case domain.MethodEarningsMultiple:
		netIncome := projectedRevenue * params.OperatingMargin
		return v.priceEarnings(segment, netIncome, params.PEMultiple), nil
	case domain.MethodEnterpriseMultiple:
		ebitda := projectedRevenue * params.OperatingMargin * v.defaults.EBITDAUplift
		return v.priceEnterprise(segment, ctx, ebitda, params.EVEBITDAMultiple), nil
	default:
		probability := formulas.Clamp(params.SuccessProbability, 0, 1)
		return v.valueByRealOptions(segment, &probability)
	}
}

func (v *Valuator) valueByEarnings(segment domain.Segment, ctx Context) (domain.ValuationResult, error) {
	projectedRevenue, margin, blend, err := v.projectRevenueAndMargin(segment, ctx)
	if err != nil {
		return domain.ValuationResult{}, err
	}

	netIncome := projectedRevenue * margin
	pe := BlendMultiple(ctx.OwnPEHistory, peerPEs(ctx.Peers), ctx.PEOverride, v.defaults.PEMultiple)

	result := v.priceEarnings(segment, netIncome, pe)
	result.Diagnostics["projected_revenue"] = projectedRevenue
	result.Diagnostics["projected_margin"] = margin
	if base := segment.Revenue.LastPeriod(); base > 0 {
		result.Diagnostics["forecast_period"] = float64(base + forecastHorizon)
	}
	result.Forecast = &blend
	if blend.UsedFallback() {
		result.Notes = append(result.Notes, "revenue forecast used fallback estimates")
	}
	return result, nil
}

func (v *Valuator) valueByEnterprise(segment domain.Segment, ctx Context) (domain.ValuationResult, error) {
	ebitda, blend, err := v.projectEBITDA(segment, ctx)
	if err != nil {
		return domain.ValuationResult{}, err
	}

	multiple := BlendMultiple(ctx.OwnEVEBITDAHistory, peerEVEBITDAs(ctx.Peers), ctx.EVEBITDAOverride, v.defaults.EVEBITDAMultiple)

	result := v.priceEnterprise(segment, ctx, ebitda, multiple)
	result.Diagnostics["projected_ebitda"] = ebitda
	if base := segment.Revenue.LastPeriod(); base > 0 {
		result.Diagnostics["forecast_period"] = float64(base + forecastHorizon)
	}
	result.Forecast = &blend
	if blend.UsedFallback() {
		result.Notes = append(result.Notes, "ebitda forecast used fallback estimates")
	}
	return result, nil
}

// valueByRealOptions sums the real-option value of each sub-project. The
// success probability is already folded into each project's price; when
// probabilityOverride is set (sensitivity sampling) it replaces every
// project's own probability.
func (v *Valuator) valueByRealOptions(segment domain.Segment, probabilityOverride *float64) (domain.ValuationResult, error) {
	if len(segment.Projects) == 0 {
		return domain.ValuationResult{}, domain.Configurationf(
			"segment %q uses the real-option method but has no projects", segment.ID)
	}

	total := 0.0
	diagnostics := map[string]float64{}
	for _, project := range segment.Projects {
		if probabilityOverride != nil {
			project.SuccessProbability = *probabilityOverride
		}
		valuation, err := v.pricer.Value(project)
		if err != nil {
			return domain.ValuationResult{}, err
		}
		total += valuation.RealOptionValue
		diagnostics["option_value:"+project.Name] = valuation.RealOptionValue
	}

	return domain.ValuationResult{
		SegmentID:   segment.ID,
		Method:      domain.MethodRealOption,
		Value:       total,
		Diagnostics: diagnostics,
	}, nil
}

// priceEarnings applies the earnings-multiple formula. No floor or ceiling is
// applied unless configured upstream.
func (v *Valuator) priceEarnings(segment domain.Segment, netIncome, pe float64) domain.ValuationResult {
	return domain.ValuationResult{
		SegmentID: segment.ID,
		Method:    domain.MethodEarningsMultiple,
		Value:     netIncome * pe,
		Diagnostics: map[string]float64{
			"net_income":  netIncome,
			"pe_multiple": pe,
		},
	}
}

// priceEnterprise applies the enterprise-multiple formula. A share of
// consolidated net debt proportional to the segment's revenue share is
// subtracted from the enterprise value, and the result is clamped at zero.
func (v *Valuator) priceEnterprise(segment domain.Segment, ctx Context, ebitda, multiple float64) domain.ValuationResult {
	ev := ebitda * multiple

	revenueShare := 0.0
	if latest, ok := segment.Revenue.Last(); ok && ctx.TotalRevenue > 0 {
		revenueShare = latest / ctx.TotalRevenue
	}
	allocatedDebt := ctx.NetDebt * revenueShare

	value := math.Max(ev-allocatedDebt, 0)

	return domain.ValuationResult{
		SegmentID: segment.ID,
		Method:    domain.MethodEnterpriseMultiple,
		Value:     value,
		Diagnostics: map[string]float64{
			"enterprise_value":   ev,
			"ebitda":             ebitda,
			"ev_ebitda_multiple": multiple,
			"allocated_net_debt": allocatedDebt,
		},
	}
}

// projectRevenueAndMargin forecasts the segment's revenue with the ensemble
// and derives a forward operating margin from the margin history, adjusted
// for operating leverage and clamped to the documented band.
func (v *Valuator) projectRevenueAndMargin(segment domain.Segment, ctx Context) (float64, float64, domain.BlendedForecast, error) {
	weights := ctx.RevenueWeights
	if weights == nil {
		weights = forecast.RevenueWeights()
	}

	blend, err := v.forecaster.Blend(forecast.Input{
		Metric:    domain.MetricRevenue,
		Series:    segment.Revenue,
		Horizon:   forecastHorizon,
		Peers:     ctx.Peers,
		Subject:   ctx.Subject,
		Consensus: ctx.ConsensusRevenue,
	}, weights)
	if err != nil {
		return 0, 0, domain.BlendedForecast{}, err
	}

	growth := v.impliedGrowth(segment.Revenue, blend.Estimate)
	margin := v.projectMargin(segment, growth)
	return blend.Estimate, margin, blend, nil
}

func (v *Valuator) projectEBITDA(segment domain.Segment, ctx Context) (float64, domain.BlendedForecast, error) {
	// With a real EBITDA history, forecast it directly.
	if len(segment.EBITDA) >= 2 {
		blend, err := v.forecaster.Blend(forecast.Input{
			Metric:  domain.MetricEBITDA,
			Series:  segment.EBITDA,
			Horizon: forecastHorizon,
		}, map[string]float64{forecast.ModelTrend: 0.5, forecast.ModelTimeSeries: 0.5})
		if err != nil {
			return 0, domain.BlendedForecast{}, err
		}
		return blend.Estimate, blend, nil
	}

	// Otherwise approximate from projected operating income.
	revenue, margin, blend, err := v.projectRevenueAndMargin(segment, ctx)
	if err != nil {
		return 0, domain.BlendedForecast{}, err
	}
	return revenue * margin * v.defaults.EBITDAUplift, blend, nil
}

// impliedGrowth converts a level forecast into an annualized growth rate,
// clamped to the documented band.
func (v *Valuator) impliedGrowth(series domain.HistoricalSeries, projected float64) float64 {
	last, ok := series.Last()
	if !ok || last <= 0 || projected <= 0 {
		return v.defaults.RevenueGrowth
	}
	growth := math.Pow(projected/last, 1.0/forecastHorizon) - 1
	return formulas.Clamp(growth, v.defaults.MinRevenueGrowth, v.defaults.MaxRevenueGrowth)
}

// projectMargin extrapolates the operating-margin history one step and adds
// the operating-leverage effect of revenue growth.
func (v *Valuator) projectMargin(segment domain.Segment, revenueGrowth float64) float64 {
	margins := marginSeries(segment)
	if len(margins) < 2 {
		return v.defaults.OperatingMargin
	}

	// Average per-period drift of the margin history.
	n := len(margins)
	slope := (margins[n-1] - margins[0]) / float64(n-1)

	projected := margins[n-1] + slope + marginScaleEffect*revenueGrowth
	return formulas.Clamp(projected, v.defaults.MinMargin, v.defaults.MaxMargin)
}

// marginSeries builds operating margin observations for periods where both
// revenue and operating income exist and revenue is non-zero.
func marginSeries(segment domain.Segment) []float64 {
	revenueByPeriod := make(map[int]float64, len(segment.Revenue))
	for _, p := range segment.Revenue {
		revenueByPeriod[p.Period] = p.Value
	}

	var margins []float64
	for _, p := range segment.OperatingIncome {
		if revenue, ok := revenueByPeriod[p.Period]; ok && revenue != 0 {
			margins = append(margins, p.Value/revenue)
		}
	}
	return margins
}

func peerPEs(peers []domain.PeerFundamentals) []float64 {
	var out []float64
	for _, p := range peers {
		if p.PERatio != nil {
			out = append(out, *p.PERatio)
		}
	}
	return out
}

func peerEVEBITDAs(peers []domain.PeerFundamentals) []float64 {
	var out []float64
	for _, p := range peers {
		if p.EVEBITDA != nil {
			out = append(out, *p.EVEBITDA)
		}
	}
	return out
}
