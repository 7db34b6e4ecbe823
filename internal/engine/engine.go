// Package engine orchestrates one valuation request end to end: market data
// fetches with documented fallbacks, per-segment valuation, sum-of-the-parts
// aggregation, Monte Carlo sensitivity, the DCF cross-check and the final
// recommendation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/appraiser/internal/domain"
	"github.com/aristath/appraiser/internal/forecast"
	"github.com/aristath/appraiser/internal/recommendation"
	"github.com/aristath/appraiser/internal/simulation"
	"github.com/aristath/appraiser/internal/valuation"
	"github.com/aristath/appraiser/pkg/formulas"
)

const (
	historyPeriods    = 6
	dcfForecastYears  = 5
	dcfTerminalGrowth = 0.025
	// fallbackConfidence matches the report confidence used when the
	// simulation produced no usable dispersion estimate.
	fallbackConfidence = 80.0
)

// Options is the per-request configuration. Zero values mean "use defaults".
type Options struct {
	ForecastWeights   map[string]float64
	PEOverride        *float64
	EVEBITDAOverride  *float64
	PeerSymbols       []string
	MonteCarloTrials  int
	MonteCarloWorkers int
	RandomSeed        int64
}

// Engine runs valuation requests. It is safe for concurrent use: every
// request is a pure function of its inputs plus the random seed.
type Engine struct {
	market      domain.MarketData
	valuator    *valuation.Valuator
	aggregator  *valuation.Aggregator
	sensitivity *simulation.Sensitivity
	recommender *recommendation.Engine
	defaults    domain.DefaultAssumptions
	riskFree    float64
	riskPremium float64
	log         zerolog.Logger
}

// New wires the engine from its collaborators.
func New(
	market domain.MarketData,
	valuator *valuation.Valuator,
	aggregator *valuation.Aggregator,
	sensitivity *simulation.Sensitivity,
	recommender *recommendation.Engine,
	defaults domain.DefaultAssumptions,
	riskFree, riskPremium float64,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		market:      market,
		valuator:    valuator,
		aggregator:  aggregator,
		sensitivity: sensitivity,
		recommender: recommender,
		defaults:    defaults,
		riskFree:    riskFree,
		riskPremium: riskPremium,
		log:         log.With().Str("component", "engine").Logger(),
	}
}

// fallbacks accumulates the soft data-layer substitutions made during one
// request, so the report can flag them.
type fallbacks struct {
	notes []string
}

func (f *fallbacks) add(format string, args ...any) {
	f.notes = append(f.notes, fmt.Sprintf(format, args...))
}

// Valuate runs the full pipeline for a symbol. Market-data failures degrade
// to defaults and are flagged in the report; invariant violations
// (InvalidAssumption, ConfigurationError) abort the request.
func (e *Engine) Valuate(ctx context.Context, symbol string, segments []domain.Segment, opts Options) (domain.Report, error) {
	if len(segments) == 0 {
		return domain.Report{}, domain.Configurationf("no segments supplied for %s", symbol)
	}
	for _, s := range segments {
		if !s.Method.Valid() {
			return domain.Report{}, domain.Configurationf(
				"segment %q has no valid valuation method (%q)", s.ID, s.Method)
		}
	}

	var fb fallbacks
	quote := e.fetchQuote(ctx, symbol, &fb)
	vctx := e.buildContext(ctx, symbol, segments, opts, &fb)
	if quote.PERatio > 0 {
		vctx.OwnPEHistory = []float64{quote.PERatio}
	}

	valuations := make([]domain.ValuationResult, 0, len(segments))
	forecasts := make(map[string]domain.BlendedForecast)
	for _, segment := range segments {
		result, err := e.valuator.Value(segment, vctx)
		if err != nil {
			return domain.Report{}, fmt.Errorf("failed to value segment %q: %w", segment.ID, err)
		}
		valuations = append(valuations, result)
		if result.Forecast != nil {
			forecasts[segment.ID] = *result.Forecast
		}
		for _, note := range result.Notes {
			fb.add("segment %s: %s", segment.ID, note)
		}
	}

	sotp, err := e.aggregator.Aggregate(valuations, vctx.NetDebt, quote.SharesOutstanding)
	if err != nil {
		return domain.Report{}, err
	}

	summary, err := e.sensitivity.Run(ctx, simulation.Request{
		Segments:          segments,
		Context:           vctx,
		NetDebt:           vctx.NetDebt,
		SharesOutstanding: quote.SharesOutstanding,
	}, simulation.Config{
		Trials:  opts.MonteCarloTrials,
		Workers: opts.MonteCarloWorkers,
		Seed:    opts.RandomSeed,
	})
	if err != nil {
		return domain.Report{}, fmt.Errorf("sensitivity analysis failed: %w", err)
	}

	dcfPrice := e.dcfCrossCheck(ctx, symbol, quote, vctx.NetDebt, &fb)
	pePrice, psRatio, epsBlend := e.forwardMultipleChecks(ctx, symbol, quote, vctx, &fb)
	if epsBlend != nil {
		forecasts["consolidated_eps"] = *epsBlend
	}

	confidence := confidenceFrom(summary)
	rec := e.recommender.Recommend(quote.Price, sotp.TargetPrice, confidence)

	report := domain.Report{
		ID:                 uuid.NewString(),
		Symbol:             symbol,
		GeneratedAt:        time.Now().UTC(),
		CurrentPrice:       quote.Price,
		SOTP:               sotp,
		Simulation:         summary,
		Forecasts:          forecasts,
		DCFSharePrice:      dcfPrice,
		ForwardPEPrice:     pePrice,
		ForwardPSRatio:     psRatio,
		RealizedVolatility: e.realizedVolatility(ctx, symbol),
		Recommendation:     rec,
		UsedFallback:       len(fb.notes) > 0,
		FallbackNotes:      fb.notes,
	}

	e.log.Info().
		Str("symbol", symbol).
		Float64("target_price", sotp.TargetPrice).
		Float64("current_price", quote.Price).
		Str("recommendation", rec.Label).
		Bool("used_fallback", report.UsedFallback).
		Msg("Valuation complete")
	return report, nil
}

// buildContext assembles the shared valuation context, substituting defaults
// for every collaborator fetch that fails.
func (e *Engine) buildContext(ctx context.Context, symbol string, segments []domain.Segment, opts Options, fb *fallbacks) valuation.Context {
	vctx := valuation.Context{
		PEOverride:       opts.PEOverride,
		EVEBITDAOverride: opts.EVEBITDAOverride,
		RevenueWeights:   opts.ForecastWeights,
	}

	for _, s := range segments {
		if latest, ok := s.Revenue.Last(); ok {
			vctx.TotalRevenue += latest
		}
	}

	vctx.NetDebt = e.fetchNetDebt(ctx, symbol, fb)

	if consensus, err := e.market.GetConsensus(ctx, symbol, domain.MetricRevenue); err == nil {
		vctx.ConsensusRevenue = &consensus
	} else {
		e.logSoftFailure(symbol, "analyst consensus", err)
		fb.add("no analyst revenue consensus, models fall back to %.0f", e.defaults.ConsensusRevenue)
	}

	if len(opts.PeerSymbols) > 0 {
		peers, err := e.market.GetPeerFundamentals(ctx, opts.PeerSymbols)
		if err != nil {
			e.logSoftFailure(symbol, "peer fundamentals", err)
			fb.add("peer fundamentals unavailable, cross-sectional model will fall back")
		} else {
			vctx.Peers = peers
		}
	}

	vctx.Subject = e.subjectFeatures(segments)
	return vctx
}

// subjectFeatures derives the cross-sectional feature vector from the
// consolidated segment history, with defaults for the margins that segment
// data cannot express.
func (e *Engine) subjectFeatures(segments []domain.Segment) domain.SubjectFeatures {
	var totalRevenue, totalIncome, growth float64
	var growthSamples int

	for _, s := range segments {
		if latest, ok := s.Revenue.Last(); ok {
			totalRevenue += latest
		}
		if latest, ok := s.OperatingIncome.Last(); ok {
			totalIncome += latest
		}
		if rates := s.Revenue.GrowthRates(); len(rates) > 0 {
			growth += formulas.Mean(rates)
			growthSamples++
		}
	}

	features := domain.SubjectFeatures{
		GrossMargin:   e.defaults.MaxMargin,
		NetMargin:     e.defaults.OperatingMargin,
		RevenueGrowth: e.defaults.RevenueGrowth,
	}
	if totalRevenue > 0 && totalIncome > 0 {
		features.NetMargin = totalIncome / totalRevenue
	}
	if growthSamples > 0 {
		features.RevenueGrowth = formulas.Clamp(growth/float64(growthSamples),
			e.defaults.MinRevenueGrowth, e.defaults.MaxRevenueGrowth)
	}
	return features
}

func (e *Engine) fetchQuote(ctx context.Context, symbol string, fb *fallbacks) domain.Quote {
	quote, err := e.market.GetQuote(ctx, symbol)
	if err != nil {
		e.logSoftFailure(symbol, "quote", err)
		fb.add("quote unavailable, using default share count %.0f", e.defaults.SharesOutstanding)
		return domain.Quote{Symbol: symbol, SharesOutstanding: e.defaults.SharesOutstanding}
	}
	if quote.SharesOutstanding <= 0 {
		fb.add("share count missing from quote, using default %.0f", e.defaults.SharesOutstanding)
		quote.SharesOutstanding = e.defaults.SharesOutstanding
	}
	return quote
}

// fetchNetDebt derives consolidated net debt from the latest debt and cash
// observations. Missing data degrades to zero net debt with a note.
func (e *Engine) fetchNetDebt(ctx context.Context, symbol string, fb *fallbacks) float64 {
	debtSeries, debtErr := e.market.GetFinancials(ctx, symbol, domain.MetricDebt, historyPeriods)
	cashSeries, cashErr := e.market.GetFinancials(ctx, symbol, domain.MetricCash, historyPeriods)
	if debtErr != nil || cashErr != nil {
		e.logSoftFailure(symbol, "balance sheet", errors.Join(debtErr, cashErr))
		fb.add("balance sheet unavailable, assuming zero net debt")
		return 0
	}

	debt, _ := debtSeries.Last()
	cash, _ := cashSeries.Last()
	return debt - cash
}

// dcfCrossCheck computes the diagnostic DCF fair price. It is best effort:
// missing cash-flow history or an invalid rate configuration yields zero with
// a note rather than failing the valuation.
func (e *Engine) dcfCrossCheck(ctx context.Context, symbol string, quote domain.Quote, netDebt float64, fb *fallbacks) float64 {
	fcf, err := e.market.GetFinancials(ctx, symbol, domain.MetricFreeCashFlow, historyPeriods)
	if err != nil {
		e.logSoftFailure(symbol, "free cash flow", err)
		fb.add("free cash flow unavailable, DCF cross-check skipped")
		return 0
	}

	latest, _ := fcf.Last()
	if latest <= 0 {
		fb.add("latest free cash flow non-positive, DCF cross-check skipped")
		return 0
	}

	growth := e.defaults.RevenueGrowth
	if rates := fcf.GrowthRates(); len(rates) > 0 {
		growth = formulas.Clamp(formulas.Mean(rates), e.defaults.MinRevenueGrowth, e.defaults.MaxRevenueGrowth)
	}

	beta := quote.Beta
	if beta <= 0 {
		beta = 1.0
	}

	price, err := valuation.DCFSharePrice(valuation.DCFInput{
		FreeCashFlow:      latest,
		GrowthRate:        growth,
		TerminalGrowth:    dcfTerminalGrowth,
		ForecastYears:     dcfForecastYears,
		Beta:              beta,
		RiskFreeRate:      e.riskFree,
		MarketRiskPremium: e.riskPremium,
		NetDebt:           netDebt,
		SharesOutstanding: quote.SharesOutstanding,
	})
	if err != nil {
		e.logSoftFailure(symbol, "dcf cross-check", err)
		fb.add("DCF cross-check failed: %v", err)
		return 0
	}
	return price
}

// forwardMultipleChecks computes the company-level forward P/E share price
// and forward P/S ratio, diagnostics next to the DCF figure. Like the DCF they
// are best effort: missing history or an unanchorable forecast yields zero
// with a note instead of failing the valuation.
func (e *Engine) forwardMultipleChecks(ctx context.Context, symbol string, quote domain.Quote, vctx valuation.Context, fb *fallbacks) (float64, float64, *domain.BlendedForecast) {
	var pePrice float64
	var epsBlend *domain.BlendedForecast

	eps, err := e.market.GetFinancials(ctx, symbol, domain.MetricEPS, historyPeriods)
	if err != nil {
		e.logSoftFailure(symbol, "eps history", err)
		fb.add("eps history unavailable, forward P/E check skipped")
	} else if price, blend, err := e.valuator.ForwardPESharePrice(eps, vctx); err != nil {
		e.logSoftFailure(symbol, "forward p/e", err)
		fb.add("forward P/E check failed: %v", err)
	} else {
		pePrice = price
		epsBlend = &blend
	}

	var psRatio float64
	if quote.MarketCap <= 0 {
		fb.add("market cap unavailable, forward P/S check skipped")
		return pePrice, 0, epsBlend
	}

	revenue, err := e.market.GetFinancials(ctx, symbol, domain.MetricRevenue, historyPeriods)
	if err != nil {
		e.logSoftFailure(symbol, "revenue history", err)
		fb.add("revenue history unavailable, forward P/S check skipped")
	} else if blend, err := e.valuator.ForecastCompanyRevenue(revenue, vctx); err != nil {
		e.logSoftFailure(symbol, "revenue forecast", err)
		fb.add("forward P/S check failed: %v", err)
	} else if ratio, err := valuation.ForwardPS(quote.MarketCap, blend.Estimate); err != nil {
		e.logSoftFailure(symbol, "forward p/s", err)
		fb.add("forward P/S check failed: %v", err)
	} else {
		psRatio = ratio
	}
	return pePrice, psRatio, epsBlend
}

const (
	priceHistoryDays = 252
	volatilityWindow = 30
)

// priceHistoryProvider is the optional capability of market-data sources
// that can serve daily closing prices.
type priceHistoryProvider interface {
	GetDailyCloses(ctx context.Context, symbol string, days int) ([]float64, error)
}

// realizedVolatility annualizes the subject's recent share-price volatility
// as market context in the report. Zero when the source has no price history.
func (e *Engine) realizedVolatility(ctx context.Context, symbol string) float64 {
	source, ok := e.market.(priceHistoryProvider)
	if !ok {
		return 0
	}

	closes, err := source.GetDailyCloses(ctx, symbol, priceHistoryDays)
	if err != nil {
		e.logSoftFailure(symbol, "price history", err)
		return 0
	}
	if vol := formulas.HistoricalVolatility(closes, volatilityWindow); vol != nil {
		return *vol
	}
	return 0
}

// confidenceFrom maps simulation dispersion to a 0-100 confidence score: the
// tighter the target-price distribution relative to its mean, the higher the
// confidence. No usable dispersion yields the neutral default.
func confidenceFrom(summary domain.SimulationSummary) float64 {
	if summary.Trials == 0 || summary.Mean <= 0 {
		return fallbackConfidence
	}
	cv := summary.StdDev / summary.Mean
	return formulas.Clamp(100*(1-cv), 0, 100)
}

func (e *Engine) logSoftFailure(symbol, what string, err error) {
	e.log.Warn().Str("symbol", symbol).Err(err).Msgf("Failed to fetch %s, using fallback", what)
}

// DefaultForecastWeights exposes the ensemble's standard revenue blend for
// callers that want to tweak a single weight.
func DefaultForecastWeights() map[string]float64 {
	return forecast.RevenueWeights()
}
