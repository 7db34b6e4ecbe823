package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/appraiser/internal/database"
	"github.com/aristath/appraiser/internal/domain"
	"github.com/aristath/appraiser/internal/forecast"
	"github.com/aristath/appraiser/internal/options"
	"github.com/aristath/appraiser/internal/recommendation"
	"github.com/aristath/appraiser/internal/simulation"
	"github.com/aristath/appraiser/internal/valuation"
)

// stubMarket returns canned data; individual fetches can be failed to test
// fallback behavior.
type stubMarket struct {
	failQuote      bool
	failFinancials bool
	failConsensus  bool
}

func (m *stubMarket) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	if m.failQuote {
		return domain.Quote{}, domain.DataUnavailablef("quote offline")
	}
	return domain.Quote{Symbol: symbol, Price: 150, MarketCap: 1.9e12, SharesOutstanding: 13e9, PERatio: 24, Beta: 1.05}, nil
}

func (m *stubMarket) GetFinancials(ctx context.Context, symbol string, metric domain.Metric, periods int) (domain.HistoricalSeries, error) {
	if m.failFinancials {
		return nil, domain.DataUnavailablef("financials offline")
	}
	switch metric {
	case domain.MetricDebt:
		return domain.HistoricalSeries{{Period: 2023, Value: 30e9}}, nil
	case domain.MetricCash:
		return domain.HistoricalSeries{{Period: 2023, Value: 110e9}}, nil
	case domain.MetricFreeCashFlow:
		return domain.HistoricalSeries{
			{Period: 2021, Value: 60e9}, {Period: 2022, Value: 65e9}, {Period: 2023, Value: 70e9},
		}, nil
	case domain.MetricEPS:
		return domain.HistoricalSeries{
			{Period: 2021, Value: 4.6}, {Period: 2022, Value: 5.1}, {Period: 2023, Value: 5.8},
		}, nil
	case domain.MetricRevenue:
		return domain.HistoricalSeries{
			{Period: 2021, Value: 257e9}, {Period: 2022, Value: 282e9}, {Period: 2023, Value: 307e9},
		}, nil
	}
	return nil, domain.DataUnavailablef("no %s data", metric)
}

func (m *stubMarket) GetPeerFundamentals(ctx context.Context, symbols []string) ([]domain.PeerFundamentals, error) {
	return nil, domain.DataUnavailablef("peers offline")
}

func (m *stubMarket) GetConsensus(ctx context.Context, symbol string, metric domain.Metric) (float64, error) {
	if m.failConsensus {
		return 0, domain.DataUnavailablef("consensus offline")
	}
	return 340e9, nil
}

func newTestEngine(market domain.MarketData) *Engine {
	defaults := domain.StandardAssumptions()
	log := zerolog.Nop()
	ensemble := forecast.NewStandardEnsemble(defaults, log)
	pricer := options.NewPricer(0.045, 0.065, defaults, log)
	valuator := valuation.NewValuator(ensemble, pricer, defaults, log)
	aggregator := valuation.NewAggregator(log)
	sensitivity := simulation.NewSensitivity(valuator, aggregator, log)
	recommender := recommendation.NewEngine(log)
	return New(market, valuator, aggregator, sensitivity, recommender, defaults, 0.045, 0.065, log)
}

func testSegments() []domain.Segment {
	return []domain.Segment{
		{
			ID:      "search",
			Method:  domain.MethodEarningsMultiple,
			Revenue: domain.HistoricalSeries{{Period: 2021, Value: 230e9}, {Period: 2022, Value: 250e9}, {Period: 2023, Value: 280e9}},
			OperatingIncome: domain.HistoricalSeries{
				{Period: 2021, Value: 70e9}, {Period: 2022, Value: 75e9}, {Period: 2023, Value: 85e9},
			},
		},
		{
			ID:      "cloud",
			Method:  domain.MethodEnterpriseMultiple,
			Revenue: domain.HistoricalSeries{{Period: 2021, Value: 19e9}, {Period: 2022, Value: 26e9}, {Period: 2023, Value: 33e9}},
		},
		{
			ID:     "bets",
			Method: domain.MethodRealOption,
			Projects: []domain.ProjectOption{{
				Name:               "waymo",
				CurrentValue:       30e9,
				InvestmentCost:     10e9,
				TimeToMaturity:     8,
				SuccessProbability: 0.3,
				Competition:        domain.CompetitionHigh,
				Regulatory:         domain.RegulatoryHigh,
				TechReadiness:      domain.TechIntermediate,
			}},
		},
	}
}

func TestValuate_FullPipeline(t *testing.T) {
	e := newTestEngine(&stubMarket{})

	report, err := e.Valuate(context.Background(), "GOOGL", testSegments(), Options{
		MonteCarloTrials: 100,
		RandomSeed:       42,
	})
	require.NoError(t, err)

	assert.Equal(t, "GOOGL", report.Symbol)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, 150.0, report.CurrentPrice)
	assert.Greater(t, report.SOTP.TargetPrice, 0.0)
	assert.Equal(t, 100, report.Simulation.Trials)
	assert.Greater(t, report.DCFSharePrice, 0.0)
	assert.NotEmpty(t, report.Recommendation.Label)
	// Net cash position: debt 30e9 - cash 110e9.
	assert.Equal(t, -80e9, report.SOTP.NetDebt)

	// Company-level cross-checks ride along with the DCF figure.
	assert.Greater(t, report.ForwardPEPrice, 0.0)
	assert.Greater(t, report.ForwardPSRatio, 0.0)
	require.Contains(t, report.Forecasts, "consolidated_eps")
	assert.Equal(t, domain.MetricEPS, report.Forecasts["consolidated_eps"].Metric)
}

func TestValuate_ForwardChecksDegradeWithoutHistory(t *testing.T) {
	e := newTestEngine(&stubMarket{failFinancials: true})

	report, err := e.Valuate(context.Background(), "GOOGL", testSegments(), Options{
		MonteCarloTrials: 50,
		RandomSeed:       3,
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.ForwardPEPrice)
	assert.Equal(t, 0.0, report.ForwardPSRatio)
	assert.NotContains(t, report.Forecasts, "consolidated_eps")
	assert.Contains(t, report.FallbackNotes, "eps history unavailable, forward P/E check skipped")
}

func TestValuate_DeterministicForFixedSeed(t *testing.T) {
	e := newTestEngine(&stubMarket{})
	opts := Options{MonteCarloTrials: 200, RandomSeed: 7}

	first, err := e.Valuate(context.Background(), "GOOGL", testSegments(), opts)
	require.NoError(t, err)
	second, err := e.Valuate(context.Background(), "GOOGL", testSegments(), opts)
	require.NoError(t, err)

	assert.Equal(t, first.SOTP.TargetPrice, second.SOTP.TargetPrice)
	assert.Equal(t, first.Simulation, second.Simulation)
}

func TestValuate_DegradesOnMarketDataFailure(t *testing.T) {
	e := newTestEngine(&stubMarket{failQuote: true, failFinancials: true, failConsensus: true})

	report, err := e.Valuate(context.Background(), "GOOGL", testSegments(), Options{
		MonteCarloTrials: 50,
		RandomSeed:       1,
	})
	require.NoError(t, err, "soft data failures must not fail the valuation")

	assert.True(t, report.UsedFallback)
	assert.NotEmpty(t, report.FallbackNotes)
	assert.Equal(t, 13e9, report.SOTP.SharesOutstanding, "default share count substituted")
	assert.Equal(t, 0.0, report.SOTP.NetDebt)
	assert.Equal(t, domain.CategoryNeutral, report.Recommendation.Category, "no price means no actionable signal")
}

func TestValuate_RejectsInvalidConfiguration(t *testing.T) {
	e := newTestEngine(&stubMarket{})

	_, err := e.Valuate(context.Background(), "GOOGL", nil, Options{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	segments := testSegments()
	segments[0].Method = ""
	_, err = e.Valuate(context.Background(), "GOOGL", segments, Options{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestConfidenceFrom(t *testing.T) {
	assert.Equal(t, 80.0, confidenceFrom(domain.SimulationSummary{}))
	assert.InDelta(t, 90.0, confidenceFrom(domain.SimulationSummary{Trials: 100, Mean: 100, StdDev: 10}), 1e-9)
	assert.Equal(t, 0.0, confidenceFrom(domain.SimulationSummary{Trials: 100, Mean: 100, StdDev: 150}))
}

func TestReportStore_SaveAndLatest(t *testing.T) {
	db, err := database.New(database.Config{
		Path:    "file:reportstore?mode=memory&cache=shared",
		Profile: database.ProfileStandard,
		Name:    "reports",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	store := NewReportStore(db)
	ctx := context.Background()

	_, err = store.Latest(ctx, "GOOGL")
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	older := domain.Report{ID: "r1", Symbol: "GOOGL", GeneratedAt: time.Now().Add(-time.Hour).UTC(), CurrentPrice: 140}
	newer := domain.Report{ID: "r2", Symbol: "GOOGL", GeneratedAt: time.Now().UTC(), CurrentPrice: 150}
	require.NoError(t, store.Save(ctx, older))
	require.NoError(t, store.Save(ctx, newer))

	latest, err := store.Latest(ctx, "GOOGL")
	require.NoError(t, err)
	assert.Equal(t, "r2", latest.ID)
	assert.Equal(t, 150.0, latest.CurrentPrice)
}
