package options

import (
	"math"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/appraiser/internal/domain"
)

func newTestPricer() *Pricer {
	return NewPricer(0.045, 0.065, domain.StandardAssumptions(), zerolog.Nop())
}

func TestBlackScholesCall_KnownValue(t *testing.T) {
	// Standard textbook case: S=100, K=100, T=1, r=0.05, sigma=0.3 -> ~14.23.
	price := BlackScholesCall(100, 100, 1, 0.05, 0.3)
	assert.InDelta(t, 14.231, price, 0.01)
}

func TestBlackScholesCall_Boundaries(t *testing.T) {
	t.Run("T approaching zero converges to intrinsic value", func(t *testing.T) {
		assert.InDelta(t, 10.0, BlackScholesCall(110, 100, 1e-9, 0.05, 0.3), 1e-3)
		assert.InDelta(t, 0.0, BlackScholesCall(90, 100, 1e-9, 0.05, 0.3), 1e-3)
		assert.Equal(t, 10.0, BlackScholesCall(110, 100, 0, 0.05, 0.3))
	})

	t.Run("sigma approaching zero converges to discounted forward", func(t *testing.T) {
		expected := math.Max(110-100*math.Exp(-0.05), 0)
		assert.InDelta(t, expected, BlackScholesCall(110, 100, 1, 0.05, 1e-9), 1e-3)
		assert.Equal(t, expected, BlackScholesCall(110, 100, 1, 0.05, 0))
	})
}

func TestBlackScholesPutCallParity(t *testing.T) {
	s, k, tt, r, sigma := 105.0, 95.0, 2.0, 0.04, 0.25
	call := BlackScholesCall(s, k, tt, r, sigma)
	put := BlackScholesPut(s, k, tt, r, sigma)
	// C - P = S - K*e^(-rT)
	assert.InDelta(t, s-k*math.Exp(-r*tt), call-put, 1e-9)
}

func TestMonteCarloConvergesToBlackScholes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Monte Carlo convergence test in short mode")
	}

	s, k, tt, r, sigma := 100.0, 100.0, 1.0, 0.05, 0.3
	analytical := BlackScholesCall(s, k, tt, r, sigma)

	estimated, err := monteCarloCall(s, k, tt, r, sigma, MonteCarloConfig{
		Trials: 250_000,
		Steps:  2,
		Rand:   rand.New(rand.NewSource(42)),
	})

	require.NoError(t, err)
	assert.InEpsilon(t, analytical, estimated, 0.01, "Monte Carlo price should be within 1%% of closed form")
}

func TestMonteCarlo_RequiresExplicitGenerator(t *testing.T) {
	_, err := monteCarloCall(100, 100, 1, 0.05, 0.3, MonteCarloConfig{Trials: 10})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestMonteCarlo_Deterministic(t *testing.T) {
	cfg := func() MonteCarloConfig {
		return MonteCarloConfig{Trials: 1000, Steps: 12, Rand: rand.New(rand.NewSource(7))}
	}

	first, err := monteCarloCall(100, 100, 1, 0.05, 0.3, cfg())
	require.NoError(t, err)
	second, err := monteCarloCall(100, 100, 1, 0.05, 0.3, cfg())
	require.NoError(t, err)

	assert.Equal(t, first, second, "same seed must reproduce the same price")
}

func TestProjectVolatility(t *testing.T) {
	defaults := domain.StandardAssumptions()

	tests := []struct {
		name     string
		project  domain.ProjectOption
		expected float64
	}{
		{
			"high competition, advanced tech",
			domain.ProjectOption{
				Competition:   domain.CompetitionHigh,
				Regulatory:    domain.RegulatoryMedium,
				TechReadiness: domain.TechAdvanced,
			},
			0.3 * 1.3 * 1.0 * 0.9,
		},
		{
			"clamped at upper bound",
			domain.ProjectOption{
				Competition:   domain.CompetitionHigh,
				Regulatory:    domain.RegulatoryVeryHigh,
				TechReadiness: domain.TechExperimental,
			},
			0.8,
		},
		{
			"clamped at lower bound",
			domain.ProjectOption{
				Competition:   domain.CompetitionLow,
				Regulatory:    domain.RegulatoryLow,
				TechReadiness: domain.TechMature,
			},
			0.3 * 0.8 * 0.7 * 0.7, // 0.1176, above the floor
		},
		{
			"unknown tags use neutral multipliers",
			domain.ProjectOption{},
			0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ProjectVolatility(tt.project, defaults), 1e-9)
		})
	}
}

func TestRiskAdjustedRate(t *testing.T) {
	project := domain.ProjectOption{
		Competition:   domain.CompetitionHigh,
		Regulatory:    domain.RegulatoryMedium,
		TechReadiness: domain.TechAdvanced,
	}
	// 0.045 + 0.065 + 0.06 + 0.03 + 0.03
	assert.InDelta(t, 0.23, RiskAdjustedRate(project, 0.045, 0.065), 1e-9)

	// Unknown tags each contribute the medium spread.
	assert.InDelta(t, 0.11+3*0.03, RiskAdjustedRate(domain.ProjectOption{}, 0.045, 0.065), 1e-9)
}

func TestPricer_Value(t *testing.T) {
	pricer := newTestPricer()
	project := domain.ProjectOption{
		Name:               "autonomy",
		CurrentValue:       10e9,
		InvestmentCost:     3e9,
		TimeToMaturity:     5,
		SuccessProbability: 0.35,
		Competition:        domain.CompetitionHigh,
		Regulatory:         domain.RegulatoryMedium,
		TechReadiness:      domain.TechAdvanced,
	}

	valuation, err := pricer.Value(project)
	require.NoError(t, err)

	sigma := ProjectVolatility(project, domain.StandardAssumptions())
	rate := RiskAdjustedRate(project, 0.045, 0.065)
	expected := BlackScholesCall(10e9, 3e9, 5, rate, sigma)

	assert.InDelta(t, expected, valuation.OptionValue, 1)
	assert.InDelta(t, expected*0.35, valuation.RealOptionValue, 1)
	assert.Equal(t, sigma, valuation.Volatility)
	assert.Equal(t, rate, valuation.RiskAdjustedRate)
}

func TestPricer_ValueRejectsInvalidProjects(t *testing.T) {
	pricer := newTestPricer()

	tests := []struct {
		name    string
		project domain.ProjectOption
	}{
		{"zero current value", domain.ProjectOption{InvestmentCost: 1, TimeToMaturity: 1, SuccessProbability: 0.5}},
		{"zero cost", domain.ProjectOption{CurrentValue: 1, TimeToMaturity: 1, SuccessProbability: 0.5}},
		{"zero maturity", domain.ProjectOption{CurrentValue: 1, InvestmentCost: 1, SuccessProbability: 0.5}},
		{"probability above one", domain.ProjectOption{CurrentValue: 1, InvestmentCost: 1, TimeToMaturity: 1, SuccessProbability: 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pricer.Value(tt.project)
			assert.ErrorIs(t, err, domain.ErrInvalidAssumption)
		})
	}
}

func TestPricer_CompoundValue(t *testing.T) {
	pricer := newTestPricer()
	project := domain.ProjectOption{
		Name:               "staged",
		CurrentValue:       5e9,
		SuccessProbability: 0.3,
		Competition:        domain.CompetitionMedium,
		Regulatory:         domain.RegulatoryMedium,
		TechReadiness:      domain.TechIntermediate,
		Stages: []domain.InvestmentStage{
			{Cost: 1e9, Duration: 2, SuccessProbability: 0.6},
			{Cost: 2e9, Duration: 3, SuccessProbability: 0.4},
		},
	}

	valuation, err := pricer.Value(project)
	require.NoError(t, err)

	require.Len(t, valuation.StageValues, 2)
	assert.InDelta(t, valuation.StageValues[0]+valuation.StageValues[1], valuation.RealOptionValue, 1e-6)
	// Later stages are priced on the previous stage's real-option value, so
	// each stage value must be positive but below its underlying.
	assert.Greater(t, valuation.StageValues[0], 0.0)
	assert.Greater(t, valuation.StageValues[1], 0.0)
	assert.Less(t, valuation.StageValues[1], valuation.StageValues[0])
}

func TestPricer_CompoundValueRejectsBadStage(t *testing.T) {
	pricer := newTestPricer()
	project := domain.ProjectOption{
		Name:               "staged",
		CurrentValue:       5e9,
		SuccessProbability: 0.3,
		Stages:             []domain.InvestmentStage{{Cost: -1, Duration: 2, SuccessProbability: 0.6}},
	}

	_, err := pricer.Value(project)
	assert.ErrorIs(t, err, domain.ErrInvalidAssumption)
}
