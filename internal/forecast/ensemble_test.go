package forecast

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/appraiser/internal/domain"
)

// stubModel returns a fixed estimate or error.
type stubModel struct {
	name     string
	estimate float64
	err      error
}

func (m stubModel) Name() string                    { return m.name }
func (m stubModel) Estimate(Input) (float64, error) { return m.estimate, m.err }

func newTestEnsemble(models ...Model) *Ensemble {
	return NewEnsemble(models, domain.StandardAssumptions(), zerolog.Nop())
}

func TestBlend_EqualWeights(t *testing.T) {
	ensemble := newTestEnsemble(
		stubModel{name: "a", estimate: 100},
		stubModel{name: "b", estimate: 200},
		stubModel{name: "c", estimate: 300},
		stubModel{name: "d", estimate: 400},
	)

	blend, err := ensemble.Blend(Input{Metric: domain.MetricRevenue}, map[string]float64{
		"a": 0.25, "b": 0.25, "c": 0.25, "d": 0.25,
	})

	require.NoError(t, err)
	assert.InDelta(t, 250.0, blend.Estimate, 1e-9)
	assert.Len(t, blend.Models, 4)
	assert.False(t, blend.UsedFallback())
}

func TestBlend_WeightValidation(t *testing.T) {
	ensemble := newTestEnsemble(stubModel{name: "a", estimate: 1}, stubModel{name: "b", estimate: 2})

	tests := []struct {
		name    string
		weights map[string]float64
	}{
		{"empty weights", map[string]float64{}},
		{"sum not one", map[string]float64{"a": 0.5, "b": 0.4}},
		{"negative weight", map[string]float64{"a": 1.5, "b": -0.5}},
		{"unknown model", map[string]float64{"a": 0.5, "nope": 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ensemble.Blend(Input{}, tt.weights)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestBlend_FailedModelSubstitutesDefault(t *testing.T) {
	series := domain.HistoricalSeries{{Period: 2022, Value: 90}, {Period: 2023, Value: 110}}
	ensemble := newTestEnsemble(
		stubModel{name: "ok", estimate: 200},
		stubModel{name: "broken", err: errors.New("fit failed")},
	)

	blend, err := ensemble.Blend(Input{Metric: domain.MetricRevenue, Series: series}, map[string]float64{
		"ok": 0.5, "broken": 0.5,
	})

	require.NoError(t, err, "ensemble must not fail because one sub-model failed")
	// Broken model falls back to the last observed value (110).
	assert.InDelta(t, 0.5*200+0.5*110, blend.Estimate, 1e-9)
	assert.True(t, blend.UsedFallback())

	for _, diag := range blend.Models {
		if diag.Model == "broken" {
			assert.True(t, diag.Failed)
			assert.True(t, diag.Fallback)
			assert.InDelta(t, 110.0, diag.Estimate, 1e-9)
		}
	}
}

func TestBlend_ConsensusFallbackConstant(t *testing.T) {
	defaults := domain.StandardAssumptions()
	ensemble := NewEnsemble([]Model{ConsensusModel{}}, defaults, zerolog.Nop())

	blend, err := ensemble.Blend(Input{Metric: domain.MetricRevenue}, map[string]float64{
		ModelConsensus: 1.0,
	})

	require.NoError(t, err)
	assert.InDelta(t, defaults.ConsensusRevenue, blend.Estimate, 1e-9)
	assert.True(t, blend.UsedFallback())
}

func TestTrendModel_LinearSeries(t *testing.T) {
	// Perfectly linear history: 100, 110, 120 -> next is 130.
	series := domain.HistoricalSeries{
		{Period: 2021, Value: 100},
		{Period: 2022, Value: 110},
		{Period: 2023, Value: 120},
	}

	estimate, err := TrendModel{}.Estimate(Input{Series: series})

	require.NoError(t, err)
	assert.InDelta(t, 130.0, estimate, 1e-9)
}

func TestTrendModel_InsufficientData(t *testing.T) {
	_, err := TrendModel{}.Estimate(Input{Series: domain.HistoricalSeries{{Period: 2023, Value: 5}}})
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestARIMAModel_RequiresThreeObservations(t *testing.T) {
	series := domain.HistoricalSeries{{Period: 2022, Value: 1}, {Period: 2023, Value: 2}}
	_, err := ARIMAModel{}.Estimate(Input{Series: series})
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestARIMAModel_ConstantGrowthDrift(t *testing.T) {
	// Constant differences degrade to pure drift: +10 per period.
	series := domain.HistoricalSeries{
		{Period: 2021, Value: 100},
		{Period: 2022, Value: 110},
		{Period: 2023, Value: 120},
	}

	estimate, err := ARIMAModel{}.Estimate(Input{Series: series})

	require.NoError(t, err)
	assert.InDelta(t, 130.0, estimate, 1e-6)
}

func TestCrossSectionalModel_RecoversLinearRelation(t *testing.T) {
	// Peers generated from eps = 2 + 10*gm + 5*nm + 3*rg exactly.
	coeffs := func(gm, nm, rg float64) float64 { return 2 + 10*gm + 5*nm + 3*rg }
	peers := []domain.PeerFundamentals{}
	grid := [][3]float64{
		{0.55, 0.20, 0.10},
		{0.60, 0.25, 0.05},
		{0.40, 0.10, 0.20},
		{0.70, 0.30, 0.15},
		{0.50, 0.15, 0.08},
	}
	for i, g := range grid {
		gm, nm, rg := g[0], g[1], g[2]
		eps := coeffs(gm, nm, rg)
		peers = append(peers, domain.PeerFundamentals{
			Symbol:        string(rune('A' + i)),
			GrossMargin:   &gm,
			NetMargin:     &nm,
			RevenueGrowth: &rg,
			EPS:           &eps,
		})
	}

	estimate, err := CrossSectionalModel{}.Estimate(Input{
		Metric:  domain.MetricEPS,
		Peers:   peers,
		Subject: domain.SubjectFeatures{GrossMargin: 0.58, NetMargin: 0.22, RevenueGrowth: 0.12},
	})

	require.NoError(t, err)
	assert.InDelta(t, coeffs(0.58, 0.22, 0.12), estimate, 1e-6)
}

func TestCrossSectionalModel_DropsIncompleteRows(t *testing.T) {
	gm := 0.5
	peers := []domain.PeerFundamentals{
		{Symbol: "X", GrossMargin: &gm}, // missing everything else
		{Symbol: "Y"},
	}

	_, err := CrossSectionalModel{}.Estimate(Input{Metric: domain.MetricEPS, Peers: peers})
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestConsensusModel(t *testing.T) {
	value := 42.0
	estimate, err := ConsensusModel{}.Estimate(Input{Consensus: &value})
	require.NoError(t, err)
	assert.Equal(t, 42.0, estimate)

	_, err = ConsensusModel{}.Estimate(Input{})
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}
