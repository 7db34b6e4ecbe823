package forecast

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/appraiser/internal/domain"
)

// weightTolerance is the allowed deviation of the weight sum from 1.
const weightTolerance = 1e-9

// RevenueWeights is the default blend for revenue forecasts.
func RevenueWeights() map[string]float64 {
	return map[string]float64{
		ModelTrend:          0.25,
		ModelTimeSeries:     0.25,
		ModelCrossSectional: 0.25,
		ModelConsensus:      0.25,
	}
}

// EPSWeights is the default blend for EPS forecasts, leaning on the
// time-series and cross-sectional models. The consensus anchor is reserved
// for revenue.
func EPSWeights() map[string]float64 {
	return map[string]float64{
		ModelTrend:          0.2,
		ModelTimeSeries:     0.4,
		ModelCrossSectional: 0.4,
	}
}

// Ensemble blends the registered sub-models with caller-supplied weights.
type Ensemble struct {
	models   map[string]Model
	defaults domain.DefaultAssumptions
	log      zerolog.Logger
}

// NewEnsemble builds an ensemble over an explicit set of sub-models. Models
// are injected rather than discovered so availability is a construction-time
// decision, not import-time global state.
func NewEnsemble(models []Model, defaults domain.DefaultAssumptions, log zerolog.Logger) *Ensemble {
	byName := make(map[string]Model, len(models))
	for _, m := range models {
		byName[m.Name()] = m
	}
	return &Ensemble{
		models:   byName,
		defaults: defaults,
		log:      log.With().Str("component", "forecast_ensemble").Logger(),
	}
}

// NewStandardEnsemble wires the four standard sub-models.
func NewStandardEnsemble(defaults domain.DefaultAssumptions, log zerolog.Logger) *Ensemble {
	return NewEnsemble([]Model{
		TrendModel{},
		ARIMAModel{},
		CrossSectionalModel{},
		ConsensusModel{},
	}, defaults, log)
}

// Blend runs every weighted sub-model and combines the estimates.
//
// Weight validation failures are ConfigurationError and reject the request
// before any computation. Individual model failures are soft: the failed
// model's estimate is replaced by a documented default, the substitution is
// logged, and blending continues with the remaining values.
func (e *Ensemble) Blend(in Input, weights map[string]float64) (domain.BlendedForecast, error) {
	if err := e.validateWeights(weights); err != nil {
		return domain.BlendedForecast{}, err
	}

	// Deterministic model order regardless of map iteration.
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	blend := domain.BlendedForecast{
		Metric: in.Metric,
		Models: make([]domain.ModelDiagnostic, 0, len(names)),
	}

	for _, name := range names {
		weight := weights[name]
		diag := domain.ModelDiagnostic{Model: name, Weight: weight}

		estimate, err := e.models[name].Estimate(in)
		if err != nil {
			estimate = e.fallbackEstimate(name, in)
			diag.Failed = true
			diag.Fallback = true
			diag.Note = err.Error()
			e.log.Warn().
				Str("model", name).
				Str("metric", string(in.Metric)).
				Float64("fallback", estimate).
				Err(err).
				Msg("Forecast model failed, substituting default estimate")
		}

		diag.Estimate = estimate
		blend.Models = append(blend.Models, diag)
		blend.Estimate += weight * estimate
	}

	return blend, nil
}

func (e *Ensemble) validateWeights(weights map[string]float64) error {
	if len(weights) == 0 {
		return domain.Configurationf("forecast weights are empty")
	}

	sum := 0.0
	for name, w := range weights {
		if _, ok := e.models[name]; !ok {
			return domain.Configurationf("unknown forecast model %q", name)
		}
		if w < 0 {
			return domain.Configurationf("forecast weight for %q is negative (%.4f)", name, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance {
		return domain.Configurationf("forecast weights sum to %.6f, expected 1", sum)
	}
	return nil
}

// fallbackEstimate is the documented per-model default: the analyst fallback
// constant for the consensus model, otherwise the last observed value of the
// series (or the constant again when no history exists at all).
func (e *Ensemble) fallbackEstimate(model string, in Input) float64 {
	if model == ModelConsensus {
		return e.defaults.ConsensusFor(in.Metric)
	}
	if last, ok := in.Series.Last(); ok {
		return last
	}
	return e.defaults.ConsensusFor(in.Metric)
}
