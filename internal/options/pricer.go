package options

import (
	"github.com/rs/zerolog"

	"github.com/aristath/appraiser/internal/domain"
)

// Valuation is the priced value of a single project plus its derived
// parameters, surfaced as diagnostics in the valuation report.
type Valuation struct {
	OptionValue        float64 // raw Black-Scholes (or MC) call value
	RealOptionValue    float64 // option value × success probability
	Volatility         float64
	RiskAdjustedRate   float64
	SuccessProbability float64
	StageValues        []float64 // populated for staged projects
}

// Pricer values venture projects as real options.
type Pricer struct {
	riskFreeRate      float64
	marketRiskPremium float64
	defaults          domain.DefaultAssumptions
	log               zerolog.Logger
}

// NewPricer creates a real-option pricer with explicit market parameters.
func NewPricer(riskFreeRate, marketRiskPremium float64, defaults domain.DefaultAssumptions, log zerolog.Logger) *Pricer {
	return &Pricer{
		riskFreeRate:      riskFreeRate,
		marketRiskPremium: marketRiskPremium,
		defaults:          defaults,
		log:               log.With().Str("component", "option_pricer").Logger(),
	}
}

// Value prices a project with the closed-form Black-Scholes model. Staged
// projects are priced as compound options.
func (p *Pricer) Value(project domain.ProjectOption) (Valuation, error) {
	if err := validateProject(project); err != nil {
		return Valuation{}, err
	}
	if len(project.Stages) > 0 {
		return p.compoundValue(project)
	}
	return p.singleStageValue(project, project.CurrentValue, project.InvestmentCost,
		project.TimeToMaturity, project.SuccessProbability), nil
}

// MonteCarloValue prices a project by GBM simulation with the same σ and r
// derivation as the closed-form path. It converges to Value as the trial
// count grows.
func (p *Pricer) MonteCarloValue(project domain.ProjectOption, cfg MonteCarloConfig) (Valuation, error) {
	if err := validateProject(project); err != nil {
		return Valuation{}, err
	}

	sigma := ProjectVolatility(project, p.defaults)
	rate := RiskAdjustedRate(project, p.riskFreeRate, p.marketRiskPremium)

	optionValue, err := monteCarloCall(project.CurrentValue, project.InvestmentCost,
		project.TimeToMaturity, rate, sigma, cfg)
	if err != nil {
		return Valuation{}, err
	}

	return Valuation{
		OptionValue:        optionValue,
		RealOptionValue:    optionValue * project.SuccessProbability,
		Volatility:         sigma,
		RiskAdjustedRate:   rate,
		SuccessProbability: project.SuccessProbability,
	}, nil
}

func (p *Pricer) singleStageValue(project domain.ProjectOption, s, k, t, probability float64) Valuation {
	sigma := ProjectVolatility(project, p.defaults)
	rate := RiskAdjustedRate(project, p.riskFreeRate, p.marketRiskPremium)
	optionValue := BlackScholesCall(s, k, t, rate, sigma)

	p.log.Debug().
		Str("project", project.Name).
		Float64("option_value", optionValue).
		Float64("sigma", sigma).
		Float64("rate", rate).
		Msg("Priced real option")

	return Valuation{
		OptionValue:        optionValue,
		RealOptionValue:    optionValue * probability,
		Volatility:         sigma,
		RiskAdjustedRate:   rate,
		SuccessProbability: probability,
	}
}

// compoundValue prices a sequentially staged investment: each stage is an
// option whose underlying is the previous stage's real-option value, and the
// total is the sum of stage values.
func (p *Pricer) compoundValue(project domain.ProjectOption) (Valuation, error) {
	underlying := project.CurrentValue
	stageValues := make([]float64, 0, len(project.Stages))
	total := 0.0
	var last Valuation

	for i, stage := range project.Stages {
		if stage.Cost <= 0 || stage.Duration <= 0 || stage.SuccessProbability < 0 || stage.SuccessProbability > 1 {
			return Valuation{}, domain.InvalidAssumptionf(
				"project %q stage %d has invalid parameters (cost=%.2f duration=%.2f probability=%.2f)",
				project.Name, i+1, stage.Cost, stage.Duration, stage.SuccessProbability)
		}

		last = p.singleStageValue(project, underlying, stage.Cost, stage.Duration, stage.SuccessProbability)
		stageValues = append(stageValues, last.RealOptionValue)
		total += last.RealOptionValue
		underlying = last.RealOptionValue
	}

	return Valuation{
		OptionValue:        total,
		RealOptionValue:    total,
		Volatility:         last.Volatility,
		RiskAdjustedRate:   last.RiskAdjustedRate,
		SuccessProbability: project.SuccessProbability,
		StageValues:        stageValues,
	}, nil
}

func validateProject(project domain.ProjectOption) error {
	switch {
	case project.CurrentValue <= 0:
		return domain.InvalidAssumptionf("project %q has non-positive current value %.2f", project.Name, project.CurrentValue)
	case project.InvestmentCost <= 0 && len(project.Stages) == 0:
		return domain.InvalidAssumptionf("project %q has non-positive investment cost %.2f", project.Name, project.InvestmentCost)
	case project.TimeToMaturity <= 0 && len(project.Stages) == 0:
		return domain.InvalidAssumptionf("project %q has non-positive time to maturity %.2f", project.Name, project.TimeToMaturity)
	case project.SuccessProbability < 0 || project.SuccessProbability > 1:
		return domain.InvalidAssumptionf("project %q success probability %.2f outside [0,1]", project.Name, project.SuccessProbability)
	}
	return nil
}
