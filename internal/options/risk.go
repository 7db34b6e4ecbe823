// Package options prices speculative venture projects as real options, using
// Black-Scholes and geometric-Brownian-motion Monte Carlo simulation. The
// qualitative risk tags on a project map deterministically to volatility and
// a risk-adjusted discount rate.
package options

import (
	"github.com/aristath/appraiser/internal/domain"
	"github.com/aristath/appraiser/pkg/formulas"
)

// Volatility multipliers per risk tag. Unknown tags multiply by 1.
var (
	competitionVolMultipliers = map[domain.CompetitionLevel]float64{
		domain.CompetitionLow:    0.8,
		domain.CompetitionMedium: 1.0,
		domain.CompetitionHigh:   1.3,
	}
	regulatoryVolMultipliers = map[domain.RegulatoryRisk]float64{
		domain.RegulatoryLow:      0.7,
		domain.RegulatoryMedium:   1.0,
		domain.RegulatoryHigh:     1.4,
		domain.RegulatoryVeryHigh: 1.6,
	}
	technologyVolMultipliers = map[domain.TechnologyReadiness]float64{
		domain.TechEarlyStage:   1.5,
		domain.TechIntermediate: 1.2,
		domain.TechAdvanced:     0.9,
		domain.TechMature:       0.7,
		domain.TechExperimental: 1.8,
	}
)

// Discount-rate spreads per risk tag, added on top of the market base rate.
// Unknown tags contribute the medium spread (0.03).
var (
	competitionRateSpreads = map[domain.CompetitionLevel]float64{
		domain.CompetitionLow:    0.02,
		domain.CompetitionMedium: 0.04,
		domain.CompetitionHigh:   0.06,
	}
	regulatoryRateSpreads = map[domain.RegulatoryRisk]float64{
		domain.RegulatoryLow:      0.01,
		domain.RegulatoryMedium:   0.03,
		domain.RegulatoryHigh:     0.05,
		domain.RegulatoryVeryHigh: 0.07,
	}
	technologyRateSpreads = map[domain.TechnologyReadiness]float64{
		domain.TechEarlyStage:   0.08,
		domain.TechIntermediate: 0.05,
		domain.TechAdvanced:     0.03,
		domain.TechMature:       0.02,
		domain.TechExperimental: 0.10,
	}
)

const unknownTagSpread = 0.03

// ProjectVolatility derives sigma from the project's risk tags: a base
// volatility scaled by three independent multipliers, clamped to the
// configured band.
func ProjectVolatility(p domain.ProjectOption, defaults domain.DefaultAssumptions) float64 {
	sigma := defaults.BaseVolatility *
		multiplierOr(competitionVolMultipliers, p.Competition, 1.0) *
		multiplierOr(regulatoryVolMultipliers, p.Regulatory, 1.0) *
		multiplierOr(technologyVolMultipliers, p.TechReadiness, 1.0)
	return formulas.Clamp(sigma, defaults.MinVolatility, defaults.MaxVolatility)
}

// RiskAdjustedRate derives the discount rate: risk-free rate plus market risk
// premium plus additive spreads from each risk category.
func RiskAdjustedRate(p domain.ProjectOption, riskFreeRate, marketRiskPremium float64) float64 {
	return riskFreeRate + marketRiskPremium +
		multiplierOr(competitionRateSpreads, p.Competition, unknownTagSpread) +
		multiplierOr(regulatoryRateSpreads, p.Regulatory, unknownTagSpread) +
		multiplierOr(technologyRateSpreads, p.TechReadiness, unknownTagSpread)
}

func multiplierOr[K comparable](table map[K]float64, key K, fallback float64) float64 {
	if v, ok := table[key]; ok {
		return v
	}
	return fallback
}
