package engine

import "github.com/aristath/appraiser/internal/domain"

// ventureCostRatio approximates a venture's remaining investment cost as a
// share of its estimated value.
const ventureCostRatio = 0.3

// AlphabetSegments is the built-in GOOGL scenario: segment financials from
// the 2023 10-K and venture estimates from public funding rounds. It serves
// as the default request body for the refresh job and the HTTP API.
func AlphabetSegments() []domain.Segment {
	return []domain.Segment{
		{
			ID:     "google_services",
			Name:   "Google Services",
			Method: domain.MethodEarningsMultiple,
			Revenue: domain.HistoricalSeries{
				{Period: 2021, Value: 256.7e9},
				{Period: 2022, Value: 279.8e9},
				{Period: 2023, Value: 307.394e9},
			},
			OperatingIncome: domain.HistoricalSeries{
				{Period: 2021, Value: 78.7e9},
				{Period: 2022, Value: 89.9e9},
				{Period: 2023, Value: 101.2e9},
			},
		},
		{
			ID:     "google_cloud",
			Name:   "Google Cloud",
			Method: domain.MethodEnterpriseMultiple,
			Revenue: domain.HistoricalSeries{
				{Period: 2021, Value: 19.2e9},
				{Period: 2022, Value: 26.3e9},
				{Period: 2023, Value: 33.1e9},
			},
			OperatingIncome: domain.HistoricalSeries{
				{Period: 2021, Value: -3.1e9},
				{Period: 2022, Value: -3.12e9},
				{Period: 2023, Value: 0.864e9},
			},
		},
		{
			ID:     "other_bets",
			Name:   "Other Bets",
			Method: domain.MethodRealOption,
			Revenue: domain.HistoricalSeries{
				{Period: 2021, Value: 0.753e9},
				{Period: 2022, Value: 1.1e9},
				{Period: 2023, Value: 1.5e9},
			},
			Projects: []domain.ProjectOption{
				venture("waymo", 25e9, 6, 0.30, domain.CompetitionHigh, domain.RegulatoryMedium, domain.TechAdvanced),
				venture("verily", 12e9, 8, 0.35, domain.CompetitionMedium, domain.RegulatoryHigh, domain.TechIntermediate),
				venture("calico", 6e9, 12, 0.20, domain.CompetitionLow, domain.RegulatoryVeryHigh, domain.TechEarlyStage),
				venture("x_moonshot", 8e9, 10, 0.15, domain.CompetitionMedium, domain.RegulatoryMedium, domain.TechExperimental),
				venture("google_fiber", 4e9, 4, 0.50, domain.CompetitionHigh, domain.RegulatoryMedium, domain.TechMature),
				venture("other_projects", 7e9, 8, 0.12, domain.CompetitionMedium, domain.RegulatoryMedium, domain.TechEarlyStage),
			},
		},
	}
}

// AlphabetPeerSymbols lists the comparable companies used for cross-sectional
// features and peer multiples.
func AlphabetPeerSymbols() []string {
	return []string{"META", "AMZN", "NFLX", "TSLA", "MSFT", "ORCL", "CRM"}
}

func venture(name string, value, maturity, probability float64, comp domain.CompetitionLevel, reg domain.RegulatoryRisk, tech domain.TechnologyReadiness) domain.ProjectOption {
	return domain.ProjectOption{
		Name:               name,
		CurrentValue:       value,
		InvestmentCost:     value * ventureCostRatio,
		TimeToMaturity:     maturity,
		SuccessProbability: probability,
		Competition:        comp,
		Regulatory:         reg,
		TechReadiness:      tech,
	}
}
