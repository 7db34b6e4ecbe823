package domain

// DefaultAssumptions consolidates every fallback constant the engine may
// substitute when an external fetch returns missing or partial data. Keeping
// them in one injectable struct makes fallback behavior auditable and
// independently testable instead of buried in scattered error handlers.
type DefaultAssumptions struct {
	// Consensus fallbacks used when no analyst estimate is available.
	ConsensusRevenue float64
	ConsensusEPS     float64

	// Derived-rate fallbacks and clamps.
	RevenueGrowth    float64
	OperatingMargin  float64
	MinRevenueGrowth float64
	MaxRevenueGrowth float64
	MinMargin        float64
	MaxMargin        float64

	// Multiple fallbacks when neither own history nor peers provide one.
	PEMultiple       float64
	EVEBITDAMultiple float64

	// Quote fallbacks.
	SharesOutstanding float64

	// Option pricing.
	BaseVolatility float64
	MinVolatility  float64
	MaxVolatility  float64

	// EBITDA uplift over operating income when no EBITDA series exists.
	EBITDAUplift float64
}

// StandardAssumptions returns the documented default set.
func StandardAssumptions() DefaultAssumptions {
	return DefaultAssumptions{
		ConsensusRevenue:  405e9,
		ConsensusEPS:      6.0,
		RevenueGrowth:     0.03,
		OperatingMargin:   0.25,
		MinRevenueGrowth:  -0.20,
		MaxRevenueGrowth:  0.25,
		MinMargin:         0.05,
		MaxMargin:         0.50,
		PEMultiple:        20.0,
		EVEBITDAMultiple:  13.0,
		SharesOutstanding: 13e9,
		BaseVolatility:    0.3,
		MinVolatility:     0.1,
		MaxVolatility:     0.8,
		EBITDAUplift:      1.2,
	}
}

// ConsensusFor returns the consensus fallback constant for a metric.
func (d DefaultAssumptions) ConsensusFor(metric Metric) float64 {
	if metric == MetricEPS {
		return d.ConsensusEPS
	}
	return d.ConsensusRevenue
}
