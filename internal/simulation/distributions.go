// Package simulation runs the Monte Carlo sensitivity analysis: it samples
// valuation drivers from truncated normal distributions, reprices the full
// sum-of-the-parts model per trial, and summarizes the resulting target-price
// distribution.
package simulation

import (
	"math/rand"
	"sort"

	"github.com/aristath/appraiser/pkg/formulas"
)

// Driver names. Sampling iterates drivers in sorted name order so a given
// seed always produces the same draw sequence.
const (
	DriverRevenueGrowth      = "revenue_growth"
	DriverOperatingMargin    = "operating_margin"
	DriverPEMultiple         = "pe_multiple"
	DriverEVEBITDAMultiple   = "ev_ebitda_multiple"
	DriverSuccessProbability = "success_probability"
)

// Distribution is a truncated normal over one valuation driver.
type Distribution struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Sample draws one value and clamps it to the distribution's support.
func (d Distribution) Sample(rng *rand.Rand) float64 {
	return formulas.Clamp(d.Mean+d.StdDev*rng.NormFloat64(), d.Min, d.Max)
}

// DefaultDistributions returns the documented driver priors.
func DefaultDistributions() map[string]Distribution {
	return map[string]Distribution{
		DriverPEMultiple:         {Mean: 24, StdDev: 3, Min: 15, Max: 35},
		DriverEVEBITDAMultiple:   {Mean: 13, StdDev: 2, Min: 8, Max: 20},
		DriverRevenueGrowth:      {Mean: 0.08, StdDev: 0.03, Min: 0.02, Max: 0.15},
		DriverOperatingMargin:    {Mean: 0.25, StdDev: 0.05, Min: 0.15, Max: 0.35},
		DriverSuccessProbability: {Mean: 0.25, StdDev: 0.10, Min: 0.10, Max: 0.50},
	}
}

// sortedDriverNames fixes the draw order for reproducibility.
func sortedDriverNames(dists map[string]Distribution) []string {
	names := make([]string, 0, len(dists))
	for name := range dists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
