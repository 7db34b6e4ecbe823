package options

import (
	"math"
	"math/rand"

	"github.com/aristath/appraiser/internal/domain"
	"github.com/aristath/appraiser/pkg/formulas"
)

// MonteCarloConfig controls the GBM simulation. The random generator is
// explicit and caller-seeded; the pricer never touches global random state.
type MonteCarloConfig struct {
	Trials int
	Steps  int
	Rand   *rand.Rand
}

const (
	defaultMCTrials = 10_000
	defaultMCSteps  = 252
)

// monteCarloCall estimates a European call price by simulating geometric
// Brownian motion paths of the underlying over [0, T]:
//
//	S(t+dt) = S(t) · exp((r − 0.5σ²)dt + σ√dt·Z)
//
// The discounted average of max(S_T − K, 0) converges to the Black-Scholes
// price as the number of trials grows.
func monteCarloCall(s, k, t, r, sigma float64, cfg MonteCarloConfig) (float64, error) {
	if cfg.Rand == nil {
		return 0, domain.Configurationf("monte carlo pricing requires an explicit random generator")
	}
	trials := cfg.Trials
	if trials <= 0 {
		trials = defaultMCTrials
	}
	steps := cfg.Steps
	if steps <= 0 {
		steps = defaultMCSteps
	}

	dt := t / float64(steps)
	drift := (r - 0.5*sigma*sigma) * dt
	diffusion := sigma * math.Sqrt(dt)

	payoffs := make([]float64, trials)
	for i := 0; i < trials; i++ {
		price := s
		for step := 0; step < steps; step++ {
			price *= math.Exp(drift + diffusion*cfg.Rand.NormFloat64())
		}
		payoffs[i] = math.Max(price-k, 0)
	}

	return formulas.Mean(payoffs) * math.Exp(-r*t), nil
}
