package options

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// BlackScholesCall returns the Black-Scholes value of a European call:
//
//	d1 = (ln(S/K) + (r + 0.5σ²)T) / (σ√T)
//	d2 = d1 − σ√T
//	price = S·N(d1) − K·e^(−rT)·N(d2)
//
// Degenerate inputs take the analytical limits: with T ≤ 0 the option is
// worth its intrinsic value max(S−K, 0); with σ ≤ 0 the forward is
// deterministic and the option is worth max(S − K·e^(−rT), 0).
func BlackScholesCall(s, k, t, r, sigma float64) float64 {
	if t <= 0 {
		return math.Max(s-k, 0)
	}
	if sigma <= 0 {
		return math.Max(s-k*math.Exp(-r*t), 0)
	}

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	return s*stdNormal.CDF(d1) - k*math.Exp(-r*t)*stdNormal.CDF(d2)
}

// BlackScholesPut returns the Black-Scholes value of a European put via the
// complementary CDF terms.
func BlackScholesPut(s, k, t, r, sigma float64) float64 {
	if t <= 0 {
		return math.Max(k-s, 0)
	}
	if sigma <= 0 {
		return math.Max(k*math.Exp(-r*t)-s, 0)
	}

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	return k*math.Exp(-r*t)*stdNormal.CDF(-d2) - s*stdNormal.CDF(-d1)
}
