// Package valuation prices business segments by earnings multiple,
// enterprise multiple or real-option methodology, and aggregates them into a
// sum-of-the-parts target price.
package valuation

import "github.com/aristath/appraiser/pkg/formulas"

// Weighting of own history versus peer comps when blending a target multiple.
const (
	ownMultipleWeight  = 0.6
	peerMultipleWeight = 0.4
)

// BlendMultiple derives a target valuation multiple from the entity's own
// historical multiples and peer medians. An explicit override wins; with only
// one side available that side is used; with neither, the documented fallback.
func BlendMultiple(own, peers []float64, override *float64, fallback float64) float64 {
	if override != nil {
		return *override
	}

	own = positiveOnly(own)
	peers = positiveOnly(peers)

	switch {
	case len(own) > 0 && len(peers) > 0:
		return ownMultipleWeight*formulas.Median(own) + peerMultipleWeight*formulas.Median(peers)
	case len(own) > 0:
		return formulas.Median(own)
	case len(peers) > 0:
		return formulas.Median(peers)
	default:
		return fallback
	}
}

// positiveOnly drops zero and negative observations; a non-positive multiple
// is a data artifact (loss-making year, missing field), not a signal.
func positiveOnly(values []float64) []float64 {
	var out []float64
	for _, v := range values {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}
