// Package recommendation maps the valuation outcome to a discrete action
// label via a fixed decision table over price upside and model confidence.
package recommendation

import (
	"github.com/rs/zerolog"

	"github.com/aristath/appraiser/internal/domain"
)

// Engine turns (current price, target price, confidence) into a label.
type Engine struct {
	log zerolog.Logger
}

// NewEngine constructs the recommendation engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "recommendation").Logger()}
}

// Recommend applies the decision table. Confidence is on a 0-100 scale.
// A zero target price means the valuation could not be computed; it maps to
// a neutral "insufficient data" label rather than a fake sell signal.
func (e *Engine) Recommend(currentPrice, targetPrice, confidence float64) domain.Recommendation {
	if targetPrice == 0 || currentPrice <= 0 {
		return domain.Recommendation{
			Label:      "insufficient data",
			Category:   domain.CategoryNeutral,
			Confidence: confidence,
		}
	}

	pctDiff := (targetPrice - currentPrice) / currentPrice * 100

	rec := domain.Recommendation{PctDiff: pctDiff, Confidence: confidence}
	switch {
	case pctDiff > 15 && confidence >= 80:
		rec.Label, rec.Category = "strong buy", domain.CategoryBuy
	case pctDiff > 15 && confidence >= 60:
		rec.Label, rec.Category = "buy", domain.CategoryBuy
	case pctDiff > 15:
		rec.Label, rec.Category = "cautious buy", domain.CategoryCautiousBuy
	case pctDiff > 5 && confidence >= 70:
		rec.Label, rec.Category = "buy", domain.CategoryBuy
	case pctDiff > 5:
		rec.Label, rec.Category = "cautious buy", domain.CategoryCautiousBuy
	case pctDiff >= -5:
		rec.Label, rec.Category = "hold", domain.CategoryHold
	case pctDiff >= -15:
		rec.Label, rec.Category = "cautious hold", domain.CategoryCautiousHold
	default:
		rec.Label, rec.Category = "not recommended", domain.CategorySell
	}

	e.log.Debug().
		Float64("pct_diff", pctDiff).
		Float64("confidence", confidence).
		Str("label", rec.Label).
		Msg("Recommendation issued")
	return rec
}
