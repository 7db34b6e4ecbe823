package domain

import "time"

// ValuationMethod selects how a segment is priced. Exactly one method is
// assigned per segment.
type ValuationMethod string

const (
	MethodEarningsMultiple   ValuationMethod = "earnings_multiple"
	MethodEnterpriseMultiple ValuationMethod = "enterprise_multiple"
	MethodRealOption         ValuationMethod = "real_option"
)

// Valid reports whether the method is one of the three supported methods.
func (m ValuationMethod) Valid() bool {
	switch m {
	case MethodEarningsMultiple, MethodEnterpriseMultiple, MethodRealOption:
		return true
	}
	return false
}

// CompetitionLevel, RegulatoryRisk and TechnologyReadiness are qualitative
// risk tags on a venture project. They map deterministically to volatility
// multipliers and discount-rate spreads in the option pricer.
type CompetitionLevel string

const (
	CompetitionLow    CompetitionLevel = "low"
	CompetitionMedium CompetitionLevel = "medium"
	CompetitionHigh   CompetitionLevel = "high"
)

type RegulatoryRisk string

const (
	RegulatoryLow      RegulatoryRisk = "low"
	RegulatoryMedium   RegulatoryRisk = "medium"
	RegulatoryHigh     RegulatoryRisk = "high"
	RegulatoryVeryHigh RegulatoryRisk = "very_high"
)

type TechnologyReadiness string

const (
	TechEarlyStage   TechnologyReadiness = "early_stage"
	TechIntermediate TechnologyReadiness = "intermediate"
	TechAdvanced     TechnologyReadiness = "advanced"
	TechMature       TechnologyReadiness = "mature"
	TechExperimental TechnologyReadiness = "experimental"
)

// InvestmentStage is one tranche of a staged venture investment.
type InvestmentStage struct {
	Cost               float64 `json:"cost"`
	Duration           float64 `json:"duration"` // years
	SuccessProbability float64 `json:"success_probability"`
}

// ProjectOption describes a speculative venture priced as a real option.
type ProjectOption struct {
	Name               string              `json:"name"`
	CurrentValue       float64             `json:"current_value"`   // S
	InvestmentCost     float64             `json:"investment_cost"` // K
	TimeToMaturity     float64             `json:"time_to_maturity"` // T, years
	SuccessProbability float64             `json:"success_probability"`
	Competition        CompetitionLevel    `json:"competition_level"`
	Regulatory         RegulatoryRisk      `json:"regulatory_risk"`
	TechReadiness      TechnologyReadiness `json:"technology_readiness"`
	Stages             []InvestmentStage   `json:"stages,omitempty"`
}

// Segment is one business unit of the subject company.
type Segment struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Method          ValuationMethod  `json:"method"`
	Revenue         HistoricalSeries `json:"revenue"`
	OperatingIncome HistoricalSeries `json:"operating_income"`
	EBITDA          HistoricalSeries `json:"ebitda"`
	Projects        []ProjectOption  `json:"projects,omitempty"`
}

// PeerFundamentals is one peer company's feature vector for the
// cross-sectional regression. Pointer fields are nil when the upstream data
// source did not populate them; rows missing required fields are dropped
// before training.
type PeerFundamentals struct {
	Symbol        string   `json:"symbol"`
	GrossMargin   *float64 `json:"gross_margin,omitempty"`
	NetMargin     *float64 `json:"net_margin,omitempty"`
	RevenueGrowth *float64 `json:"revenue_growth,omitempty"`
	EPS           *float64 `json:"eps,omitempty"`
	Revenue       *float64 `json:"revenue,omitempty"`
	PERatio       *float64 `json:"pe_ratio,omitempty"`
	EVEBITDA      *float64 `json:"ev_ebitda,omitempty"`
}

// SubjectFeatures is the subject company's own feature vector, fed to the
// trained cross-sectional model.
type SubjectFeatures struct {
	GrossMargin   float64 `json:"gross_margin"`
	NetMargin     float64 `json:"net_margin"`
	RevenueGrowth float64 `json:"revenue_growth"`
}

// Quote is a market snapshot for a symbol. Any field may be zero when the
// upstream source omitted it; consumers substitute defaults.
type Quote struct {
	Symbol            string  `json:"symbol"`
	Price             float64 `json:"price"`
	MarketCap         float64 `json:"market_cap"`
	SharesOutstanding float64 `json:"shares_outstanding"`
	PERatio           float64 `json:"pe_ratio"`
	Beta              float64 `json:"beta"`
}

// ModelDiagnostic records one forecasting sub-model's contribution to a blend.
type ModelDiagnostic struct {
	Model    string  `json:"model"`
	Estimate float64 `json:"estimate"`
	Weight   float64 `json:"weight"`
	Failed   bool    `json:"failed"`
	Fallback bool    `json:"fallback"`
	Note     string  `json:"note,omitempty"`
}

// BlendedForecast is the weighted combination of sub-model estimates.
// Weights are non-negative and sum to 1.
type BlendedForecast struct {
	Metric   Metric            `json:"metric"`
	Estimate float64           `json:"estimate"`
	Models   []ModelDiagnostic `json:"models"`
}

// UsedFallback reports whether any sub-model was substituted by a default.
func (f BlendedForecast) UsedFallback() bool {
	for _, m := range f.Models {
		if m.Fallback {
			return true
		}
	}
	return false
}

// ValuationResult is the priced value of a single segment.
type ValuationResult struct {
	SegmentID   string             `json:"segment_id"`
	Method      ValuationMethod    `json:"method"`
	Value       float64            `json:"value"`
	Diagnostics map[string]float64 `json:"diagnostics,omitempty"`
	Forecast    *BlendedForecast   `json:"forecast,omitempty"`
	Notes       []string           `json:"notes,omitempty"`
}

// SegmentWeight is one segment's share of total business value.
type SegmentWeight struct {
	SegmentID  string  `json:"segment_id"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// SOTPResult is the sum-of-the-parts aggregate.
//
// Invariant: TargetPrice*SharesOutstanding + NetDebt == Σ segment values
// (within floating tolerance), and percentages sum to 100.
type SOTPResult struct {
	Valuations         []ValuationResult `json:"valuations"`
	Weights            []SegmentWeight   `json:"weights"`
	TotalBusinessValue float64           `json:"total_business_value"`
	NetDebt            float64           `json:"net_debt"`
	SharesOutstanding  float64           `json:"shares_outstanding"`
	TotalEquityValue   float64           `json:"total_equity_value"`
	TargetPrice        float64           `json:"target_price"`
}

// SimulationSummary describes the target-price distribution over all
// Monte Carlo trials.
type SimulationSummary struct {
	Trials  int     `json:"trials"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Median  float64 `json:"median"`
	P5      float64 `json:"p5"`
	P95     float64 `json:"p95"`
	CILow   float64 `json:"ci_low"`  // 2.5th percentile
	CIHigh  float64 `json:"ci_high"` // 97.5th percentile
}

// RecommendationCategory is the coarse bucket of a recommendation.
type RecommendationCategory string

const (
	CategoryBuy          RecommendationCategory = "buy"
	CategoryCautiousBuy  RecommendationCategory = "cautious_buy"
	CategoryHold         RecommendationCategory = "hold"
	CategoryCautiousHold RecommendationCategory = "cautious_hold"
	CategorySell         RecommendationCategory = "sell"
	CategoryNeutral      RecommendationCategory = "neutral"
)

// Recommendation maps price upside and model confidence to a discrete label.
type Recommendation struct {
	Label      string                 `json:"label"`
	Category   RecommendationCategory `json:"category"`
	PctDiff    float64                `json:"pct_diff"`
	Confidence float64                `json:"confidence"`
}

// Report is the structured output consumed by the presentation layer.
type Report struct {
	ID                 string                     `json:"id"`
	Symbol             string                     `json:"symbol"`
	GeneratedAt        time.Time                  `json:"generated_at"`
	CurrentPrice       float64                    `json:"current_price"`
	SOTP               SOTPResult                 `json:"sotp"`
	Simulation         SimulationSummary          `json:"simulation"`
	Forecasts          map[string]BlendedForecast `json:"forecasts,omitempty"`
	DCFSharePrice      float64                    `json:"dcf_share_price,omitempty"`
	ForwardPEPrice     float64                    `json:"forward_pe_price,omitempty"`
	ForwardPSRatio     float64                    `json:"forward_ps_ratio,omitempty"`
	RealizedVolatility float64                    `json:"realized_volatility,omitempty"`
	Recommendation     Recommendation             `json:"recommendation"`
	UsedFallback       bool                       `json:"used_fallback_data"`
	FallbackNotes      []string                   `json:"fallback_notes,omitempty"`
}
