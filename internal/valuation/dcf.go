package valuation

import (
	"math"

	"github.com/aristath/appraiser/internal/domain"
)

// DCFInput holds the inputs for the discounted-cash-flow cross-check. The DCF
// is a sanity reference alongside the sum-of-the-parts figure, not a blended
// component of the target price.
type DCFInput struct {
	FreeCashFlow      float64 // latest annual FCF
	GrowthRate        float64 // near-term FCF growth
	TerminalGrowth    float64
	ForecastYears     int
	Beta              float64
	RiskFreeRate      float64
	MarketRiskPremium float64
	CostOfDebt        float64
	DebtWeight        float64 // debt / (debt + equity), in [0,1]
	TaxRate           float64
	NetDebt           float64
	SharesOutstanding float64
}

// WACC computes the weighted average cost of capital with CAPM cost of
// equity and after-tax cost of debt.
func WACC(in DCFInput) float64 {
	costOfEquity := in.RiskFreeRate + in.Beta*in.MarketRiskPremium
	equityWeight := 1 - in.DebtWeight
	return equityWeight*costOfEquity + in.DebtWeight*in.CostOfDebt*(1-in.TaxRate)
}

// TerminalValue is the Gordon growth perpetuity of the final forecast cash
// flow. The discount rate must exceed the terminal growth rate.
func TerminalValue(finalCashFlow, discountRate, terminalGrowth float64) (float64, error) {
	if discountRate <= terminalGrowth {
		return 0, domain.InvalidAssumptionf(
			"discount rate %.4f must exceed terminal growth %.4f", discountRate, terminalGrowth)
	}
	return finalCashFlow * (1 + terminalGrowth) / (discountRate - terminalGrowth), nil
}

// DCFSharePrice discounts the explicit forecast cash flows and the terminal
// value at WACC, subtracts net debt and divides by shares outstanding.
func DCFSharePrice(in DCFInput) (float64, error) {
	if in.SharesOutstanding <= 0 {
		return 0, domain.InvalidAssumptionf(
			"shares outstanding must be positive, got %.2f", in.SharesOutstanding)
	}
	if in.ForecastYears <= 0 {
		return 0, domain.InvalidAssumptionf(
			"forecast horizon must be positive, got %d years", in.ForecastYears)
	}

	wacc := WACC(in)

	pv := 0.0
	cashFlow := in.FreeCashFlow
	for year := 1; year <= in.ForecastYears; year++ {
		cashFlow *= 1 + in.GrowthRate
		pv += cashFlow / math.Pow(1+wacc, float64(year))
	}

	terminal, err := TerminalValue(cashFlow, wacc, in.TerminalGrowth)
	if err != nil {
		return 0, err
	}
	pv += terminal / math.Pow(1+wacc, float64(in.ForecastYears))

	return (pv - in.NetDebt) / in.SharesOutstanding, nil
}
