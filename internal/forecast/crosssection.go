package forecast

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/appraiser/internal/domain"
)

// crossSectionFeatures is intercept + gross margin + net margin + revenue
// growth.
const crossSectionFeatures = 4

// CrossSectionalModel regresses peer companies' target metric on their
// fundamental feature vectors, then applies the fitted coefficients to the
// subject's own features. Peer rows missing any required field are dropped
// before training.
type CrossSectionalModel struct{}

func (CrossSectionalModel) Name() string { return ModelCrossSectional }

func (m CrossSectionalModel) Estimate(in Input) (float64, error) {
	features, targets := usablePeerRows(in.Peers, in.Metric)
	if len(features) < crossSectionFeatures {
		return 0, domain.InsufficientDataf(
			"cross-sectional model needs at least %d complete peer rows, got %d",
			crossSectionFeatures, len(features))
	}

	coeffs, err := solveLeastSquares(features, targets)
	if err != nil {
		return 0, err
	}

	estimate := coeffs[0] +
		coeffs[1]*in.Subject.GrossMargin +
		coeffs[2]*in.Subject.NetMargin +
		coeffs[3]*in.Subject.RevenueGrowth
	if math.IsNaN(estimate) || math.IsInf(estimate, 0) {
		return 0, domain.InsufficientDataf("cross-sectional regression produced a non-finite estimate")
	}
	return estimate, nil
}

// usablePeerRows filters peers to rows with all required fields populated and
// returns their feature vectors and target values.
func usablePeerRows(peers []domain.PeerFundamentals, metric domain.Metric) ([][3]float64, []float64) {
	var features [][3]float64
	var targets []float64

	for _, p := range peers {
		if p.GrossMargin == nil || p.NetMargin == nil || p.RevenueGrowth == nil {
			continue
		}
		target := p.Revenue
		if metric == domain.MetricEPS {
			target = p.EPS
		}
		if target == nil {
			continue
		}
		features = append(features, [3]float64{*p.GrossMargin, *p.NetMargin, *p.RevenueGrowth})
		targets = append(targets, *target)
	}
	return features, targets
}

// solveLeastSquares fits targets = X*coeffs with an intercept column via QR.
func solveLeastSquares(features [][3]float64, targets []float64) ([]float64, error) {
	rows := len(features)
	x := mat.NewDense(rows, crossSectionFeatures, nil)
	y := mat.NewVecDense(rows, targets)
	for i, f := range features {
		x.Set(i, 0, 1)
		x.Set(i, 1, f[0])
		x.Set(i, 2, f[1])
		x.Set(i, 3, f[2])
	}

	var qr mat.QR
	qr.Factorize(x)

	var solution mat.VecDense
	if err := qr.SolveVecTo(&solution, false, y); err != nil {
		return nil, domain.InsufficientDataf("cross-sectional regression is singular: %v", err)
	}

	coeffs := make([]float64, crossSectionFeatures)
	for i := range coeffs {
		coeffs[i] = solution.AtVec(i)
	}
	return coeffs, nil
}
