package forecast

import "github.com/aristath/appraiser/internal/domain"

// ConsensusModel passes through an externally supplied analyst point
// estimate. When none is available it fails with DataUnavailable and the
// ensemble substitutes the documented fallback constant.
type ConsensusModel struct{}

func (ConsensusModel) Name() string { return ModelConsensus }

func (ConsensusModel) Estimate(in Input) (float64, error) {
	if in.Consensus == nil {
		return 0, domain.DataUnavailablef("no analyst consensus for metric %q", in.Metric)
	}
	return *in.Consensus, nil
}
