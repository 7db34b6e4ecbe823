package domain

import "context"

// External collaborator interfaces. The engine is constructed with concrete
// implementations rather than probing availability at import time; any of
// them may fail or return partial data, and the engine degrades to
// DefaultAssumptions in that case. Timeouts are the caller's concern: wrap
// the context, not the collaborator.

// QuoteProvider supplies market snapshots.
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (Quote, error)
}

// FinancialsProvider supplies financial-statement time series. It may return
// fewer periods than requested.
type FinancialsProvider interface {
	GetFinancials(ctx context.Context, symbol string, metric Metric, periods int) (HistoricalSeries, error)
}

// PeerProvider supplies peer-company feature vectors for the cross-sectional
// regression. Rows may be partially populated.
type PeerProvider interface {
	GetPeerFundamentals(ctx context.Context, symbols []string) ([]PeerFundamentals, error)
}

// ConsensusProvider supplies an externally sourced analyst point estimate.
type ConsensusProvider interface {
	GetConsensus(ctx context.Context, symbol string, metric Metric) (float64, error)
}

// MarketData bundles all collaborator interfaces.
type MarketData interface {
	QuoteProvider
	FinancialsProvider
	PeerProvider
	ConsensusProvider
}
