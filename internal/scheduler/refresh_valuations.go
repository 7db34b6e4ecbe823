package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/appraiser/internal/domain"
	"github.com/aristath/appraiser/internal/engine"
)

// refreshTimeout bounds one full refresh cycle including market-data fetches.
const refreshTimeout = 10 * time.Minute

// SegmentSource supplies the segment breakdown for a symbol. The built-in
// scenario serves symbols without a custom breakdown.
type SegmentSource interface {
	SegmentsFor(symbol string) []domain.Segment
	PeersFor(symbol string) []string
}

// ReportSink persists finished reports.
type ReportSink interface {
	Save(ctx context.Context, report domain.Report) error
}

// RefreshValuationsJob re-values every tracked symbol and stores the reports.
type RefreshValuationsJob struct {
	engine   *engine.Engine
	segments SegmentSource
	sink     ReportSink
	symbols  []string
	opts     engine.Options
	log      zerolog.Logger
}

// NewRefreshValuationsJob builds the refresh job.
func NewRefreshValuationsJob(eng *engine.Engine, segments SegmentSource, sink ReportSink, symbols []string, opts engine.Options, log zerolog.Logger) *RefreshValuationsJob {
	return &RefreshValuationsJob{
		engine:   eng,
		segments: segments,
		sink:     sink,
		symbols:  symbols,
		opts:     opts,
		log:      log.With().Str("component", "refresh_valuations").Logger(),
	}
}

// Name implements Job.
func (j *RefreshValuationsJob) Name() string {
	return "refresh_valuations"
}

// Run re-values every tracked symbol. One symbol's failure does not stop the
// others; the first error is returned after all symbols were attempted.
func (j *RefreshValuationsJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	var firstErr error
	for _, symbol := range j.symbols {
		opts := j.opts
		opts.PeerSymbols = j.segments.PeersFor(symbol)

		report, err := j.engine.Valuate(ctx, symbol, j.segments.SegmentsFor(symbol), opts)
		if err != nil {
			j.log.Error().Str("symbol", symbol).Err(err).Msg("Scheduled valuation failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if err := j.sink.Save(ctx, report); err != nil {
			j.log.Error().Str("symbol", symbol).Err(err).Msg("Failed to store scheduled report")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		j.log.Info().
			Str("symbol", symbol).
			Float64("target_price", report.SOTP.TargetPrice).
			Msg("Scheduled valuation stored")
	}
	return firstErr
}

// StandardSegmentSource serves the built-in scenario for every symbol.
type StandardSegmentSource struct{}

// SegmentsFor implements SegmentSource.
func (StandardSegmentSource) SegmentsFor(string) []domain.Segment {
	return engine.AlphabetSegments()
}

// PeersFor implements SegmentSource.
func (StandardSegmentSource) PeersFor(string) []string {
	return engine.AlphabetPeerSymbols()
}
