package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/appraiser/internal/domain"
	"github.com/aristath/appraiser/internal/engine"
	"github.com/aristath/appraiser/internal/forecast"
	"github.com/aristath/appraiser/internal/options"
	"github.com/aristath/appraiser/internal/recommendation"
	"github.com/aristath/appraiser/internal/simulation"
	"github.com/aristath/appraiser/internal/valuation"
)

type countingJob struct {
	runs atomic.Int32
}

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return nil
}

func (j *countingJob) Name() string { return "counting" }

func TestScheduler_RunsRegisteredJob(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}

	require.NoError(t, s.AddJob("@every 10ms", job))
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return job.runs.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_RejectsInvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs.Load())
}

type failingJob struct{}

func (failingJob) Run() error   { return errors.New("boom") }
func (failingJob) Name() string { return "failing" }

func TestScheduler_RecordsJobOutcomes(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.RunNow(&countingJob{}))
	require.NoError(t, s.RunNow(&countingJob{}))
	assert.Error(t, s.RunNow(failingJob{}))

	statuses := s.Statuses()
	require.Len(t, statuses, 2)

	assert.Equal(t, "counting", statuses[0].Name)
	assert.Equal(t, 2, statuses[0].Runs)
	assert.Empty(t, statuses[0].LastError)
	assert.False(t, statuses[0].LastRun.IsZero())

	assert.Equal(t, "failing", statuses[1].Name)
	assert.Equal(t, 1, statuses[1].Runs)
	assert.Equal(t, "boom", statuses[1].LastError)
}

// offlineMarket fails every fetch so the engine exercises its fallbacks.
type offlineMarket struct{}

func (offlineMarket) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	return domain.Quote{}, domain.DataUnavailablef("offline")
}

func (offlineMarket) GetFinancials(ctx context.Context, symbol string, metric domain.Metric, periods int) (domain.HistoricalSeries, error) {
	return nil, domain.DataUnavailablef("offline")
}

func (offlineMarket) GetPeerFundamentals(ctx context.Context, symbols []string) ([]domain.PeerFundamentals, error) {
	return nil, domain.DataUnavailablef("offline")
}

func (offlineMarket) GetConsensus(ctx context.Context, symbol string, metric domain.Metric) (float64, error) {
	return 0, domain.DataUnavailablef("offline")
}

type memorySink struct {
	saved []domain.Report
}

func (s *memorySink) Save(ctx context.Context, report domain.Report) error {
	s.saved = append(s.saved, report)
	return nil
}

func TestRefreshValuationsJob_StoresReports(t *testing.T) {
	defaults := domain.StandardAssumptions()
	log := zerolog.Nop()
	ensemble := forecast.NewStandardEnsemble(defaults, log)
	pricer := options.NewPricer(0.045, 0.065, defaults, log)
	valuator := valuation.NewValuator(ensemble, pricer, defaults, log)
	aggregator := valuation.NewAggregator(log)
	sensitivity := simulation.NewSensitivity(valuator, aggregator, log)
	eng := engine.New(offlineMarket{}, valuator, aggregator, sensitivity,
		recommendation.NewEngine(log), defaults, 0.045, 0.065, log)

	sink := &memorySink{}
	job := NewRefreshValuationsJob(eng, StandardSegmentSource{}, sink,
		[]string{"GOOGL"}, engine.Options{MonteCarloTrials: 20, RandomSeed: 1}, log)

	require.NoError(t, job.Run())
	require.Len(t, sink.saved, 1)
	assert.Equal(t, "GOOGL", sink.saved[0].Symbol)
	assert.True(t, sink.saved[0].UsedFallback, "offline market data must be flagged")
}
