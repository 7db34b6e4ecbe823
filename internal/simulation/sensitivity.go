package simulation

import (
	"context"
	"math/rand"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/appraiser/internal/domain"
	"github.com/aristath/appraiser/internal/valuation"
	"github.com/aristath/appraiser/pkg/formulas"
)

const defaultTrials = 1000

// Config controls one sensitivity run. Seed fully determines the output for
// a given trial count, independent of worker count and scheduling.
type Config struct {
	Trials        int
	Workers       int
	Seed          int64
	Distributions map[string]Distribution
}

func (c Config) withDefaults() Config {
	if c.Trials <= 0 {
		c.Trials = defaultTrials
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Distributions == nil {
		c.Distributions = DefaultDistributions()
	}
	return c
}

// Request is the valuation scenario to perturb: the same segments and context
// the deterministic path uses, plus the balance-sheet figures for the final
// per-trial aggregation.
type Request struct {
	Segments          []domain.Segment
	Context           valuation.Context
	NetDebt           float64
	SharesOutstanding float64
}

// Sensitivity reprices the sum-of-the-parts model under sampled drivers.
type Sensitivity struct {
	valuator   *valuation.Valuator
	aggregator *valuation.Aggregator
	log        zerolog.Logger
}

// NewSensitivity constructs the sensitivity engine.
func NewSensitivity(valuator *valuation.Valuator, aggregator *valuation.Aggregator, log zerolog.Logger) *Sensitivity {
	return &Sensitivity{
		valuator:   valuator,
		aggregator: aggregator,
		log:        log.With().Str("component", "sensitivity").Logger(),
	}
}

type trialResult struct {
	index int
	price float64
	err   error
}

// Run executes cfg.Trials independent repricings across a worker pool and
// summarizes the resulting target-price distribution.
//
// Each trial derives its own generator from the base seed and the trial
// index, so results are reproducible for a given seed and trial count no
// matter how many workers execute them or in what order.
func (s *Sensitivity) Run(ctx context.Context, req Request, cfg Config) (domain.SimulationSummary, error) {
	cfg = cfg.withDefaults()
	if req.SharesOutstanding <= 0 {
		return domain.SimulationSummary{}, domain.InvalidAssumptionf(
			"shares outstanding must be positive, got %.2f", req.SharesOutstanding)
	}

	drivers := sortedDriverNames(cfg.Distributions)

	jobs := make(chan int, cfg.Trials)
	results := make(chan trialResult, cfg.Trials)

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				price, err := s.trial(req, cfg, drivers, index)
				results <- trialResult{index: index, price: price, err: err}
			}
		}()
	}

	for i := 0; i < cfg.Trials; i++ {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return domain.SimulationSummary{}, ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	prices := make([]float64, cfg.Trials)
	for r := range results {
		if r.err != nil {
			return domain.SimulationSummary{}, r.err
		}
		prices[r.index] = r.price
	}

	summary := summarize(prices)
	s.log.Info().
		Int("trials", summary.Trials).
		Float64("mean", summary.Mean).
		Float64("std_dev", summary.StdDev).
		Msg("Sensitivity analysis complete")
	return summary, nil
}

// trial reprices every segment under one sampled parameter set and aggregates
// to a per-share target price.
func (s *Sensitivity) trial(req Request, cfg Config, drivers []string, index int) (float64, error) {
	rng := rand.New(rand.NewSource(cfg.Seed + int64(index)))

	draws := make(map[string]float64, len(drivers))
	for _, name := range drivers {
		draws[name] = cfg.Distributions[name].Sample(rng)
	}
	params := valuation.Params{
		RevenueGrowth:      draws[DriverRevenueGrowth],
		OperatingMargin:    draws[DriverOperatingMargin],
		PEMultiple:         draws[DriverPEMultiple],
		EVEBITDAMultiple:   draws[DriverEVEBITDAMultiple],
		SuccessProbability: draws[DriverSuccessProbability],
	}

	valuations := make([]domain.ValuationResult, 0, len(req.Segments))
	for _, segment := range req.Segments {
		result, err := s.valuator.ValueWithParams(segment, req.Context, params)
		if err != nil {
			return 0, err
		}
		valuations = append(valuations, result)
	}

	sotp, err := s.aggregator.Aggregate(valuations, req.NetDebt, req.SharesOutstanding)
	if err != nil {
		return 0, err
	}
	return sotp.TargetPrice, nil
}

func summarize(prices []float64) domain.SimulationSummary {
	return domain.SimulationSummary{
		Trials: len(prices),
		Mean:   formulas.Mean(prices),
		StdDev: formulas.StdDev(prices),
		Median: formulas.Median(prices),
		P5:     formulas.Quantile(0.05, prices),
		P95:    formulas.Quantile(0.95, prices),
		CILow:  formulas.Quantile(0.025, prices),
		CIHigh: formulas.Quantile(0.975, prices),
	}
}
