package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/ising-core/internal/ising"
	"github.com/GoSim-25-26J-441/ising-core/internal/metrics"
	"github.com/GoSim-25-26J-441/ising-core/internal/output"
	"github.com/GoSim-25-26J-441/ising-core/pkg/config"
	"github.com/GoSim-25-26J-441/ising-core/pkg/logger"
	"github.com/GoSim-25-26J-441/ising-core/pkg/utils"
)

// SourceFactory returns the random source for the index-th temperature
type SourceFactory func(index int, temperature float64) ising.Source

// SampleObserver receives live samples tagged with their temperature
type SampleObserver func(temperature float64, s ising.Sample)

// ResultHandler receives every finished simulation
type ResultHandler func(index int, res *ising.Result)

// Report summarises a finished sweep
type Report struct {
	Temperatures []float64
	Completed    int
	Duration     time.Duration
}

// Runner drives one independent simulation per temperature
type Runner struct {
	cfg       *config.Config
	sink      output.Sink
	collector *metrics.Collector
	newSource SourceFactory
	observer  SampleObserver
	onResult  ResultHandler
	logger    *slog.Logger

	sinkMu sync.Mutex
}

// NewRunner creates a sweep runner writing through sink
func NewRunner(cfg *config.Config, sink output.Sink) *Runner {
	seed := cfg.Simulation.Seed
	return &Runner{
		cfg:       cfg,
		sink:      sink,
		collector: metrics.NewCollector(),
		newSource: func(index int, _ float64) ising.Source {
			return utils.NewRandSource(utils.DeriveSeed(seed, index))
		},
		logger: logger.Default,
	}
}

// SetCollector replaces the telemetry collector
func (r *Runner) SetCollector(c *metrics.Collector) {
	r.collector = c
}

// Collector returns the telemetry collector
func (r *Runner) Collector() *metrics.Collector {
	return r.collector
}

// SetSourceFactory overrides how per-temperature random sources are built
func (r *Runner) SetSourceFactory(f SourceFactory) {
	r.newSource = f
}

// SetObserver registers a live sample callback
func (r *Runner) SetObserver(o SampleObserver) {
	r.observer = o
}

// SetResultHandler registers a callback for finished simulations
func (r *Runner) SetResultHandler(h ResultHandler) {
	r.onResult = h
}

// SetLogger sets the runner's logger
func (r *Runner) SetLogger(l *slog.Logger) {
	r.logger = l
}

// Temperatures returns the sweep grid after checking artifact names
func (r *Runner) Temperatures() ([]float64, error) {
	s := r.cfg.Sweep
	ts, err := Temperatures(s.Start, s.End, s.Step)
	if err != nil {
		return nil, err
	}
	if err := CheckNames(r.cfg.Output.Prefix, ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// Run executes the sweep. Temperatures run sequentially unless
// Sweep.Workers > 1. The first failure cancels the remaining runs.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	ts, err := r.Temperatures()
	if err != nil {
		return nil, err
	}

	report := &Report{Temperatures: ts}
	start := time.Now()
	r.collector.Start()
	defer r.collector.Stop()

	r.logger.Info("sweep started",
		"temperatures", len(ts),
		"first", ts[0],
		"last", ts[len(ts)-1],
		"lattice_size", r.cfg.Simulation.LatticeSize,
		"steps", r.cfg.Simulation.Steps,
		"workers", r.workers())

	var completed int
	if r.workers() <= 1 {
		completed, err = r.runSequential(ctx, ts)
	} else {
		completed, err = r.runParallel(ctx, ts)
	}
	report.Completed = completed
	report.Duration = time.Since(start)
	if err != nil {
		return report, err
	}

	r.logger.Info("sweep finished", "completed", completed, "duration", report.Duration)
	return report, nil
}

func (r *Runner) workers() int {
	if r.cfg.Sweep.Workers < 1 {
		return 1
	}
	return r.cfg.Sweep.Workers
}

func (r *Runner) runSequential(ctx context.Context, ts []float64) (int, error) {
	for i, t := range ts {
		if err := r.runOne(ctx, i, t); err != nil {
			return i, err
		}
	}
	return len(ts), nil
}

func (r *Runner) runParallel(ctx context.Context, ts []float64) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	semaphore := make(chan struct{}, r.workers())
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	completed := 0

	for i, t := range ts {
		wg.Add(1)
		go func(idx int, temp float64) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				return
			}
			err := r.runOne(ctx, idx, temp)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				return
			}
			completed++
		}(i, t)
	}
	wg.Wait()

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	return completed, firstErr
}

func (r *Runner) runOne(ctx context.Context, index int, t float64) error {
	log := r.logger.With("temperature", t)

	sim, err := ising.NewSimulator(r.cfg.Params(t), r.newSource(index, t))
	if err != nil {
		return fmt.Errorf("temperature %v: %w", t, err)
	}
	sim.SetLogger(log)
	if r.observer != nil {
		sim.SetObserver(func(s ising.Sample) { r.observer(t, s) })
	}

	res, err := sim.Run(ctx)
	if err != nil {
		return fmt.Errorf("temperature %v: %w", t, err)
	}

	r.sinkMu.Lock()
	err = r.sink.WriteTrace(t, res.Trace)
	r.sinkMu.Unlock()
	if err != nil {
		return fmt.Errorf("temperature %v: %w", t, err)
	}

	metrics.RecordResult(r.collector, res, time.Now())
	if r.onResult != nil {
		r.onResult(index, res)
	}

	log.Info("temperature completed",
		"accepted", res.Accepted,
		"samples", len(res.Trace),
		"energy", res.Energy,
		"duration", res.Duration)
	return nil
}
