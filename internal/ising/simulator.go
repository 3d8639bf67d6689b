package ising

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoSim-25-26J-441/ising-core/pkg/logger"
)

// maxPrealloc caps trace preallocation for very long runs
const maxPrealloc = 1 << 20

// Sample is one energy trace entry together with the number of attempted
// flips completed when it was recorded.
type Sample struct {
	Attempts uint64 `json:"attempts"`
	Energy   int64  `json:"energy"`
}

// Observer receives every sample as it is recorded
type Observer func(Sample)

// Result is the outcome of a simulation run.
type Result struct {
	Params    Params
	Trace     []int64
	Attempted uint64
	Accepted  uint64
	Energy    int64
	Lattice   *Lattice
	Duration  time.Duration
}

// AcceptanceRatio returns accepted / attempted flips
func (r *Result) AcceptanceRatio() float64 {
	if r.Attempted == 0 {
		return 0
	}
	return float64(r.Accepted) / float64(r.Attempted)
}

// Simulator runs the Metropolis single-spin-flip loop over one lattice.
// It is not safe for concurrent use; each run owns its lattice and source.
type Simulator struct {
	params   Params
	src      Source
	lattice  *Lattice
	observer Observer
	logger   *slog.Logger
}

// NewSimulator validates p and initialises a random lattice from src.
func NewSimulator(p Params, src Source) (*Simulator, error) {
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: random source is required", ErrInvalidParams)
	}
	return &Simulator{
		params:  p,
		src:     src,
		lattice: NewLattice(p.Size, src),
		logger:  logger.Default,
	}, nil
}

// NewSimulatorFromLattice runs over an existing lattice, which is mutated in place.
// p.Size is taken from the lattice.
func NewSimulatorFromLattice(p Params, l *Lattice, src Source) (*Simulator, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: lattice is required", ErrInvalidParams)
	}
	p.Size = l.Size()
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: random source is required", ErrInvalidParams)
	}
	return &Simulator{
		params:  p,
		src:     src,
		lattice: l,
		logger:  logger.Default,
	}, nil
}

// SetObserver registers a callback invoked for each recorded sample
func (s *Simulator) SetObserver(o Observer) {
	s.observer = o
}

// SetLogger sets the simulator's logger
func (s *Simulator) SetLogger(l *slog.Logger) {
	s.logger = l
}

// Params returns the effective parameters
func (s *Simulator) Params() Params {
	return s.params
}

// Lattice returns the lattice the simulator mutates
func (s *Simulator) Lattice() *Lattice {
	return s.lattice
}

// Run executes Params.Steps attempted flips and returns the energy trace.
// ctx is checked once per sample interval; on cancellation the partial
// result is returned together with ctx.Err().
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	p := s.params
	l := s.lattice
	n := l.Size()

	prealloc := p.ExpectedSamples()
	if prealloc > maxPrealloc {
		prealloc = maxPrealloc
	}
	res := &Result{
		Params:  p,
		Trace:   make([]int64, 0, prealloc),
		Lattice: l,
	}

	s.logger.Debug("simulation started",
		"size", n,
		"steps", p.Steps,
		"temperature", p.Temperature,
		"field", p.Field,
		"coupling", p.Coupling,
		"sampling", p.Sampling)

	start := time.Now()
	var energy int64
	var step uint64
	for step = 0; step < p.Steps; step++ {
		if step%p.SampleInterval == 0 {
			if err := ctx.Err(); err != nil {
				s.finish(res, step, energy, start)
				return res, err
			}
		}

		i := s.src.Intn(n)
		j := s.src.Intn(n)
		dE := DeltaE(int(l.At(i, j)), l.NeighborSum(i, j), p.Coupling, p.Field)

		accepted := Accept(dE, p.Temperature, s.src)
		if accepted {
			l.Flip(i, j)
			energy += int64(dE)
			res.Accepted++
		}

		switch p.Sampling {
		case SampleAccepted:
			if accepted && step%p.SampleInterval == 0 {
				s.record(res, step+1, energy)
			}
		default:
			if (step+1)%p.SampleInterval == 0 {
				s.record(res, step+1, energy)
			}
		}
	}

	s.finish(res, step, energy, start)
	s.logger.Debug("simulation finished",
		"temperature", p.Temperature,
		"accepted", res.Accepted,
		"samples", len(res.Trace),
		"duration", res.Duration)
	return res, nil
}

func (s *Simulator) record(res *Result, attempts uint64, energy int64) {
	res.Trace = append(res.Trace, energy)
	if s.observer != nil {
		s.observer(Sample{Attempts: attempts, Energy: energy})
	}
}

func (s *Simulator) finish(res *Result, attempted uint64, energy int64, start time.Time) {
	res.Attempted = attempted
	res.Energy = energy
	res.Duration = time.Since(start)
}
