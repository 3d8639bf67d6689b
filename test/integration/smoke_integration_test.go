//go:build integration
// +build integration

package integration_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/GoSim-25-26J-441/ising-core/internal/ising"
	"github.com/GoSim-25-26J-441/ising-core/internal/output"
	"github.com/GoSim-25-26J-441/ising-core/internal/sweep"
	"github.com/GoSim-25-26J-441/ising-core/pkg/config"
	"github.com/GoSim-25-26J-441/ising-core/pkg/utils"
)

func TestIntegration_DefaultConfigLoadSmoke(t *testing.T) {
	cfgPath := filepath.Join("..", "..", "config", "ising.yaml")

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("LoadConfig(%s) failed: %v", cfgPath, err)
	}
	ts, err := sweep.Temperatures(cfg.Sweep.Start, cfg.Sweep.End, cfg.Sweep.Step)
	if err != nil {
		t.Fatalf("Temperatures failed: %v", err)
	}
	if len(ts) != 501 {
		t.Fatalf("expected 501 temperatures, got %d", len(ts))
	}
	if err := sweep.CheckNames(cfg.Output.Prefix, ts); err != nil {
		t.Fatalf("artifact names collide: %v", err)
	}
}

func TestIntegration_SweepWritesConsistentTraces(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.LatticeSize = 16
	cfg.Simulation.Steps = 200_000
	cfg.Simulation.SampleInterval = 1000
	cfg.Simulation.Seed = 42
	cfg.Sweep.Start = 2.0
	cfg.Sweep.End = 3.0
	cfg.Sweep.Step = 0.25
	cfg.Sweep.Workers = 2
	cfg.Output.Dir = t.TempDir()
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	sink, err := output.NewCSVSink(cfg.Output.Dir, cfg.Output.Prefix)
	if err != nil {
		t.Fatalf("NewCSVSink: %v", err)
	}
	runner := sweep.NewRunner(cfg, sink)
	var mu sync.Mutex
	finalEnergy := make(map[float64]int64)
	runner.SetResultHandler(func(_ int, res *ising.Result) {
		mu.Lock()
		defer mu.Unlock()
		finalEnergy[res.Params.Temperature] = res.Energy
	})
	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Completed != 5 {
		t.Fatalf("expected 5 temperatures, got %d", report.Completed)
	}

	for _, temp := range report.Temperatures {
		f, err := os.Open(sink.Path(temp))
		if err != nil {
			t.Fatalf("missing artifact for %v: %v", temp, err)
		}
		trace, err := output.ReadTrace(f)
		_ = f.Close()
		if err != nil {
			t.Fatalf("ReadTrace: %v", err)
		}
		if len(trace) != 200 {
			t.Fatalf("T=%v: expected 200 samples, got %d", temp, len(trace))
		}
		if trace[len(trace)-1] != finalEnergy[temp] {
			t.Fatalf("T=%v: last sample %d != accumulated energy %d", temp, trace[len(trace)-1], finalEnergy[temp])
		}
	}
}

func TestIntegration_EnergyMatchesHamiltonian(t *testing.T) {
	p := ising.Params{
		Size:           12,
		Steps:          50_000,
		Field:          1,
		Coupling:       1,
		Temperature:    2.2,
		SampleInterval: 500,
	}
	src := utils.NewRandSource(9)
	sim, err := ising.NewSimulator(p, src)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	before := hamiltonian(sim.Lattice(), p.Coupling, p.Field)

	res, err := sim.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	after := hamiltonian(res.Lattice, p.Coupling, p.Field)
	if after-before != res.Energy {
		t.Fatalf("H(after)-H(before) = %d, accumulated %d", after-before, res.Energy)
	}
	if !res.Lattice.Valid() {
		t.Fatalf("lattice holds a value other than +-1")
	}
}

// hamiltonian is -J sum_<ij> s_i s_j - H sum_i s_i over nearest-neighbour
// bonds counted once.
func hamiltonian(l *ising.Lattice, j, h int) int64 {
	n := l.Size()
	var e int64
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			s := int64(l.At(r, c))
			right := int64(l.At(r, (c+1)%n))
			down := int64(l.At((r+1)%n, c))
			e -= int64(j) * s * (right + down)
			e -= int64(h) * s
		}
	}
	return e
}
