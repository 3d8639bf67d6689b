package config

import (
	"fmt"
	"math"
	"os"

	"github.com/GoSim-25-26J-441/ising-core/internal/ising"
)

// minSweepStep keeps "%f" file names (six decimals) distinct
const minSweepStep = 1e-6

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate performs validation on the configuration
func Validate(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("invalid log_format: %s (must be text or json)", cfg.LogFormat)
	}

	if err := validateSimulation(&cfg.Simulation); err != nil {
		return fmt.Errorf("simulation validation failed: %w", err)
	}
	if err := validateSweep(&cfg.Sweep); err != nil {
		return fmt.Errorf("sweep validation failed: %w", err)
	}
	if cfg.Output.Dir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}

	// Check the numeric limits the simulator enforces, at the lowest temperature.
	if err := cfg.Params(cfg.Sweep.Start).Validate(); err != nil {
		return err
	}
	return nil
}

// validateSimulation validates the simulation section
func validateSimulation(s *Simulation) error {
	if s.LatticeSize < 1 {
		return fmt.Errorf("lattice_size must be positive, got %d", s.LatticeSize)
	}
	if s.SampleInterval == 0 {
		return fmt.Errorf("sample_interval must be positive")
	}
	if _, err := ising.ParseSamplingMode(s.Sampling); err != nil {
		return err
	}
	return nil
}

// validateSweep validates the temperature grid
func validateSweep(s *Sweep) error {
	for name, v := range map[string]float64{"start": s.Start, "end": s.End, "step": s.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite", name)
		}
	}
	if s.Start <= 0 {
		return fmt.Errorf("start temperature must be positive, got %g", s.Start)
	}
	if s.End < s.Start {
		return fmt.Errorf("end temperature %g is below start %g", s.End, s.Start)
	}
	if s.Step < minSweepStep {
		return fmt.Errorf("step must be at least %g, got %g", minSweepStep, s.Step)
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", s.Workers)
	}
	return nil
}

// Params builds the simulator parameters for temperature t
func (c *Config) Params(t float64) ising.Params {
	mode, _ := ising.ParseSamplingMode(c.Simulation.Sampling)
	return ising.Params{
		Size:           c.Simulation.LatticeSize,
		Steps:          c.Simulation.Steps,
		Field:          c.Simulation.Field,
		Coupling:       c.Simulation.Coupling,
		Temperature:    t,
		SampleInterval: c.Simulation.SampleInterval,
		Sampling:       mode,
	}
}
