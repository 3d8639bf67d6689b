package ising

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// DefaultSampleInterval is the number of attempted flips between trace samples.
const DefaultSampleInterval uint64 = 1000

// ErrInvalidParams is returned when simulation parameters cannot produce a run.
var ErrInvalidParams = errors.New("invalid simulation parameters")

// SamplingMode selects when the running energy is appended to the trace.
type SamplingMode string

const (
	// SampleInterval records after every completed block of SampleInterval
	// attempted flips, whether or not the last flip was accepted.
	SampleInterval SamplingMode = "interval"
	// SampleAccepted records only on steps whose index is a multiple of
	// SampleInterval and whose flip was accepted.
	SampleAccepted SamplingMode = "accepted"
)

// ParseSamplingMode parses a sampling mode name. Empty selects SampleInterval.
func ParseSamplingMode(s string) (SamplingMode, error) {
	switch SamplingMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SampleInterval:
		return SampleInterval, nil
	case SampleAccepted:
		return SampleAccepted, nil
	default:
		return "", fmt.Errorf("%w: unknown sampling mode %q (must be interval or accepted)", ErrInvalidParams, s)
	}
}

// Params holds the immutable inputs of one simulation run.
type Params struct {
	Size           int
	Steps          uint64
	Field          int // H
	Coupling       int // J
	Temperature    float64
	SampleInterval uint64
	Sampling       SamplingMode
}

// withDefaults fills zero-valued optional fields
func (p Params) withDefaults() Params {
	if p.SampleInterval == 0 {
		p.SampleInterval = DefaultSampleInterval
	}
	if p.Sampling == "" {
		p.Sampling = SampleInterval
	}
	return p
}

// Validate checks that the parameters describe a runnable simulation.
func (p Params) Validate() error {
	if p.Size < 1 {
		return fmt.Errorf("%w: lattice size must be at least 1, got %d", ErrInvalidParams, p.Size)
	}
	if math.IsNaN(p.Temperature) || math.IsInf(p.Temperature, 0) || p.Temperature <= 0 {
		return fmt.Errorf("%w: temperature must be positive and finite, got %v", ErrInvalidParams, p.Temperature)
	}
	if p.SampleInterval == 0 {
		return fmt.Errorf("%w: sample interval must be positive", ErrInvalidParams)
	}
	if p.Sampling != SampleInterval && p.Sampling != SampleAccepted {
		return fmt.Errorf("%w: unknown sampling mode %q", ErrInvalidParams, p.Sampling)
	}
	if absInt(p.Field)+4*absInt(p.Coupling) > math.MaxInt32 {
		return fmt.Errorf("%w: |H| + 4|J| must not exceed %d", ErrInvalidParams, math.MaxInt32)
	}
	// The accumulator is int64; every accepted flip moves it by at most maxAbsDelta.
	hi, lo := bits.Mul64(p.Steps, maxAbsDelta(p.Coupling, p.Field))
	if hi != 0 || lo > math.MaxInt64 {
		return fmt.Errorf("%w: %d steps with H=%d J=%d can overflow the energy accumulator",
			ErrInvalidParams, p.Steps, p.Field, p.Coupling)
	}
	return nil
}

// ExpectedSamples returns the trace length for SampleInterval, or the upper
// bound on it for SampleAccepted.
func (p Params) ExpectedSamples() uint64 {
	p = p.withDefaults()
	if p.Sampling == SampleAccepted {
		return (p.Steps + p.SampleInterval - 1) / p.SampleInterval
	}
	return p.Steps / p.SampleInterval
}
