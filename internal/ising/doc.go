// Package ising implements a Metropolis Monte-Carlo simulation of the 2D Ising
// model on an n×n square lattice with periodic boundary conditions.
//
// Main Types:
//   - Lattice: the n×n grid of ±1 spins, indexed on a torus
//   - Params: immutable per-run simulation parameters (n, steps, H, J, T, sampling)
//   - Simulator: the single-spin-flip stepper producing an energy trace
//   - Source: the random number handle the caller owns and seeds
//
// Usage:
//
//	src := utils.NewRandSource(42)
//	sim, err := ising.NewSimulator(ising.Params{
//	    Size:           100,
//	    Steps:          1_000_000,
//	    Coupling:       1,
//	    Temperature:    2.5,
//	    SampleInterval: 1000,
//	}, src)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := sim.Run(ctx)
//	// res.Trace holds the cumulative energy change at every sample
package ising
