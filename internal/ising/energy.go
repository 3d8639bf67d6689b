package ising

import "math"

// DeltaE returns the energy change caused by flipping spin s0 whose four
// neighbours sum to sn, for coupling j and external field h.
func DeltaE(s0, sn, j, h int) int {
	return 2 * s0 * (h + j*sn)
}

// Accept applies the Metropolis rule. Moves that lower the energy are always
// accepted and consume no uniform draw; otherwise the move is accepted with
// probability exp(-dE/T).
func Accept(dE int, temperature float64, src Source) bool {
	if dE < 0 {
		return true
	}
	return src.Float64() < math.Exp(-float64(dE)/temperature)
}

// maxAbsDelta bounds |DeltaE| over every spin configuration.
func maxAbsDelta(j, h int) uint64 {
	return 2 * (absInt(h) + 4*absInt(j))
}

func absInt(v int) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}
