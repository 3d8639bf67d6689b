package ising

// Source is the random number handle a simulation draws from.
// Implementations are owned by the caller, who controls seeding.
type Source interface {
	// Intn returns a uniform int in [0, n)
	Intn(n int) int
	// Float64 returns a uniform float64 in [0, 1)
	Float64() float64
}
