package ising

import (
	"testing"
)

// scriptedSource replays fixed draws and fails the test when it runs dry.
type scriptedSource struct {
	t      *testing.T
	ints   []int
	floats []float64
}

func (s *scriptedSource) Intn(n int) int {
	s.t.Helper()
	if len(s.ints) == 0 {
		s.t.Fatalf("scriptedSource: unexpected Intn(%d)", n)
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func (s *scriptedSource) Float64() float64 {
	s.t.Helper()
	if len(s.floats) == 0 {
		s.t.Fatal("scriptedSource: unexpected Float64()")
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

// hamiltonian computes E = -J Σ<ij> s_i s_j - H Σ s_i over each bond once.
func hamiltonian(l *Lattice, j, h int) int64 {
	var e int64
	n := l.Size()
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
