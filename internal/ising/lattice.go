package ising

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Site addresses a lattice cell by row i and column j.
type Site struct {
	I, J int
}

// Lattice is an n×n grid of spins stored row-major. Every cell holds +1 or -1.
type Lattice struct {
	n     int
	spins []int8
}

// NewLattice creates an n×n lattice with each spin independently drawn as
// +1 or -1 from src. n <= 0 yields an empty lattice.
func NewLattice(n int, src Source) *Lattice {
	if n < 0 {
		n = 0
	}
	l := &Lattice{n: n, spins: make([]int8, n*n)}
	for k := range l.spins {
		if src.Intn(2) == 0 {
			l.spins[k] = 1
		} else {
			l.spins[k] = -1
		}
	}
	return l
}

// FromRows builds a lattice from explicit rows. The rows must form a square
// and every value must be ±1.
func FromRows(rows [][]int8) (*Lattice, error) {
	n := len(rows)
	l := &Lattice{n: n, spins: make([]int8, 0, n*n)}
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), n)
		}
		for j, s := range row {
			if s != 1 && s != -1 {
				return nil, fmt.Errorf("cell (%d,%d) = %d, spins must be +1 or -1", i, j, s)
			}
			l.spins = append(l.spins, s)
		}
	}
	return l, nil
}

// Size returns the lattice dimension n
func (l *Lattice) Size() int {
	return l.n
}

// At returns the spin at (i, j)
func (l *Lattice) At(i, j int) int8 {
	return l.spins[i*l.n+j]
}

// Flip reverses the spin at (i, j)
func (l *Lattice) Flip(i, j int) {
	k := i*l.n + j
	l.spins[k] = -l.spins[k]
}

// Neighbors returns the four nearest neighbours of (i, j) on the torus,
// in the order up, down, left, right.
func (l *Lattice) Neighbors(i, j int) [4]Site {
	n := l.n
	return [4]Site{
		{(n + i - 1) % n, j},
		{(i + 1) % n, j},
		{i, (n + j - 1) % n},
		{i, (j + 1) % n},
	}
}

// NeighborSum returns the sum of the four periodic neighbours of (i, j).
func (l *Lattice) NeighborSum(i, j int) int {
	n := l.n
	up := (n + i - 1) % n
	down := (i + 1) % n
	left := (n + j - 1) % n
	right := (j + 1) % n
	return int(l.spins[up*n+j]) + int(l.spins[down*n+j]) +
		int(l.spins[i*n+left]) + int(l.spins[i*n+right])
}

// Valid reports whether every cell holds +1 or -1
func (l *Lattice) Valid() bool {
	for _, s := range l.spins {
		if s != 1 && s != -1 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy
func (l *Lattice) Clone() *Lattice {
	spins := make([]int8, len(l.spins))
	copy(spins, l.spins)
	return &Lattice{n: l.n, spins: spins}
}

// Rows returns a copy of the lattice as a slice of rows
func (l *Lattice) Rows() [][]int8 {
	rows := make([][]int8, l.n)
	for i := range rows {
		rows[i] = make([]int8, l.n)
		copy(rows[i], l.spins[i*l.n:(i+1)*l.n])
	}
	return rows
}

// Print writes the lattice one row per line, each spin followed by a space.
func (l *Lattice) Print(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < l.n; i++ {
		for j := 0; j < l.n; j++ {
			bw.WriteString(strconv.Itoa(int(l.At(i, j))))
			bw.WriteByte(' ')
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
