package sweep

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/GoSim-25-26J-441/ising-core/internal/output"
)

// ErrNameCollision is returned when two temperatures map to the same artifact name.
var ErrNameCollision = errors.New("temperature artifact names collide")

// spanEpsilon absorbs representation error in (end-start)/step
const spanEpsilon = 1e-9

// Temperatures returns the inclusive grid start, start+step, ... not exceeding end.
// Points are placed by floats.Span rather than by repeated addition, so the
// grid does not drift.
func Temperatures(start, end, step float64) ([]float64, error) {
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("sweep step must be positive and finite, got %v", step)
	}
	if end < start {
		return nil, fmt.Errorf("sweep end %v is below start %v", end, start)
	}

	count := int(math.Floor((end-start)/step+spanEpsilon)) + 1
	ts := make([]float64, count)
	if count == 1 {
		ts[0] = start
		return ts, nil
	}
	floats.Span(ts, start, start+float64(count-1)*step)
	return ts, nil
}

// CheckNames verifies that every temperature yields a distinct artifact name
func CheckNames(prefix string, ts []float64) error {
	seen := make(map[string]float64, len(ts))
	for _, t := range ts {
		name := output.FileName(prefix, t)
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%w: %v and %v both map to %s", ErrNameCollision, prev, t, name)
		}
		seen[name] = t
	}
	return nil
}
