package ranging

import "math"

// FuseParams configures the triangulation step.
type FuseParams struct {
	Max        int
	Separation int
	Margin     float64
}

// Fuse combines the distances seen by the two sensors into one.
// Negative inputs count as zero. If both sensors are at or beyond Max nothing
// is in sight. Readings further apart than Separation*Margin belong to two
// different objects and the closer one wins; otherwise both see the same
// object and the distances are averaged.
func Fuse(a, b int, p FuseParams) int {
	if a < 0 {
		a = 0
	}
	if b < 0 {
		b = 0
	}

	if a >= p.Max && b >= p.Max {
		return p.Max
	}

	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	if float64(diff) > float64(p.Separation)*p.Margin {
		return min(a, b)
	}
	return (a + b) / 2
}

// Smooth applies one step of the exponential filter and clamps the result to [0, max].
func Smooth(prev, raw int, alpha float64, max int) int {
	v := alpha*float64(raw) + (1-alpha)*float64(prev)
	return clamp(int(math.Round(v)), max)
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
