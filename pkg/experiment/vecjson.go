package experiment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vectors serialize as [x, y, z] arrays and 3x3 matrices as row-major
// 9-element arrays, matching the DIALS experiment JSON layout.

func vecToSlice(v r3.Vec) []float64 {
	return []float64{v.X, v.Y, v.Z}
}

func vecFromSlice(s []float64) (r3.Vec, error) {
	if len(s) != 3 {
		return r3.Vec{}, fmt.Errorf("expected 3 components, got %d", len(s))
	}
	return r3.Vec{X: s[0], Y: s[1], Z: s[2]}, nil
}

func matToSlice(m *mat.Dense) []float64 {
	out := make([]float64, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[3*i+j] = m.At(i, j)
		}
	}
	return out
}

func matFromSlice(s []float64) (*mat.Dense, error) {
	if len(s) != 9 {
		return nil, fmt.Errorf("expected 9 components, got %d", len(s))
	}
	vals := make([]float64, 9)
	copy(vals, s)
	return mat.NewDense(3, 3, vals), nil
}

func identity() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

func inverse3(m *mat.Dense) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, fmt.Errorf("inverting matrix: %w", err)
	}
	return mat.DenseCopyOf(&inv), nil
}

// mulVec applies a 3x3 matrix to a vector.
func mulVec(m *mat.Dense, v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m.At(0, 0)*v.X + m.At(0, 1)*v.Y + m.At(0, 2)*v.Z,
		Y: m.At(1, 0)*v.X + m.At(1, 1)*v.Y + m.At(1, 2)*v.Z,
		Z: m.At(2, 0)*v.X + m.At(2, 1)*v.Y + m.At(2, 2)*v.Z,
	}
}

// angleBetweenDegrees returns the angle between two vectors in degrees,
// snapping to exactly 0 or 180 for (anti)parallel inputs.
func angleBetweenDegrees(v1, v2 r3.Vec) float64 {
	normdot := r3.Dot(v1, v2) / (r3.Norm(v1) * r3.Norm(v2))
	if math.Abs(normdot-1.0) < 1e-6 {
		return 0.0
	}
	if math.Abs(normdot+1.0) < 1e-6 {
		return 180.0
	}
	return math.Acos(normdot) * 180.0 / math.Pi
}
