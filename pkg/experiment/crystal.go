package experiment

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// UnitCell holds cell lengths in angstrom and angles in degrees.
type UnitCell struct {
	A, B, C            float64
	Alpha, Beta, Gamma float64
}

// fracMatrix returns the fractionalization matrix of the cell in the
// standard PDB orthogonalization convention.
func (c UnitCell) fracMatrix() *mat.Dense {
	deg := math.Pi / 180.0
	cosA, cosB := math.Cos(c.Alpha*deg), math.Cos(c.Beta*deg)
	cosG, sinG := math.Cos(c.Gamma*deg), math.Sin(c.Gamma*deg)
	v := math.Sqrt(1 - cosA*cosA - cosB*cosB - cosG*cosG + 2*cosA*cosB*cosG)
	return mat.NewDense(3, 3, []float64{
		1 / c.A, -cosG / (c.A * sinG), (cosA*cosG - cosB) / (c.A * v * sinG),
		0, 1 / (c.B * sinG), (cosB*cosG - cosA) / (c.B * v * sinG),
		0, 0, sinG / (c.C * v),
	})
}

// Crystal holds the crystallographic orientation of the sample: the
// reciprocal-space setting matrix A = U*B, its unit cell, and the Hall
// symbol of the space group. The Hall symbol is carried opaquely; symmetry
// operations are out of scope here.
type Crystal struct {
	a    *mat.Dense // reciprocal setting matrix
	b    *mat.Dense // reciprocal basis from the cell
	u    *mat.Dense // orientation
	cell UnitCell

	HallSymbol string
}

// NewCrystal builds a crystal from its real-space basis vectors and a Hall
// symbol.
func NewCrystal(a, b, c r3.Vec, hallSymbol string) (*Crystal, error) {
	cr := &Crystal{HallSymbol: hallSymbol}
	if err := cr.initFromABC(a, b, c); err != nil {
		return nil, err
	}
	return cr, nil
}

func (c *Crystal) initFromABC(av, bv, cv r3.Vec) error {
	real := mat.NewDense(3, 3, []float64{
		av.X, av.Y, av.Z,
		bv.X, bv.Y, bv.Z,
		cv.X, cv.Y, cv.Z,
	})
	a, err := inverse3(real)
	if err != nil {
		return fmt.Errorf("real-space basis is singular: %w", err)
	}
	c.a = a
	c.setCell(UnitCell{
		A:     r3.Norm(av),
		B:     r3.Norm(bv),
		C:     r3.Norm(cv),
		Alpha: angleBetweenDegrees(bv, cv),
		Beta:  angleBetweenDegrees(cv, av),
		Gamma: angleBetweenDegrees(av, bv),
	})
	return nil
}

// setCell stores the cell, rebuilds B as the transpose of the
// fractionalization matrix, and recomputes U = A * B^-1.
func (c *Crystal) setCell(cell UnitCell) {
	c.cell = cell
	var b mat.Dense
	b.CloneFrom(cell.fracMatrix().T())
	c.b = mat.DenseCopyOf(&b)
	bInv, err := inverse3(c.b)
	if err != nil {
		// A valid cell always has an invertible B.
		panic(err)
	}
	var u mat.Dense
	u.Mul(c.a, bInv)
	c.u = mat.DenseCopyOf(&u)
}

// SetAMatrix replaces the reciprocal setting matrix and rederives the cell
// and orientation from it.
func (c *Crystal) SetAMatrix(a *mat.Dense) error {
	aReal, err := inverse3(a)
	if err != nil {
		return fmt.Errorf("setting matrix is singular: %w", err)
	}
	c.a = mat.DenseCopyOf(a)
	av := r3.Vec{X: aReal.At(0, 0), Y: aReal.At(0, 1), Z: aReal.At(0, 2)}
	bv := r3.Vec{X: aReal.At(1, 0), Y: aReal.At(1, 1), Z: aReal.At(1, 2)}
	cv := r3.Vec{X: aReal.At(2, 0), Y: aReal.At(2, 1), Z: aReal.At(2, 2)}
	c.setCell(UnitCell{
		A:     r3.Norm(av),
		B:     r3.Norm(bv),
		C:     r3.Norm(cv),
		Alpha: angleBetweenDegrees(bv, cv),
		Beta:  angleBetweenDegrees(cv, av),
		Gamma: angleBetweenDegrees(av, bv),
	})
	return nil
}

// AMatrix returns the reciprocal setting matrix A.
func (c *Crystal) AMatrix() *mat.Dense { return c.a }

// BMatrix returns the reciprocal basis matrix B.
func (c *Crystal) BMatrix() *mat.Dense { return c.b }

// UMatrix returns the orientation matrix U.
func (c *Crystal) UMatrix() *mat.Dense { return c.u }

// Cell returns the unit cell.
func (c *Crystal) Cell() UnitCell { return c.cell }

// realBasis returns the current real-space basis vectors (rows of the
// inverse of A).
func (c *Crystal) realBasis() (r3.Vec, r3.Vec, r3.Vec, error) {
	real, err := inverse3(c.a)
	if err != nil {
		return r3.Vec{}, r3.Vec{}, r3.Vec{}, err
	}
	av := r3.Vec{X: real.At(0, 0), Y: real.At(0, 1), Z: real.At(0, 2)}
	bv := r3.Vec{X: real.At(1, 0), Y: real.At(1, 1), Z: real.At(1, 2)}
	cv := r3.Vec{X: real.At(2, 0), Y: real.At(2, 1), Z: real.At(2, 2)}
	return av, bv, cv, nil
}

// NiggliReduce transforms the crystal to its Niggli-reduced cell using the
// Krivy-Gruber algorithm applied directly to the real-space basis vectors,
// then rebuilds A, B and U for the reduced setting.
func (c *Crystal) NiggliReduce() error {
	av, bv, cv, err := c.realBasis()
	if err != nil {
		return err
	}
	av, bv, cv, err = krivyGruber(av, bv, cv)
	if err != nil {
		return err
	}
	return c.initFromABC(av, bv, cv)
}

// krivyGruber runs the Krivy-Gruber reduction steps on a real-space basis.
// The characteristic is (A, B, C, xi, eta, zeta) = (a.a, b.b, c.c, 2b.c,
// 2a.c, 2a.b); each step applies the corresponding basis transformation to
// the vectors themselves, so no separate change-of-basis bookkeeping is
// needed.
func krivyGruber(a, b, c r3.Vec) (r3.Vec, r3.Vec, r3.Vec, error) {
	const maxSteps = 100
	ch := func() (A, B, C, xi, eta, zeta float64) {
		return r3.Dot(a, a), r3.Dot(b, b), r3.Dot(c, c),
			2 * r3.Dot(b, c), 2 * r3.Dot(a, c), 2 * r3.Dot(a, b)
	}
	A, B, C, xi, eta, zeta := ch()
	eps := 1e-9 * math.Cbrt(A*B*C)

	for step := 0; step < maxSteps; step++ {
		A, B, C, xi, eta, zeta = ch()

		// 1: order A <= B, with |xi| <= |eta| on ties.
		if A > B+eps || (math.Abs(A-B) <= eps && math.Abs(xi) > math.Abs(eta)+eps) {
			a, b, c = r3.Scale(-1, b), r3.Scale(-1, a), r3.Scale(-1, c)
			continue
		}
		// 2: order B <= C, with |eta| <= |zeta| on ties.
		if B > C+eps || (math.Abs(B-C) <= eps && math.Abs(eta) > math.Abs(zeta)+eps) {
			a, b, c = r3.Scale(-1, a), r3.Scale(-1, c), r3.Scale(-1, b)
			continue
		}
		if xi*eta*zeta > 0 {
			// 3: make all angle terms positive. Flipping one basis vector
			// changes the sign of the two terms it appears in.
			if xi < 0 && eta < 0 {
				c = r3.Scale(-1, c)
			} else if xi < 0 && zeta < 0 {
				b = r3.Scale(-1, b)
			} else if eta < 0 && zeta < 0 {
				a = r3.Scale(-1, a)
			}
		} else {
			// 4: make all angle terms non-positive.
			if xi > eps && eta > eps {
				c = r3.Scale(-1, c)
			} else if xi > eps && zeta > eps {
				b = r3.Scale(-1, b)
			} else if eta > eps && zeta > eps {
				a = r3.Scale(-1, a)
			} else if xi > eps {
				c = r3.Scale(-1, c)
			} else if eta > eps {
				a = r3.Scale(-1, a)
			} else if zeta > eps {
				b = r3.Scale(-1, b)
			}
		}
		A, B, C, xi, eta, zeta = ch()

		// 5: reduce xi against B.
		if math.Abs(xi) > B+eps ||
			(math.Abs(xi-B) <= eps && 2*eta < zeta-eps) ||
			(math.Abs(xi+B) <= eps && zeta < -eps) {
			c = r3.Sub(c, r3.Scale(sign(xi), b))
			continue
		}
		// 6: reduce eta against A.
		if math.Abs(eta) > A+eps ||
			(math.Abs(eta-A) <= eps && 2*xi < zeta-eps) ||
			(math.Abs(eta+A) <= eps && zeta < -eps) {
			c = r3.Sub(c, r3.Scale(sign(eta), a))
			continue
		}
		// 7: reduce zeta against A.
		if math.Abs(zeta) > A+eps ||
			(math.Abs(zeta-A) <= eps && 2*xi < eta-eps) ||
			(math.Abs(zeta+A) <= eps && eta < -eps) {
			b = r3.Sub(b, r3.Scale(sign(zeta), a))
			continue
		}
		// 8: final body-diagonal condition.
		sum := xi + eta + zeta + A + B
		if sum < -eps || (math.Abs(sum) <= eps && 2*(A+eta)+zeta > eps) {
			c = r3.Add(a, r3.Add(b, c))
			continue
		}
		return a, b, c, nil
	}
	return a, b, c, fmt.Errorf("niggli reduction did not converge")
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

type crystalJSON struct {
	ID                   string    `json:"__id__"`
	RealSpaceA           []float64 `json:"real_space_a"`
	RealSpaceB           []float64 `json:"real_space_b"`
	RealSpaceC           []float64 `json:"real_space_c"`
	SpaceGroupHallSymbol string    `json:"space_group_hall_symbol"`
}

// MarshalJSON writes the real-space basis and Hall symbol.
func (c *Crystal) MarshalJSON() ([]byte, error) {
	av, bv, cv, err := c.realBasis()
	if err != nil {
		return nil, err
	}
	return json.Marshal(&crystalJSON{
		ID:                   "crystal",
		RealSpaceA:           vecToSlice(av),
		RealSpaceB:           vecToSlice(bv),
		RealSpaceC:           vecToSlice(cv),
		SpaceGroupHallSymbol: c.HallSymbol,
	})
}

// UnmarshalJSON requires the three real-space vectors and the Hall symbol.
func (c *Crystal) UnmarshalJSON(data []byte) error {
	var w crystalJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.RealSpaceA == nil || w.RealSpaceB == nil || w.RealSpaceC == nil || w.SpaceGroupHallSymbol == "" {
		return fmt.Errorf("crystal JSON is missing real-space vectors or space_group_hall_symbol")
	}
	av, err := vecFromSlice(w.RealSpaceA)
	if err != nil {
		return fmt.Errorf("crystal real_space_a: %w", err)
	}
	bv, err := vecFromSlice(w.RealSpaceB)
	if err != nil {
		return fmt.Errorf("crystal real_space_b: %w", err)
	}
	cv, err := vecFromSlice(w.RealSpaceC)
	if err != nil {
		return fmt.Errorf("crystal real_space_c: %w", err)
	}
	c.HallSymbol = w.SpaceGroupHallSymbol
	return c.initFromABC(av, bv, cv)
}
