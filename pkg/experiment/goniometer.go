package experiment

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// AxisAngleRotation returns the rotation matrix for a rotation of angle
// about axis. The angle is in radians unless deg is set.
func AxisAngleRotation(axis r3.Vec, angle float64, deg bool) *mat.Dense {
	if deg {
		angle *= math.Pi / 180.0
	}
	q0, q1, q2, q3 := 1.0, 0.0, 0.0, 0.0
	if math.Mod(angle, 2.0*math.Pi) != 0 {
		h := 0.5 * angle
		q0 = math.Cos(h)
		s := math.Sin(h)
		n := r3.Unit(axis)
		q1, q2, q3 = n.X*s, n.Y*s, n.Z*s
	}
	return mat.NewDense(3, 3, []float64{
		2*(q0*q0+q1*q1) - 1, 2 * (q1*q2 - q0*q3), 2 * (q1*q3 + q0*q2),
		2 * (q1*q2 + q0*q3), 2*(q0*q0+q2*q2) - 1, 2 * (q2*q3 - q0*q1),
		2 * (q1*q3 - q0*q2), 2 * (q2*q3 + q0*q1), 2*(q0*q0+q3*q3) - 1,
	})
}

// Goniometer represents a multi-axis goniometer. One axis is the scan
// axis; axes before it contribute to the fixed sample rotation and axes
// after it to the setting rotation. A single-axis serialization form, with
// explicit matrices and no axis list, is also supported.
type Goniometer struct {
	axes     []r3.Vec
	angles   []float64 // degrees
	names    []string
	scanAxis int

	sampleRotation  *mat.Dense // F
	settingRotation *mat.Dense // S
	rotationAxis    r3.Vec
}

// NewGoniometer builds a multi-axis goniometer. Angles are in degrees and
// scanAxis indexes into axes.
func NewGoniometer(axes []r3.Vec, angles []float64, names []string, scanAxis int) (*Goniometer, error) {
	if scanAxis < 0 || scanAxis >= len(axes) {
		return nil, fmt.Errorf("goniometer scan axis %d out of range of %d axes", scanAxis, len(axes))
	}
	if len(angles) != len(axes) || len(names) != len(axes) {
		return nil, fmt.Errorf("goniometer axes, angles and names must have equal length")
	}
	g := &Goniometer{axes: axes, angles: angles, names: names, scanAxis: scanAxis}
	g.init()
	return g, nil
}

// NewSingleAxisGoniometer builds a goniometer directly from its matrices,
// the form used by the single-axis serialization.
func NewSingleAxisGoniometer(sampleRotation *mat.Dense, rotationAxis r3.Vec, settingRotation *mat.Dense) *Goniometer {
	return &Goniometer{
		sampleRotation:  sampleRotation,
		settingRotation: settingRotation,
		rotationAxis:    rotationAxis,
	}
}

func (g *Goniometer) init() {
	g.settingRotation = g.calculateSettingRotation()
	g.sampleRotation = g.calculateSampleRotation()
	g.rotationAxis = g.axes[g.scanAxis]
}

func (g *Goniometer) calculateSettingRotation() *mat.Dense {
	setting := identity()
	for i := g.scanAxis + 1; i < len(g.axes); i++ {
		r := AxisAngleRotation(g.axes[i], g.angles[i], true)
		var prod mat.Dense
		prod.Mul(r, setting)
		setting = mat.DenseCopyOf(&prod)
	}
	return setting
}

func (g *Goniometer) calculateSampleRotation() *mat.Dense {
	sample := identity()
	for i := 0; i < g.scanAxis; i++ {
		r := AxisAngleRotation(g.axes[i], g.angles[i], true)
		var prod mat.Dense
		prod.Mul(r, sample)
		sample = mat.DenseCopyOf(&prod)
	}
	return sample
}

// SettingRotation returns the setting rotation matrix S.
func (g *Goniometer) SettingRotation() *mat.Dense {
	return g.settingRotation
}

// SampleRotation returns the fixed sample rotation matrix F.
func (g *Goniometer) SampleRotation() *mat.Dense {
	return g.sampleRotation
}

// RotationAxis returns the scan rotation axis.
func (g *Goniometer) RotationAxis() r3.Vec {
	return g.rotationAxis
}

type goniometerJSON struct {
	Axes            [][]float64 `json:"axes,omitempty"`
	Angles          []float64   `json:"angles,omitempty"`
	Names           []string    `json:"names,omitempty"`
	ScanAxis        *int        `json:"scan_axis,omitempty"`
	RotationAxis    []float64   `json:"rotation_axis,omitempty"`
	FixedRotation   []float64   `json:"fixed_rotation,omitempty"`
	SettingRotation []float64   `json:"setting_rotation,omitempty"`
}

// MarshalJSON writes the multi-axis form when axes are known, otherwise
// the single-axis matrix form.
func (g *Goniometer) MarshalJSON() ([]byte, error) {
	if len(g.axes) > 0 {
		w := goniometerJSON{
			Angles:   g.angles,
			Names:    g.names,
			ScanAxis: &g.scanAxis,
		}
		for _, a := range g.axes {
			w.Axes = append(w.Axes, vecToSlice(a))
		}
		return json.Marshal(&w)
	}
	w := goniometerJSON{
		RotationAxis:    vecToSlice(g.rotationAxis),
		FixedRotation:   matToSlice(g.sampleRotation),
		SettingRotation: matToSlice(g.settingRotation),
	}
	return json.Marshal(&w)
}

// UnmarshalJSON accepts either the multi-axis or single-axis form.
func (g *Goniometer) UnmarshalJSON(data []byte) error {
	var w goniometerJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Axes == nil {
		// Single axis form needs all three matrix keys.
		if w.RotationAxis == nil || w.FixedRotation == nil || w.SettingRotation == nil {
			return fmt.Errorf("goniometer JSON has neither multi-axis nor complete single-axis keys")
		}
		axis, err := vecFromSlice(w.RotationAxis)
		if err != nil {
			return fmt.Errorf("goniometer rotation_axis: %w", err)
		}
		fixed, err := matFromSlice(w.FixedRotation)
		if err != nil {
			return fmt.Errorf("goniometer fixed_rotation: %w", err)
		}
		setting, err := matFromSlice(w.SettingRotation)
		if err != nil {
			return fmt.Errorf("goniometer setting_rotation: %w", err)
		}
		*g = *NewSingleAxisGoniometer(fixed, axis, setting)
		return nil
	}
	if w.Angles == nil || w.Names == nil || w.ScanAxis == nil {
		return fmt.Errorf("goniometer JSON is missing angles, names or scan_axis")
	}
	axes := make([]r3.Vec, len(w.Axes))
	for i, a := range w.Axes {
		v, err := vecFromSlice(a)
		if err != nil {
			return fmt.Errorf("goniometer axis %d: %w", i, err)
		}
		axes[i] = v
	}
	built, err := NewGoniometer(axes, w.Angles, w.Names, *w.ScanAxis)
	if err != nil {
		return err
	}
	*g = *built
	return nil
}
