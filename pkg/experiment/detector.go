package experiment

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// simplePxMmStrategy is the strategy name that disables parallax
// correction; any other strategy enables it.
const simplePxMmStrategy = "SimplePxMmStrategy"

// attenuationLength returns the mean penetration depth of a ray s1 into a
// sensor of thickness t0 with linear absorption coefficient mu, given the
// panel plane spanned by fast and slow at origin.
func attenuationLength(mu, t0 float64, s1, fast, slow, origin r3.Vec) float64 {
	normal := r3.Cross(fast, slow)
	if r3.Dot(origin, normal) < 0 {
		normal = r3.Scale(-1, normal)
	}
	cosT := r3.Dot(s1, normal)
	return (1.0 / mu) - (t0/cosT+1.0/mu)*math.Exp(-mu*t0/cosT)
}

// parallaxCorrection shifts mm coordinates to compensate for oblique
// absorption in the sensor, the reverse of the correction applied when
// converting pixels to mm.
func parallaxCorrection(mu, t0 float64, xy [2]float64, fast, slow, origin r3.Vec) [2]float64 {
	ray := r3.Unit(r3.Add(origin, r3.Add(r3.Scale(xy[0], fast), r3.Scale(xy[1], slow))))
	offset := attenuationLength(mu, t0, ray, fast, slow, origin)
	return [2]float64{
		xy[0] + r3.Dot(ray, fast)*offset,
		xy[1] + r3.Dot(ray, slow)*offset,
	}
}

// Panel is a single panel of a detector: the unit of geometry used for
// processing, which may cover several physical modules.
type Panel struct {
	Name string
	Type string

	FastAxis r3.Vec
	SlowAxis r3.Vec
	Origin   r3.Vec

	// PixelSize in mm along (fast, slow)
	PixelSize [2]float64

	// ImageSize in pixels along (fast, slow)
	ImageSize [2]int

	TrustedRange   [2]float64
	Thickness      float64
	Mu             float64
	RawImageOffset [2]int
	Gain           float64
	Pedestal       float64
	PxMmStrategy   string

	normal r3.Vec
	d      *mat.Dense // panel frame: columns fast, slow, origin
	dInv   *mat.Dense
}

// NewPanel builds a panel from its frame vectors and pixel layout, with
// the simple pixel-to-mm strategy and pad-sensor defaults.
func NewPanel(fast, slow, origin r3.Vec, pixelSize [2]float64, imageSize [2]int) (*Panel, error) {
	p := &Panel{
		Name:         "module",
		Type:         "SENSOR_PAD",
		FastAxis:     fast,
		SlowAxis:     slow,
		Origin:       origin,
		PixelSize:    pixelSize,
		ImageSize:    imageSize,
		TrustedRange: [2]float64{0.0, 65536.0},
		Gain:         1.0,
		PxMmStrategy: simplePxMmStrategy,
	}
	if err := p.setFrame(fast, slow, origin); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Panel) setFrame(fast, slow, origin r3.Vec) error {
	p.FastAxis = fast
	p.SlowAxis = slow
	p.Origin = origin
	p.normal = r3.Cross(fast, slow)
	p.d = mat.NewDense(3, 3, []float64{
		fast.X, slow.X, origin.X,
		fast.Y, slow.Y, origin.Y,
		fast.Z, slow.Z, origin.Z,
	})
	dInv, err := inverse3(p.d)
	if err != nil {
		return fmt.Errorf("panel frame is singular: %w", err)
	}
	p.dInv = dInv
	return nil
}

// DMatrix returns the panel frame matrix d, its columns the fast axis,
// slow axis and origin.
func (p *Panel) DMatrix() *mat.Dense {
	return p.d
}

// InvDMatrix returns the inverse of the panel frame matrix.
func (p *Panel) InvDMatrix() *mat.Dense {
	return p.dInv
}

// Normal returns the panel plane normal (fast x slow).
func (p *Panel) Normal() r3.Vec {
	return p.normal
}

// ImageSizeMM returns the panel extent in mm along (fast, slow).
func (p *Panel) ImageSizeMM() [2]float64 {
	return [2]float64{
		float64(p.ImageSize[0]) * p.PixelSize[0],
		float64(p.ImageSize[1]) * p.PixelSize[1],
	}
}

// DirectedDistance returns the distance from the lab origin to the panel
// plane along its normal.
func (p *Panel) DirectedDistance() float64 {
	return r3.Dot(p.Origin, p.normal)
}

// HasParallaxCorrection reports whether pixel-mm conversion corrects for
// oblique sensor absorption.
func (p *Panel) HasParallaxCorrection() bool {
	return p.PxMmStrategy != "" && p.PxMmStrategy != simplePxMmStrategy
}

// IsCoordValidMM reports whether the mm coordinate lies on the panel.
func (p *Panel) IsCoordValidMM(xy [2]float64) bool {
	size := p.ImageSizeMM()
	return 0 <= xy[0] && xy[0] < size[0] && 0 <= xy[1] && xy[1] < size[1]
}

// Update replaces the panel frame with a new d matrix.
func (p *Panel) Update(d *mat.Dense) error {
	fast := r3.Vec{X: d.At(0, 0), Y: d.At(1, 0), Z: d.At(2, 0)}
	slow := r3.Vec{X: d.At(0, 1), Y: d.At(1, 1), Z: d.At(2, 1)}
	origin := r3.Vec{X: d.At(0, 2), Y: d.At(1, 2), Z: d.At(2, 2)}
	return p.setFrame(fast, slow, origin)
}

// RayIntersection maps a scattered beam vector s1 to the mm coordinate
// where it meets the panel plane.
func (p *Panel) RayIntersection(s1 r3.Vec) ([2]float64, error) {
	v := mulVec(p.dInv, s1)
	if v.Z <= 0 {
		return [2]float64{}, fmt.Errorf("ray does not intersect panel from the front")
	}
	return [2]float64{v.X / v.Z, v.Y / v.Z}, nil
}

// PxToMM converts a pixel coordinate to mm in the panel plane, applying
// the parallax correction when the panel's strategy calls for it.
func (p *Panel) PxToMM(x, y float64) [2]float64 {
	x1 := x * p.PixelSize[0]
	x2 := y * p.PixelSize[1]
	if !p.HasParallaxCorrection() {
		return [2]float64{x1, x2}
	}
	s1 := r3.Unit(r3.Add(p.Origin, r3.Add(r3.Scale(x1, p.FastAxis), r3.Scale(x2, p.SlowAxis))))
	o := attenuationLength(p.Mu, p.Thickness, s1, p.FastAxis, p.SlowAxis, p.Origin)
	return [2]float64{
		x1 - r3.Dot(s1, p.FastAxis)*o,
		x2 - r3.Dot(s1, p.SlowAxis)*o,
	}
}

// MMToPx converts a mm coordinate in the panel plane to pixels, the
// reverse of PxToMM.
func (p *Panel) MMToPx(x, y float64) [2]float64 {
	xy := [2]float64{x, y}
	if p.HasParallaxCorrection() {
		xy = parallaxCorrection(p.Mu, p.Thickness, xy, p.FastAxis, p.SlowAxis, p.Origin)
	}
	return [2]float64{xy[0] / p.PixelSize[0], xy[1] / p.PixelSize[1]}
}

type panelJSON struct {
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	FastAxis       []float64  `json:"fast_axis"`
	SlowAxis       []float64  `json:"slow_axis"`
	Origin         []float64  `json:"origin"`
	RawImageOffset [2]int     `json:"raw_image_offset"`
	ImageSize      [2]int     `json:"image_size"`
	PixelSize      [2]float64 `json:"pixel_size"`
	TrustedRange   [2]float64 `json:"trusted_range"`
	Thickness      float64    `json:"thickness"`
	Mu             float64    `json:"mu"`
	Mask           []int      `json:"mask"`
	Identifier     string     `json:"identifier"`
	Gain           float64    `json:"gain"`
	Pedestal       float64    `json:"pedestal"`
	PxMmStrategy   struct {
		Type string `json:"type"`
	} `json:"px_mm_strategy"`
}

// MarshalJSON writes the DIALS panel layout.
func (p *Panel) MarshalJSON() ([]byte, error) {
	w := panelJSON{
		Name:           p.Name,
		Type:           p.Type,
		FastAxis:       vecToSlice(p.FastAxis),
		SlowAxis:       vecToSlice(p.SlowAxis),
		Origin:         vecToSlice(p.Origin),
		RawImageOffset: p.RawImageOffset,
		ImageSize:      p.ImageSize,
		PixelSize:      p.PixelSize,
		TrustedRange:   p.TrustedRange,
		Thickness:      p.Thickness,
		Mu:             p.Mu,
		Mask:           []int{},
		Gain:           p.Gain,
		Pedestal:       p.Pedestal,
	}
	w.PxMmStrategy.Type = p.PxMmStrategy
	return json.Marshal(&w)
}

// UnmarshalJSON reads the DIALS panel layout and derives the frame
// matrices.
func (p *Panel) UnmarshalJSON(data []byte) error {
	var w panelJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	fast, err := vecFromSlice(w.FastAxis)
	if err != nil {
		return fmt.Errorf("panel fast_axis: %w", err)
	}
	slow, err := vecFromSlice(w.SlowAxis)
	if err != nil {
		return fmt.Errorf("panel slow_axis: %w", err)
	}
	origin, err := vecFromSlice(w.Origin)
	if err != nil {
		return fmt.Errorf("panel origin: %w", err)
	}
	p.Name = w.Name
	p.Type = w.Type
	p.PixelSize = w.PixelSize
	p.ImageSize = w.ImageSize
	p.TrustedRange = w.TrustedRange
	p.Thickness = w.Thickness
	p.Mu = w.Mu
	p.RawImageOffset = w.RawImageOffset
	p.Gain = w.Gain
	p.Pedestal = w.Pedestal
	p.PxMmStrategy = w.PxMmStrategy.Type
	return p.setFrame(fast, slow, origin)
}

// Detector is a collection of panels, flat for now with no hierarchy.
type Detector struct {
	Panels []*Panel
}

// NewDetector builds a detector from its panels.
func NewDetector(panels ...*Panel) *Detector {
	return &Detector{Panels: panels}
}

// RayIntersection finds the panel a scattered beam vector s1 meets,
// returning its index and the mm intersection coordinate. When panels
// overlap along the ray, the panel closest to the crystal wins. The bool
// result reports whether any panel was hit.
func (d *Detector) RayIntersection(s1 r3.Vec) (int, [2]float64, bool) {
	bestPanel := -1
	var bestXY [2]float64
	wMax := 0.0
	for i, p := range d.Panels {
		v := mulVec(p.InvDMatrix(), s1)
		if v.Z <= wMax {
			continue
		}
		xy := [2]float64{v.X / v.Z, v.Y / v.Z}
		if p.IsCoordValidMM(xy) {
			bestPanel = i
			bestXY = xy
			wMax = v.Z
		}
	}
	if bestPanel < 0 {
		return -1, [2]float64{}, false
	}
	return bestPanel, bestXY, true
}

// Update replaces the frame of the first panel.
func (d *Detector) Update(frame *mat.Dense) error {
	if len(d.Panels) == 0 {
		return fmt.Errorf("detector has no panels")
	}
	return d.Panels[0].Update(frame)
}

type detectorJSON struct {
	Panels []*Panel `json:"panels"`
}

// MarshalJSON writes the panel list.
func (d *Detector) MarshalJSON() ([]byte, error) {
	panels := d.Panels
	if panels == nil {
		panels = []*Panel{}
	}
	return json.Marshal(&detectorJSON{Panels: panels})
}

// UnmarshalJSON reads the panel list.
func (d *Detector) UnmarshalJSON(data []byte) error {
	var w detectorJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	d.Panels = w.Panels
	return nil
}
