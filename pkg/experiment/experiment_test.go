package experiment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

func requireMatNear(t *testing.T, want []float64, got *mat.Dense, tol float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			require.InDelta(t, want[3*i+j], got.At(i, j), tol, "element (%d,%d)", i, j)
		}
	}
}

func TestMonochromaticBeamS0(t *testing.T) {
	b := NewMonochromaticBeam(1.0)
	s0 := b.S0()
	require.InDelta(t, -1.0, s0.Z, 1e-12)

	b.SetS0(r3.Vec{Z: -2.0})
	require.InDelta(t, 0.5, b.Wavelength, 1e-12)
	require.InDelta(t, 1.0, b.SampleToSourceDirection.Z, 1e-12)
}

func TestMonochromaticBeamJSONRoundTrip(t *testing.T) {
	b := NewMonochromaticBeam(0.9795)
	b.Divergence = 0.001

	data, err := json.Marshal(b)
	require.NoError(t, err)

	parsed, err := ParseBeam(data)
	require.NoError(t, err)
	mono, ok := parsed.(*MonochromaticBeam)
	require.True(t, ok)
	assert.InDelta(t, 0.9795, mono.Wavelength, 1e-12)
	assert.InDelta(t, 0.001, mono.Divergence, 1e-12)
	assert.Equal(t, ProbeXray, mono.Probe)
	assert.InDelta(t, 0.999, mono.PolarizationFraction, 1e-12)
}

func TestMonochromaticBeamRequiresWavelength(t *testing.T) {
	var b MonochromaticBeam
	err := json.Unmarshal([]byte(`{"direction":[0.0,0.0,1.0]}`), &b)
	require.Error(t, err)
}

func TestBeamPartialJSONKeepsDefaults(t *testing.T) {
	var b MonochromaticBeam
	err := json.Unmarshal([]byte(`{"wavelength":1.2}`), &b)
	require.NoError(t, err)
	assert.InDelta(t, 1.2, b.Wavelength, 1e-12)
	assert.InDelta(t, 1.0, b.SampleToSourceDirection.Z, 1e-12)
	assert.InDelta(t, 1.0, b.Transmission, 1e-12)
}

func TestPolychromaticBeamJSON(t *testing.T) {
	parsed, err := ParseBeam([]byte(`{"__id__":"polychromatic","wavelength_range":[0.8,1.2]}`))
	require.NoError(t, err)
	poly, ok := parsed.(*PolychromaticBeam)
	require.True(t, ok)
	assert.Equal(t, [2]float64{0.8, 1.2}, poly.WavelengthRange)
}

func TestElectronBeamProbe(t *testing.T) {
	b := NewMonoElectronBeam(0.02508)
	data, err := json.Marshal(b)
	require.NoError(t, err)
	var w map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &w))
	assert.Equal(t, "electron", w["probe"])
}

func TestScanRoundTrip(t *testing.T) {
	s := NewScan([2]int{1, 900}, [2]float64{0.0, 0.1})
	require.Equal(t, 900, s.NumImages())

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var got Scan
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, [2]int{1, 900}, got.ImageRange())
	assert.Equal(t, [2]float64{0.0, 0.1}, got.Oscillation())
	assert.Equal(t, 900, got.NumImages())
}

func TestSingleAxisGoniometerJSON(t *testing.T) {
	// The fixed rotation is not strictly a rotation, but fine for testing
	// serialization.
	input := `{
		"rotation_axis": [1.0, 0.0, 0.0],
		"fixed_rotation": [0.99, 0.01, 0.0, -0.01, 0.99, 0.0, 0.0, 0.0, 1.0],
		"setting_rotation": [1.0, 0.0, 0.0, 0.0, 1.0, 0.0, 0.0, 0.0, 1.0]
	}`
	var g Goniometer
	require.NoError(t, json.Unmarshal([]byte(input), &g))

	requireMatNear(t, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, g.SettingRotation(), 1e-6)
	requireMatNear(t, []float64{0.99, 0.01, 0, -0.01, 0.99, 0, 0, 0, 1}, g.SampleRotation(), 1e-6)

	data, err := json.Marshal(&g)
	require.NoError(t, err)
	var w struct {
		FixedRotation []float64 `json:"fixed_rotation"`
	}
	require.NoError(t, json.Unmarshal(data, &w))
	assert.Equal(t, []float64{0.99, 0.01, 0, -0.01, 0.99, 0, 0, 0, 1}, w.FixedRotation)
}

func TestMultiAxisGoniometerJSON(t *testing.T) {
	input := `{
		"axes": [
			[1.0, -0.0025, 0.0056],
			[-0.006, -0.0264, -0.9996],
			[1.0, 0.0, 0.0]
		],
		"angles": [0.0, 5.0, 0.0],
		"names": ["phi", "chi", "omega"],
		"scan_axis": 2
	}`
	var g Goniometer
	require.NoError(t, json.Unmarshal([]byte(input), &g))

	requireMatNear(t, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, g.SettingRotation(), 1e-6)
	requireMatNear(t, []float64{
		0.996195, 0.0871244, -0.00227816,
		-0.0871232, 0.996197, 0.000623378,
		0.00232381, -0.000422525, 0.999997,
	}, g.SampleRotation(), 1e-6)
	assert.Equal(t, r3.Vec{X: 1}, g.RotationAxis())

	data, err := json.Marshal(&g)
	require.NoError(t, err)
	var w struct {
		Angles []float64 `json:"angles"`
	}
	require.NoError(t, json.Unmarshal(data, &w))
	assert.Equal(t, []float64{0.0, 5.0, 0.0}, w.Angles)
}

func TestGoniometerScanAxisRange(t *testing.T) {
	_, err := NewGoniometer([]r3.Vec{{X: 1}}, []float64{0}, []string{"omega"}, 1)
	require.Error(t, err)
}

func testPanel(t *testing.T) *Panel {
	t.Helper()
	p, err := NewPanel(
		r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{X: -5, Y: -5, Z: 100},
		[2]float64{0.1, 0.1}, [2]int{100, 100},
	)
	require.NoError(t, err)
	return p
}

func TestPanelGeometry(t *testing.T) {
	p := testPanel(t)
	assert.Equal(t, [2]float64{10, 10}, p.ImageSizeMM())
	assert.InDelta(t, 100.0, p.DirectedDistance(), 1e-12)
	assert.Equal(t, r3.Vec{Z: 1}, p.Normal())
	assert.False(t, p.HasParallaxCorrection())
	assert.True(t, p.IsCoordValidMM([2]float64{5, 5}))
	assert.False(t, p.IsCoordValidMM([2]float64{10, 5}))
}

func TestPanelSimplePxMm(t *testing.T) {
	p := testPanel(t)
	mm := p.PxToMM(25, 40)
	assert.InDelta(t, 2.5, mm[0], 1e-12)
	assert.InDelta(t, 4.0, mm[1], 1e-12)
	px := p.MMToPx(2.5, 4.0)
	assert.InDelta(t, 25.0, px[0], 1e-12)
	assert.InDelta(t, 40.0, px[1], 1e-12)
}

func TestPanelParallaxPxMmInverts(t *testing.T) {
	p := testPanel(t)
	p.PxMmStrategy = "ParallaxCorrectedPxMmStrategy"
	p.Mu = 3.9220836 // Si at ~0.98 angstrom
	p.Thickness = 0.32

	mm := p.PxToMM(25, 40)
	// The correction must actually shift the coordinate.
	assert.NotEqual(t, [2]float64{2.5, 4.0}, mm)

	px := p.MMToPx(mm[0], mm[1])
	assert.InDelta(t, 25.0, px[0], 1e-3)
	assert.InDelta(t, 40.0, px[1], 1e-3)
}

func TestPanelRayIntersection(t *testing.T) {
	p := testPanel(t)
	xy, err := p.RayIntersection(r3.Vec{Z: 1})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, xy[0], 1e-9)
	assert.InDelta(t, 5.0, xy[1], 1e-9)

	_, err = p.RayIntersection(r3.Vec{Z: -1})
	require.Error(t, err)
}

func TestDetectorRayIntersection(t *testing.T) {
	d := NewDetector(testPanel(t))

	idx, xy, ok := d.RayIntersection(r3.Vec{Z: 1})
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.InDelta(t, 5.0, xy[0], 1e-9)
	assert.InDelta(t, 5.0, xy[1], 1e-9)

	// A ray pointing away from every panel misses.
	_, _, ok = d.RayIntersection(r3.Vec{Z: -1})
	assert.False(t, ok)
}

func TestPanelJSONRoundTrip(t *testing.T) {
	p := testPanel(t)
	p.Name = "panel0"
	p.Thickness = 0.45
	p.Mu = 3.92
	p.PxMmStrategy = "ParallaxCorrectedPxMmStrategy"

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var got Panel
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "panel0", got.Name)
	assert.Equal(t, p.PixelSize, got.PixelSize)
	assert.Equal(t, p.ImageSize, got.ImageSize)
	assert.True(t, got.HasParallaxCorrection())
	requireMatNear(t, matToSlice(p.DMatrix()), got.DMatrix(), 1e-12)
}

func TestCrystalFromVectors(t *testing.T) {
	c, err := NewCrystal(r3.Vec{X: 10}, r3.Vec{Y: 11}, r3.Vec{Z: 12}, "-P 1")
	require.NoError(t, err)

	cell := c.Cell()
	assert.InDelta(t, 10.0, cell.A, 1e-9)
	assert.InDelta(t, 11.0, cell.B, 1e-9)
	assert.InDelta(t, 12.0, cell.C, 1e-9)
	assert.InDelta(t, 90.0, cell.Alpha, 1e-9)
	assert.InDelta(t, 90.0, cell.Beta, 1e-9)
	assert.InDelta(t, 90.0, cell.Gamma, 1e-9)

	// For an axis-aligned orthorhombic cell the orientation is identity
	// and A is the reciprocal of the cell lengths.
	requireMatNear(t, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, c.UMatrix(), 1e-9)
	requireMatNear(t, []float64{1.0 / 10, 0, 0, 0, 1.0 / 11, 0, 0, 0, 1.0 / 12}, c.AMatrix(), 1e-9)
}

func TestCrystalJSONRoundTrip(t *testing.T) {
	c, err := NewCrystal(
		r3.Vec{X: 10, Y: 1}, r3.Vec{Y: 11}, r3.Vec{X: -1, Z: 12}, "P 2ac 2ab",
	)
	require.NoError(t, err)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var got Crystal
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "P 2ac 2ab", got.HallSymbol)
	requireMatNear(t, matToSlice(c.AMatrix()), got.AMatrix(), 1e-9)

	cell := got.Cell()
	assert.InDelta(t, c.Cell().A, cell.A, 1e-9)
	assert.InDelta(t, c.Cell().Gamma, cell.Gamma, 1e-9)
}

func TestNiggliReduce(t *testing.T) {
	// c has a component along a; the reduced basis is orthogonal with
	// lengths 2, 3, 4.
	c, err := NewCrystal(r3.Vec{X: 2}, r3.Vec{Y: 3}, r3.Vec{X: 2, Z: 4}, "-P 1")
	require.NoError(t, err)
	require.NoError(t, c.NiggliReduce())

	cell := c.Cell()
	assert.InDelta(t, 2.0, cell.A, 1e-9)
	assert.InDelta(t, 3.0, cell.B, 1e-9)
	assert.InDelta(t, 4.0, cell.C, 1e-9)
	assert.InDelta(t, 90.0, cell.Alpha, 1e-6)
	assert.InDelta(t, 90.0, cell.Beta, 1e-6)
	assert.InDelta(t, 90.0, cell.Gamma, 1e-6)
}

func TestNiggliReduceStable(t *testing.T) {
	// An already reduced cell must come back unchanged.
	c, err := NewCrystal(r3.Vec{X: 5}, r3.Vec{Y: 6}, r3.Vec{Z: 7}, "-P 1")
	require.NoError(t, err)
	require.NoError(t, c.NiggliReduce())

	cell := c.Cell()
	assert.InDelta(t, 5.0, cell.A, 1e-9)
	assert.InDelta(t, 6.0, cell.B, 1e-9)
	assert.InDelta(t, 7.0, cell.C, 1e-9)
}

const experimentListFixture = `{
	"__id__": "ExperimentList",
	"experiment": [{
		"__id__": "Experiment",
		"identifier": "f6c5d171-fabb-4c67-1111-222233334444",
		"beam": 0, "detector": 0, "goniometer": 0, "scan": 0, "imageset": 0
	}],
	"beam": [{"__id__": "monochromatic", "probe": "x-ray", "wavelength": 0.9795}],
	"detector": [{"panels": [{
		"name": "panel0", "type": "SENSOR_PAD",
		"fast_axis": [1.0, 0.0, 0.0], "slow_axis": [0.0, 1.0, 0.0],
		"origin": [-5.0, -5.0, 100.0],
		"raw_image_offset": [0, 0], "image_size": [100, 100],
		"pixel_size": [0.1, 0.1], "trusted_range": [0.0, 65536.0],
		"thickness": 0.45, "mu": 3.92, "mask": [], "identifier": "",
		"gain": 1.0, "pedestal": 0.0,
		"px_mm_strategy": {"type": "ParallaxCorrectedPxMmStrategy"}
	}]}],
	"goniometer": [{
		"rotation_axis": [1.0, 0.0, 0.0],
		"fixed_rotation": [1.0, 0.0, 0.0, 0.0, 1.0, 0.0, 0.0, 0.0, 1.0],
		"setting_rotation": [1.0, 0.0, 0.0, 0.0, 1.0, 0.0, 0.0, 0.0, 1.0]
	}],
	"scan": [{"image_range": [1, 4], "oscillation": [0.0, 0.25]}],
	"imageset": [{
		"__id__": "ImageSequence",
		"template": "run-266702.h5",
		"single_file_indices": [0, 1, 2, 3]
	}]
}`

func TestParseExperimentList(t *testing.T) {
	e, err := ParseExperimentList([]byte(experimentListFixture))
	require.NoError(t, err)

	assert.Equal(t, "f6c5d171-fabb-4c67-1111-222233334444", e.Identifier)
	mono, ok := e.Beam.(*MonochromaticBeam)
	require.True(t, ok)
	assert.InDelta(t, 0.9795, mono.Wavelength, 1e-12)
	require.Len(t, e.Detector.Panels, 1)
	assert.Equal(t, "panel0", e.Detector.Panels[0].Name)
	assert.Equal(t, [2]int{1, 4}, e.Scan.ImageRange())
	assert.Nil(t, e.Crystal)

	var seq ImageSequence
	require.NoError(t, json.Unmarshal(e.ImageSet, &seq))
	assert.Equal(t, "run-266702.h5", seq.Template)
	assert.Equal(t, []int{0, 1, 2, 3}, seq.SingleFileIndices)
}

func TestExperimentListRoundTrip(t *testing.T) {
	e, err := ParseExperimentList([]byte(experimentListFixture))
	require.NoError(t, err)

	crystal, err := NewCrystal(r3.Vec{X: 10}, r3.Vec{Y: 11}, r3.Vec{Z: 12}, "-P 1")
	require.NoError(t, err)
	e.Crystal = crystal

	data, err := json.Marshal(e)
	require.NoError(t, err)

	got, err := ParseExperimentList(data)
	require.NoError(t, err)
	assert.Equal(t, e.Identifier, got.Identifier)
	require.NotNil(t, got.Crystal)
	assert.Equal(t, "-P 1", got.Crystal.HallSymbol)
	assert.Equal(t, [2]float64{0.0, 0.25}, got.Scan.Oscillation())
	requireMatNear(t, matToSlice(crystal.AMatrix()), got.Crystal.AMatrix(), 1e-9)
}

func TestExperimentWithoutCrystalOmitsIndex(t *testing.T) {
	e, err := ParseExperimentList([]byte(experimentListFixture))
	require.NoError(t, err)

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var w struct {
		Experiment []map[string]interface{} `json:"experiment"`
		Crystal    []interface{}            `json:"crystal"`
	}
	require.NoError(t, json.Unmarshal(data, &w))
	require.Len(t, w.Experiment, 1)
	_, hasCrystal := w.Experiment[0]["crystal"]
	assert.False(t, hasCrystal)
	assert.Empty(t, w.Crystal)
}
