// Package experiment holds the geometry models of a diffraction experiment
// (beam, detector, goniometer, scan, crystal) and their DIALS-style JSON
// serialization.
package experiment

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Probe labels for beam serialization.
const (
	ProbeXray     = "x-ray"
	ProbeElectron = "electron"
)

// BeamProperties are the attributes shared by every beam flavor.
type BeamProperties struct {
	// SampleToSourceDirection is the unit vector from sample to source
	SampleToSourceDirection r3.Vec

	// Divergence and its standard deviation, in radians
	Divergence      float64
	SigmaDivergence float64

	PolarizationNormal   r3.Vec
	PolarizationFraction float64

	Flux         float64
	Transmission float64

	// SampleToSourceDistance in mm, zero when unknown
	SampleToSourceDistance float64

	// Probe is the radiation type written on serialization
	Probe string
}

// defaultBeamProperties mirrors the conventional beam pointing down z with
// near-complete polarization.
func defaultBeamProperties() BeamProperties {
	return BeamProperties{
		SampleToSourceDirection: r3.Vec{Z: 1},
		PolarizationNormal:      r3.Vec{Y: 1},
		PolarizationFraction:    0.999,
		Transmission:            1.0,
		Probe:                   ProbeXray,
	}
}

// Beam is a beam of any flavor. Concrete types are MonochromaticBeam and
// PolychromaticBeam; JSON parsing discriminates on the __id__ key.
type Beam interface {
	json.Marshaler
	Properties() *BeamProperties
}

// MonochromaticBeam is a beam with a single wavelength.
type MonochromaticBeam struct {
	BeamProperties

	// Wavelength in angstrom
	Wavelength float64
}

// NewMonochromaticBeam returns an x-ray beam of the given wavelength with
// default properties.
func NewMonochromaticBeam(wavelength float64) *MonochromaticBeam {
	return &MonochromaticBeam{BeamProperties: defaultBeamProperties(), Wavelength: wavelength}
}

// NewMonoElectronBeam is NewMonochromaticBeam with the electron probe label.
func NewMonoElectronBeam(wavelength float64) *MonochromaticBeam {
	b := NewMonochromaticBeam(wavelength)
	b.Probe = ProbeElectron
	return b
}

// NewMonochromaticBeamFromS0 derives wavelength and direction from an
// incident beam vector s0.
func NewMonochromaticBeamFromS0(s0 r3.Vec) *MonochromaticBeam {
	b := NewMonochromaticBeam(0)
	b.SetS0(s0)
	return b
}

// Properties returns the shared beam attributes.
func (b *MonochromaticBeam) Properties() *BeamProperties {
	return &b.BeamProperties
}

// S0 returns the incident beam vector, of length 1/wavelength, pointing
// from source to sample.
func (b *MonochromaticBeam) S0() r3.Vec {
	return r3.Scale(-1.0/b.Wavelength, b.SampleToSourceDirection)
}

// SetS0 sets wavelength and direction from an incident beam vector.
func (b *MonochromaticBeam) SetS0(s0 r3.Vec) {
	length := r3.Norm(s0)
	b.Wavelength = 1.0 / length
	b.SampleToSourceDirection = r3.Scale(-1.0/length, s0)
}

// beamJSON is the wire form shared by both beam flavors. Pointer fields
// distinguish absent keys from zero values on parse.
type beamJSON struct {
	ID                     string      `json:"__id__"`
	Probe                  string      `json:"probe"`
	Wavelength             *float64    `json:"wavelength,omitempty"`
	WavelengthRange        *[2]float64 `json:"wavelength_range,omitempty"`
	Direction              []float64   `json:"direction,omitempty"`
	Divergence             *float64    `json:"divergence,omitempty"`
	SigmaDivergence        *float64    `json:"sigma_divergence,omitempty"`
	PolarizationNormal     []float64   `json:"polarization_normal,omitempty"`
	PolarizationFraction   *float64    `json:"polarization_fraction,omitempty"`
	Flux                   *float64    `json:"flux,omitempty"`
	Transmission           *float64    `json:"transmission,omitempty"`
	SampleToSourceDistance *float64    `json:"sample_to_source_distance,omitempty"`
}

func (p *BeamProperties) fillWire(w *beamJSON) {
	w.Probe = p.Probe
	w.Direction = vecToSlice(p.SampleToSourceDirection)
	w.Divergence = &p.Divergence
	w.SigmaDivergence = &p.SigmaDivergence
	w.PolarizationNormal = vecToSlice(p.PolarizationNormal)
	w.PolarizationFraction = &p.PolarizationFraction
	w.Flux = &p.Flux
	w.Transmission = &p.Transmission
	w.SampleToSourceDistance = &p.SampleToSourceDistance
}

// applyWire copies any keys present in the wire form, leaving defaults in
// place for absent ones.
func (p *BeamProperties) applyWire(w *beamJSON) error {
	if w.Probe != "" {
		p.Probe = w.Probe
	}
	if w.Direction != nil {
		v, err := vecFromSlice(w.Direction)
		if err != nil {
			return fmt.Errorf("beam direction: %w", err)
		}
		p.SampleToSourceDirection = v
	}
	if w.Divergence != nil {
		p.Divergence = *w.Divergence
	}
	if w.SigmaDivergence != nil {
		p.SigmaDivergence = *w.SigmaDivergence
	}
	if w.PolarizationNormal != nil {
		v, err := vecFromSlice(w.PolarizationNormal)
		if err != nil {
			return fmt.Errorf("beam polarization_normal: %w", err)
		}
		p.PolarizationNormal = v
	}
	if w.PolarizationFraction != nil {
		p.PolarizationFraction = *w.PolarizationFraction
	}
	if w.Flux != nil {
		p.Flux = *w.Flux
	}
	if w.Transmission != nil {
		p.Transmission = *w.Transmission
	}
	if w.SampleToSourceDistance != nil {
		p.SampleToSourceDistance = *w.SampleToSourceDistance
	}
	return nil
}

// MarshalJSON writes the DIALS monochromatic beam layout.
func (b *MonochromaticBeam) MarshalJSON() ([]byte, error) {
	w := beamJSON{ID: "monochromatic", Wavelength: &b.Wavelength}
	b.BeamProperties.fillWire(&w)
	return json.Marshal(&w)
}

// UnmarshalJSON requires a wavelength key; every other key is optional.
func (b *MonochromaticBeam) UnmarshalJSON(data []byte) error {
	var w beamJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Wavelength == nil {
		return fmt.Errorf("key wavelength is missing from the input beam JSON")
	}
	b.BeamProperties = defaultBeamProperties()
	if err := b.BeamProperties.applyWire(&w); err != nil {
		return err
	}
	b.Wavelength = *w.Wavelength
	return nil
}

// PolychromaticBeam is a beam described by a wavelength range.
type PolychromaticBeam struct {
	BeamProperties

	// WavelengthRange is the [min, max] wavelength in angstrom
	WavelengthRange [2]float64
}

// NewPolychromaticBeam returns a beam covering the given wavelength range
// with default properties.
func NewPolychromaticBeam(wavelengthRange [2]float64) *PolychromaticBeam {
	return &PolychromaticBeam{BeamProperties: defaultBeamProperties(), WavelengthRange: wavelengthRange}
}

// Properties returns the shared beam attributes.
func (b *PolychromaticBeam) Properties() *BeamProperties {
	return &b.BeamProperties
}

// MarshalJSON writes the DIALS polychromatic beam layout.
func (b *PolychromaticBeam) MarshalJSON() ([]byte, error) {
	w := beamJSON{ID: "polychromatic", WavelengthRange: &b.WavelengthRange}
	b.BeamProperties.fillWire(&w)
	return json.Marshal(&w)
}

// UnmarshalJSON requires a wavelength_range key.
func (b *PolychromaticBeam) UnmarshalJSON(data []byte) error {
	var w beamJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.WavelengthRange == nil {
		return fmt.Errorf("key wavelength_range is missing from the input beam JSON")
	}
	b.BeamProperties = defaultBeamProperties()
	if err := b.BeamProperties.applyWire(&w); err != nil {
		return err
	}
	b.WavelengthRange = *w.WavelengthRange
	return nil
}

// ParseBeam builds the beam flavor named by the __id__ key. A missing
// __id__ is treated as monochromatic, the common case in existing files.
func ParseBeam(data []byte) (Beam, error) {
	var head struct {
		ID string `json:"__id__"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parsing beam: %w", err)
	}
	switch head.ID {
	case "polychromatic":
		b := &PolychromaticBeam{}
		if err := json.Unmarshal(data, b); err != nil {
			return nil, err
		}
		return b, nil
	case "monochromatic", "":
		b := &MonochromaticBeam{}
		if err := json.Unmarshal(data, b); err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown beam type %q", head.ID)
	}
}
