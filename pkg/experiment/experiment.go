package experiment

import (
	"encoding/json"
	"fmt"
)

// Experiment ties together the models of one measurement: beam, detector,
// goniometer, scan, optionally a crystal, and the imageset description. It
// serializes as a one-element ExperimentList document, the interchange
// format used by processing pipelines.
type Experiment struct {
	Identifier string
	Beam       Beam
	Detector   *Detector
	Goniometer *Goniometer
	Scan       *Scan

	// Crystal is nil before indexing.
	Crystal *Crystal

	// ImageSet is the imageset entry, retained verbatim for propagation.
	ImageSet json.RawMessage
}

type experimentEntryJSON struct {
	ID         string `json:"__id__"`
	Identifier string `json:"identifier"`
	Beam       int    `json:"beam"`
	Detector   int    `json:"detector"`
	Goniometer int    `json:"goniometer"`
	Scan       int    `json:"scan"`
	ImageSet   int    `json:"imageset"`
	Crystal    *int   `json:"crystal,omitempty"`
}

type experimentListJSON struct {
	ID          string                `json:"__id__"`
	Experiments []experimentEntryJSON `json:"experiment"`
	Beams       []json.RawMessage     `json:"beam"`
	Detectors   []*Detector           `json:"detector"`
	Goniometers []*Goniometer         `json:"goniometer"`
	Scans       []*Scan               `json:"scan"`
	Crystals    []*Crystal            `json:"crystal"`
	ImageSets   []json.RawMessage     `json:"imageset"`
}

// ParseExperimentList reads a one-experiment ExperimentList document.
func ParseExperimentList(data []byte) (*Experiment, error) {
	var w experimentListJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing experiment list: %w", err)
	}
	if len(w.Experiments) == 0 {
		return nil, fmt.Errorf("experiment list has no experiment entries")
	}
	if len(w.Beams) == 0 || len(w.Scans) == 0 || len(w.Goniometers) == 0 || len(w.Detectors) == 0 {
		return nil, fmt.Errorf("experiment list is missing a beam, scan, goniometer or detector model")
	}
	beam, err := ParseBeam(w.Beams[0])
	if err != nil {
		return nil, err
	}
	e := &Experiment{
		Identifier: w.Experiments[0].Identifier,
		Beam:       beam,
		Detector:   w.Detectors[0],
		Goniometer: w.Goniometers[0],
		Scan:       w.Scans[0],
	}
	if len(w.ImageSets) > 0 {
		e.ImageSet = w.ImageSets[0]
	}
	// A crystal model is optional, e.g. before indexing.
	if len(w.Crystals) > 0 {
		e.Crystal = w.Crystals[0]
	}
	return e, nil
}

// MarshalJSON writes the experiment as a one-element ExperimentList.
func (e *Experiment) MarshalJSON() ([]byte, error) {
	beamRaw, err := json.Marshal(e.Beam)
	if err != nil {
		return nil, fmt.Errorf("serializing beam: %w", err)
	}
	imageset := e.ImageSet
	if imageset == nil {
		imageset = json.RawMessage("null")
	}
	entry := experimentEntryJSON{
		ID:         "Experiment",
		Identifier: e.Identifier,
	}
	w := experimentListJSON{
		ID:          "ExperimentList",
		Beams:       []json.RawMessage{beamRaw},
		Detectors:   []*Detector{e.Detector},
		Goniometers: []*Goniometer{e.Goniometer},
		Scans:       []*Scan{e.Scan},
		Crystals:    []*Crystal{},
		ImageSets:   []json.RawMessage{imageset},
	}
	if e.Crystal != nil {
		zero := 0
		entry.Crystal = &zero
		w.Crystals = []*Crystal{e.Crystal}
	}
	w.Experiments = []experimentEntryJSON{entry}
	return json.Marshal(&w)
}
