package experiment

import "encoding/json"

// Scan describes the physical measurement: the inclusive image range and a
// constant oscillation per image. It must not be modified during processing
// or used to track additional metadata.
type Scan struct {
	imageRange       [2]int
	numImages        int
	oscillationStart float64
	oscillationWidth float64
}

// NewScan builds a scan from an inclusive image range and an
// (oscillation start, width) pair in degrees.
func NewScan(imageRange [2]int, oscillation [2]float64) *Scan {
	return &Scan{
		imageRange:       imageRange,
		numImages:        imageRange[1] - imageRange[0] + 1,
		oscillationStart: oscillation[0],
		oscillationWidth: oscillation[1],
	}
}

// ImageRange returns the inclusive [first, last] image numbers.
func (s *Scan) ImageRange() [2]int {
	return s.imageRange
}

// NumImages returns the number of images in the scan.
func (s *Scan) NumImages() int {
	return s.numImages
}

// Oscillation returns the (start, width) oscillation pair in degrees.
func (s *Scan) Oscillation() [2]float64 {
	return [2]float64{s.oscillationStart, s.oscillationWidth}
}

type scanJSON struct {
	ImageRange  [2]int     `json:"image_range"`
	Oscillation [2]float64 `json:"oscillation"`
}

// MarshalJSON writes the image range and oscillation pair.
func (s *Scan) MarshalJSON() ([]byte, error) {
	return json.Marshal(&scanJSON{ImageRange: s.imageRange, Oscillation: s.Oscillation()})
}

// UnmarshalJSON reads the image range and oscillation pair.
func (s *Scan) UnmarshalJSON(data []byte) error {
	var w scanJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = *NewScan(w.ImageRange, w.Oscillation)
	return nil
}
