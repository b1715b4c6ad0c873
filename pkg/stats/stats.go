// Package stats computes summary statistics of detector images, used by the
// command line summary output.
package stats

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"crystio/pkg/datablock"
)

// Summary holds the pixel statistics of one image.
type Summary struct {
	// NumPixels is the number of pixels summarized
	NumPixels int

	Min  float64
	Max  float64
	Mean float64

	// StdDev is the sample standard deviation of the pixel values
	StdDev float64
}

// Summarize computes the pixel statistics of a single frame.
func Summarize(frame *datablock.Frame) Summary {
	if len(frame.Data) == 0 {
		return Summary{}
	}
	return Summary{
		NumPixels: len(frame.Data),
		Min:       floats.Min(frame.Data),
		Max:       floats.Max(frame.Data),
		Mean:      stat.Mean(frame.Data, nil),
		StdDev:    stat.StdDev(frame.Data, nil),
	}
}

// SummarizeSet computes per-image statistics for every image of a set, in
// set order.
func SummarizeSet(set *datablock.ImageSet) ([]Summary, error) {
	summaries := make([]Summary, set.Len())
	for i := 0; i < set.Len(); i++ {
		frame, err := set.Get(i)
		if err != nil {
			return nil, fmt.Errorf("summarizing image %d: %w", i, err)
		}
		summaries[i] = Summarize(frame)
	}
	return summaries, nil
}
