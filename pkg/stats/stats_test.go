package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crystio/pkg/datablock"
)

func TestSummarize(t *testing.T) {
	frame := &datablock.Frame{Data: []float64{1, 2, 3, 4}, Width: 2, Height: 2}
	s := Summarize(frame)

	assert.Equal(t, 4, s.NumPixels)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	// Sample standard deviation of 1..4.
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.StdDev, 1e-12)
}

func TestSummarizeEmptyFrame(t *testing.T) {
	s := Summarize(&datablock.Frame{})
	assert.Equal(t, Summary{}, s)
}

type stackReader struct{ frames [][]float64 }

func (r *stackReader) Kind() string { return "fake" }
func (r *stackReader) Path() string { return "fake.h5" }
func (r *stackReader) NumImages() int { return len(r.frames) }
func (r *stackReader) Frame(index int) (*datablock.Frame, error) {
	return &datablock.Frame{Data: r.frames[index], Width: 2, Height: 1}, nil
}

func TestSummarizeSet(t *testing.T) {
	set := datablock.NewImageSet(&stackReader{frames: [][]float64{
		{0, 0},
		{1, 3},
		{5, 5},
	}})

	summaries, err := SummarizeSet(set)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, 0.0, summaries[0].Max)
	assert.InDelta(t, 2.0, summaries[1].Mean, 1e-12)
	assert.Equal(t, 5.0, summaries[2].Min)
}

func TestSummarizeSetSlice(t *testing.T) {
	set := datablock.NewImageSet(&stackReader{frames: [][]float64{
		{0, 0}, {1, 1}, {2, 2}, {3, 3},
	}})

	summaries, err := SummarizeSet(set.Slice(2, 4))
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, 2.0, summaries[0].Mean)
	assert.Equal(t, 3.0, summaries[1].Mean)
}
