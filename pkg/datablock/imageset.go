package datablock

import "fmt"

// ImageSet is an ordered view over images in a shared underlying source.
// It records the original-file index of every image it exposes, so a view
// produced by slicing still reports positions within the source file, not
// positions within itself.
type ImageSet struct {
	reader  Reader
	indices []int
}

// NewImageSet builds a full view over every image the reader exposes,
// with indices 0..NumImages-1 in file order.
func NewImageSet(r Reader) *ImageSet {
	n := r.NumImages()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return &ImageSet{reader: r, indices: indices}
}

// Len returns the number of images currently in view.
func (s *ImageSet) Len() int {
	return len(s.indices)
}

// Indices returns the original-file indices of the images in view, in view
// order. The result is a copy; mutating it does not affect the set.
func (s *ImageSet) Indices() []int {
	out := make([]int, len(s.indices))
	copy(out, s.indices)
	return out
}

// Reader returns the underlying source shared by this view.
func (s *ImageSet) Reader() Reader {
	return s.reader
}

// Slice returns a new view over the half-open position range [start, stop).
// Bounds follow Python slicing semantics: negative values count from the
// end and out-of-range values clip, so an empty result is valid and never
// an error. The underlying source is shared; no image data is read.
func (s *ImageSet) Slice(start, stop int) *ImageSet {
	n := len(s.indices)
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	start = clamp(start, 0, n)
	stop = clamp(stop, 0, n)
	if stop < start {
		stop = start
	}
	return &ImageSet{reader: s.reader, indices: s.indices[start:stop]}
}

// Get reads the image at view position i through the shared reader.
func (s *ImageSet) Get(i int) (*Frame, error) {
	if i < 0 || i >= len(s.indices) {
		return nil, fmt.Errorf("image position %d out of range [0,%d)", i, len(s.indices))
	}
	return s.reader.Frame(s.indices[i])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
