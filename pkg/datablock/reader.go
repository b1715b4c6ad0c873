// Package datablock provides the data-block and image-set abstractions over
// multi-image detector data files. A DataBlock collects image sets that are
// treated as one logical dataset; an ImageSet is an ordered, sliceable view
// over images in a shared underlying source. Format access is polymorphic:
// a Reader is resolved once when a file is opened and shared by every view
// derived from it.
package datablock

import "fmt"

// Frame holds the pixel data of a single detector image.
type Frame struct {
	// Data is the pixel values in row-major order (slow axis outer)
	Data []float64

	// Width is the extent along the fast axis in pixels
	Width int

	// Height is the extent along the slow axis in pixels
	Height int
}

// Reader gives access to the images of one data file. Implementations are
// opened once by the factory and stay open for the lifetime of the image
// sets that reference them.
type Reader interface {
	// Kind identifies the format, e.g. "hdf5". Files of equal kind may be
	// grouped into a single data block.
	Kind() string

	// Path returns the file the reader was opened on.
	Path() string

	// NumImages reports how many images the file contains.
	NumImages() int

	// Frame reads the image at the given original-file index.
	Frame(index int) (*Frame, error)
}

// Opener detects and opens a single format.
type Opener interface {
	// Sniff reports whether the file looks like this format. It must be
	// cheap; it is called before any full open.
	Sniff(path string) (bool, error)

	// Open opens the file for image access.
	Open(path string) (Reader, error)
}

// Registry holds the set of known format openers in priority order. It is
// passed explicitly to the factory; there is no process-global registry.
type Registry struct {
	openers []Opener
}

// NewRegistry builds a registry from the given openers. Detection tries
// them in the order supplied.
func NewRegistry(openers ...Opener) *Registry {
	return &Registry{openers: openers}
}

// Open resolves the format of path and opens it. If no opener recognizes
// the file the returned error wraps ErrUnknownFormat.
func (r *Registry) Open(path string) (Reader, error) {
	for _, op := range r.openers {
		ok, err := op.Sniff(path)
		if err != nil {
			return nil, &FormatError{Path: path, Err: fmt.Errorf("detecting format: %w", err)}
		}
		if !ok {
			continue
		}
		reader, err := op.Open(path)
		if err != nil {
			return nil, &FormatError{Path: path, Err: err}
		}
		return reader, nil
	}
	return nil, &FormatError{Path: path, Err: ErrUnknownFormat}
}
