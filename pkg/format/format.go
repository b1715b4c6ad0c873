// Package format implements the concrete file format openers that plug into
// the datablock registry. Only HDF5 is supported here; other formats join by
// implementing datablock.Opener and being passed to the registry.
package format

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"crystio/internal/h5"
	"crystio/pkg/datablock"
)

// KindHDF5 is the reader kind reported for HDF5 files.
const KindHDF5 = "hdf5"

// hdf5Magic is the 8-byte signature at the start of every HDF5 file.
var hdf5Magic = []byte("\x89HDF\r\n\x1a\n")

// defaultDataPaths are the dataset locations tried in order when opening a
// file, covering plain and NeXus-style layouts.
var defaultDataPaths = []string{
	"/data",
	"/entry/data/data",
	"/entry/instrument/detector/data",
}

// HDF5 opens HDF5 image stacks. The zero value uses the default candidate
// dataset paths; set DataPaths to override them.
type HDF5 struct {
	// DataPaths are the dataset locations tried in order. Empty means the
	// defaults.
	DataPaths []string
}

// NewHDF5 returns an opener with the default dataset locations.
func NewHDF5() *HDF5 {
	return &HDF5{}
}

func (o *HDF5) paths() []string {
	if len(o.DataPaths) > 0 {
		return o.DataPaths
	}
	return defaultDataPaths
}

// Sniff checks the HDF5 file signature.
func (o *HDF5) Sniff(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	magic := make([]byte, len(hdf5Magic))
	if _, err := io.ReadFull(f, magic); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(magic, hdf5Magic), nil
}

// Open opens the file and locates its image stack.
func (o *HDF5) Open(path string) (datablock.Reader, error) {
	file, err := h5.Open(path)
	if err != nil {
		return nil, err
	}
	for _, name := range o.paths() {
		if !file.HasDataset(name) {
			continue
		}
		dims, err := file.Dims(name)
		if err != nil {
			file.Close()
			return nil, err
		}
		r := &hdf5Reader{file: file, dataset: name}
		switch len(dims) {
		case 2:
			// A single image stored as a plain 2-D dataset.
			r.numImages, r.slow, r.fast = 1, dims[0], dims[1]
		case 3:
			r.numImages, r.slow, r.fast = dims[0], dims[1], dims[2]
		default:
			file.Close()
			return nil, fmt.Errorf("dataset %s is %d-dimensional, want 2 or 3", name, len(dims))
		}
		return r, nil
	}
	file.Close()
	return nil, fmt.Errorf("no image dataset found at any of %v", o.paths())
}

// hdf5Reader reads frames from one dataset of an open HDF5 file.
type hdf5Reader struct {
	file    *h5.File
	dataset string

	numImages  int
	fast, slow int
}

func (r *hdf5Reader) Kind() string { return KindHDF5 }
func (r *hdf5Reader) Path() string { return r.file.Path() }
func (r *hdf5Reader) NumImages() int { return r.numImages }

// Frame reads a single image plane.
func (r *hdf5Reader) Frame(index int) (*datablock.Frame, error) {
	if index < 0 || index >= r.numImages {
		return nil, fmt.Errorf("image index %d out of range [0,%d)", index, r.numImages)
	}
	if r.numImages == 1 {
		data, dims, err := r.file.ReadFloats(r.dataset)
		if err != nil {
			return nil, err
		}
		if len(dims) == 3 {
			return &datablock.Frame{Data: data, Width: dims[2], Height: dims[1]}, nil
		}
		return &datablock.Frame{Data: data, Width: dims[1], Height: dims[0]}, nil
	}
	data, fast, slow, err := r.file.ReadFrame(r.dataset, index)
	if err != nil {
		return nil, err
	}
	return &datablock.Frame{Data: data, Width: fast, Height: slow}, nil
}

// Close releases the underlying file. Image sets sharing this reader must
// not be read afterwards.
func (r *hdf5Reader) Close() error {
	return r.file.Close()
}
