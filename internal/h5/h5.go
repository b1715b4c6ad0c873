// Package h5 wraps the external HDF5 binding behind the small surface the
// rest of the module needs: shape-aware dataset reads, single-frame
// hyperslab reads, flat group listing and typed dataset writes. Keeping the
// binding behind one package scopes the external dependency to one place.
package h5

import (
	"fmt"
	"strings"

	"gonum.org/v1/hdf5"
)

// Class is the coarse value class of a dataset, as far as the module cares.
type Class int

const (
	ClassOther Class = iota
	ClassFloat
	ClassInt
	ClassString
)

// File is an open HDF5 file.
type File struct {
	f    *hdf5.File
	path string
}

// Open opens an existing file read-only.
func Open(path string) (*File, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &File{f: f, path: path}, nil
}

// OpenReadWrite opens an existing file for update.
func OpenReadWrite(path string) (*File, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDWR)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &File{f: f, path: path}, nil
}

// Create creates a new file, truncating any existing one.
func Create(path string) (*File, error) {
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &File{f: f, path: path}, nil
}

// Close releases the file handle.
func (f *File) Close() error {
	return f.f.Close()
}

// Path returns the filesystem path the file was opened on.
func (f *File) Path() string {
	return f.path
}

// HasDataset reports whether name opens as a dataset.
func (f *File) HasDataset(name string) bool {
	dset, err := f.f.OpenDataset(name)
	if err != nil {
		return false
	}
	dset.Close()
	return true
}

// Dims returns the extent of each dimension of the named dataset.
func (f *File) Dims(name string) ([]int, error) {
	dset, err := f.f.OpenDataset(name)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s: %w", name, err)
	}
	defer dset.Close()
	return datasetDims(dset)
}

// DatasetClass reports the value class of the named dataset.
func (f *File) DatasetClass(name string) (Class, error) {
	dset, err := f.f.OpenDataset(name)
	if err != nil {
		return ClassOther, fmt.Errorf("opening dataset %s: %w", name, err)
	}
	defer dset.Close()

	dtype, err := dset.Datatype()
	if err != nil {
		return ClassOther, fmt.Errorf("reading datatype of %s: %w", name, err)
	}
	defer dtype.Close()

	switch dtype.Class() {
	case hdf5.T_FLOAT:
		return ClassFloat, nil
	case hdf5.T_INTEGER:
		return ClassInt, nil
	case hdf5.T_STRING:
		return ClassString, nil
	default:
		return ClassOther, nil
	}
}

// ReadFloats reads the whole dataset as float64 values along with its shape.
// Integer datasets are converted by the underlying library.
func (f *File) ReadFloats(name string) ([]float64, []int, error) {
	dset, err := f.f.OpenDataset(name)
	if err != nil {
		return nil, nil, fmt.Errorf("opening dataset %s: %w", name, err)
	}
	defer dset.Close()

	dims, err := datasetDims(dset)
	if err != nil {
		return nil, nil, err
	}
	data := make([]float64, product(dims))
	if err := dset.Read(&data); err != nil {
		return nil, nil, fmt.Errorf("reading dataset %s: %w", name, err)
	}
	return data, dims, nil
}

// ReadInts reads the whole dataset as int64 values along with its shape.
func (f *File) ReadInts(name string) ([]int64, []int, error) {
	dset, err := f.f.OpenDataset(name)
	if err != nil {
		return nil, nil, fmt.Errorf("opening dataset %s: %w", name, err)
	}
	defer dset.Close()

	dims, err := datasetDims(dset)
	if err != nil {
		return nil, nil, err
	}
	data := make([]int64, product(dims))
	if err := dset.Read(&data); err != nil {
		return nil, nil, fmt.Errorf("reading dataset %s: %w", name, err)
	}
	return data, dims, nil
}

// ReadStrings reads a one-dimensional string dataset.
func (f *File) ReadStrings(name string) ([]string, error) {
	dset, err := f.f.OpenDataset(name)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s: %w", name, err)
	}
	defer dset.Close()

	dims, err := datasetDims(dset)
	if err != nil {
		return nil, err
	}
	data := make([]string, product(dims))
	if err := dset.Read(&data); err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", name, err)
	}
	return data, nil
}

// ReadFrame reads image plane index of a 3-D dataset shaped
// (images, slow, fast) without reading the rest of the stack. It returns
// the pixel data in row-major order plus the fast and slow extents.
func (f *File) ReadFrame(name string, index int) ([]float64, int, int, error) {
	dset, err := f.f.OpenDataset(name)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("opening dataset %s: %w", name, err)
	}
	defer dset.Close()

	dims, err := datasetDims(dset)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(dims) != 3 {
		return nil, 0, 0, fmt.Errorf("dataset %s is %d-dimensional, want 3", name, len(dims))
	}
	if index < 0 || index >= dims[0] {
		return nil, 0, 0, fmt.Errorf("image index %d out of range [0,%d)", index, dims[0])
	}
	slow, fast := dims[1], dims[2]

	filespace := dset.Space()
	defer filespace.Close()
	offset := []uint{uint(index), 0, 0}
	count := []uint{1, uint(slow), uint(fast)}
	if err := filespace.SelectHyperslab(offset, nil, count, nil); err != nil {
		return nil, 0, 0, fmt.Errorf("selecting image %d of %s: %w", index, name, err)
	}

	memspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("creating memory dataspace: %w", err)
	}
	defer memspace.Close()

	data := make([]float64, slow*fast)
	if err := dset.ReadSubset(&data, memspace, filespace); err != nil {
		return nil, 0, 0, fmt.Errorf("reading image %d of %s: %w", index, name, err)
	}
	return data, fast, slow, nil
}

// ListDatasets returns the full paths of the datasets that are immediate
// children of group. Children that do not open as datasets are skipped.
func (f *File) ListDatasets(group string) ([]string, error) {
	g, err := f.f.OpenGroup(group)
	if err != nil {
		return nil, fmt.Errorf("opening group %s: %w", group, err)
	}
	defer g.Close()

	n, err := g.NumObjects()
	if err != nil {
		return nil, fmt.Errorf("listing group %s: %w", group, err)
	}
	var names []string
	for i := uint(0); i < n; i++ {
		name, err := g.ObjectNameByIndex(i)
		if err != nil {
			continue
		}
		full := strings.TrimSuffix(group, "/") + "/" + name
		if f.HasDataset(full) {
			names = append(names, full)
		}
	}
	return names, nil
}

// EnsureGroup creates the group path, including intermediates, if needed.
func (f *File) EnsureGroup(path string) error {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	current := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		current += "/" + part
		if g, err := f.f.OpenGroup(current); err == nil {
			g.Close()
			continue
		}
		g, err := f.f.CreateGroup(current)
		if err != nil {
			return fmt.Errorf("creating group %s: %w", current, err)
		}
		g.Close()
	}
	return nil
}

// WriteFloats writes a float64 dataset with the given shape.
func (f *File) WriteFloats(name string, data []float64, dims []int) error {
	return f.write(name, &data, len(data), dims, hdf5.T_NATIVE_DOUBLE)
}

// WriteInts writes an int64 dataset with the given shape.
func (f *File) WriteInts(name string, data []int64, dims []int) error {
	return f.write(name, &data, len(data), dims, hdf5.T_NATIVE_INT64)
}

// WriteUints writes a uint64 dataset with the given shape.
func (f *File) WriteUints(name string, data []uint64, dims []int) error {
	return f.write(name, &data, len(data), dims, hdf5.T_NATIVE_UINT64)
}

// WriteStrings writes a one-dimensional string dataset.
func (f *File) WriteStrings(name string, values []string) error {
	return f.write(name, &values, len(values), []int{len(values)}, hdf5.T_GO_STRING)
}

func (f *File) write(name string, data interface{}, n int, dims []int, dtype *hdf5.Datatype) error {
	if product(dims) != n {
		return fmt.Errorf("dataset %s: %d values do not fill shape %v", name, n, dims)
	}
	udims := make([]uint, len(dims))
	for i, d := range dims {
		udims[i] = uint(d)
	}
	space, err := hdf5.CreateSimpleDataspace(udims, nil)
	if err != nil {
		return fmt.Errorf("creating dataspace for %s: %w", name, err)
	}
	defer space.Close()

	dset, err := f.f.CreateDataset(name, dtype, space)
	if err != nil {
		return fmt.Errorf("creating dataset %s: %w", name, err)
	}
	defer dset.Close()

	if err := dset.Write(data); err != nil {
		return fmt.Errorf("writing dataset %s: %w", name, err)
	}
	return nil
}

func datasetDims(dset *hdf5.Dataset) ([]int, error) {
	space := dset.Space()
	defer space.Close()
	udims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, fmt.Errorf("reading dataset shape: %w", err)
	}
	dims := make([]int, len(udims))
	for i, d := range udims {
		dims[i] = int(d)
	}
	return dims, nil
}

func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
