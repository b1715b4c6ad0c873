package datablock

import "errors"

// Factory constructs data blocks from files or from existing image sets.
// Format resolution goes through the registry supplied at construction.
type Factory struct {
	registry *Registry
}

// NewFactory returns a factory that resolves formats with reg.
func NewFactory(reg *Registry) *Factory {
	return &Factory{registry: reg}
}

// FromFilenames opens each file and builds data blocks. Every file becomes
// one image set; consecutive files of the same format kind are grouped into
// a single data block, and a change of kind starts a new block. Any file
// that cannot be opened or recognized aborts with a FormatError.
func (f *Factory) FromFilenames(paths []string) ([]*DataBlock, error) {
	var blocks []*DataBlock
	lastKind := ""
	for _, path := range paths {
		reader, err := f.registry.Open(path)
		if err != nil {
			return nil, err
		}
		set := NewImageSet(reader)
		if len(blocks) == 0 || reader.Kind() != lastKind {
			blocks = append(blocks, &DataBlock{imagesets: []*ImageSet{set}})
		} else {
			last := blocks[len(blocks)-1]
			last.imagesets = append(last.imagesets, set)
		}
		lastKind = reader.Kind()
	}
	return blocks, nil
}

// FromImageSet wraps an existing, possibly sliced, image set into a
// standalone data block. The underlying source is not re-read and the
// resulting block's image count equals the set's length exactly.
func (f *Factory) FromImageSet(set *ImageSet) ([]*DataBlock, error) {
	if set == nil {
		return nil, errors.New("nil imageset")
	}
	return []*DataBlock{{imagesets: []*ImageSet{set}}}, nil
}
