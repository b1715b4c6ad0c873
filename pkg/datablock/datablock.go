package datablock

// DataBlock is an ordered collection of image sets treated as one logical
// dataset. It is immutable after construction by the factory.
type DataBlock struct {
	imagesets []*ImageSet
}

// NumImages returns the total image count, summed over the contained
// image sets.
func (b *DataBlock) NumImages() int {
	total := 0
	for _, s := range b.imagesets {
		total += s.Len()
	}
	return total
}

// ImageSets returns the contained image sets in construction order. The
// sets are shared with the block, not copied.
func (b *DataBlock) ImageSets() []*ImageSet {
	return b.imagesets
}
