package experiment

import (
	"encoding/json"
	"fmt"

	"crystio/pkg/datablock"
)

// ImageSequence is the serialization model of an image set: the file
// template plus, for multi-image formats, the original-file indices in
// view. Metadata keys it does not model are retained and propagated on
// re-serialization.
type ImageSequence struct {
	Template          string
	SingleFileIndices []int

	extra map[string]json.RawMessage
}

// NewImageSequence describes a single-image format file.
func NewImageSequence(filename string) *ImageSequence {
	return &ImageSequence{Template: filename}
}

// NewMultiImageSequence describes a multi-image file exposing images
// 0..numImages-1.
func NewMultiImageSequence(filename string, numImages int) *ImageSequence {
	indices := make([]int, numImages)
	for i := range indices {
		indices[i] = i
	}
	return &ImageSequence{Template: filename, SingleFileIndices: indices}
}

// ImageSequenceFromImageSet captures an image-set view, preserving the
// original-file indices it currently exposes.
func ImageSequenceFromImageSet(set *datablock.ImageSet) *ImageSequence {
	return &ImageSequence{
		Template:          set.Reader().Path(),
		SingleFileIndices: set.Indices(),
	}
}

// NumImages returns the number of images in the sequence.
func (s *ImageSequence) NumImages() int {
	return len(s.SingleFileIndices)
}

// MarshalJSON writes the DIALS imageset layout, defaulting the optional
// correction keys to null when no retained metadata provides them.
func (s *ImageSequence) MarshalJSON() ([]byte, error) {
	out := map[string]json.RawMessage{}
	for k, v := range s.extra {
		out[k] = v
	}
	out["__id__"] = json.RawMessage(`"ImageSequence"`)
	tmpl, err := json.Marshal(s.Template)
	if err != nil {
		return nil, err
	}
	out["template"] = tmpl
	if len(s.SingleFileIndices) > 0 {
		idx, err := json.Marshal(s.SingleFileIndices)
		if err != nil {
			return nil, err
		}
		out["single_file_indices"] = idx
	}
	for _, key := range []string{"mask", "gain", "pedestal", "dx", "dy"} {
		if _, ok := out[key]; !ok {
			out[key] = json.RawMessage("null")
		}
	}
	if _, ok := out["params"]; !ok {
		out["params"] = json.RawMessage(`{"dynamic_shadowing":"Auto","multi_panel":false}`)
	}
	return json.Marshal(out)
}

// UnmarshalJSON requires the __id__ and template keys; every other key is
// retained for round-tripping.
func (s *ImageSequence) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	idRaw, ok := raw["__id__"]
	if !ok {
		return fmt.Errorf("key __id__ is missing from the input imageset JSON")
	}
	var id string
	if err := json.Unmarshal(idRaw, &id); err != nil {
		return fmt.Errorf("imageset __id__: %w", err)
	}
	if id != "ImageSequence" {
		return fmt.Errorf("only ImageSequence imagesets are supported, got %q", id)
	}
	tmplRaw, ok := raw["template"]
	if !ok {
		return fmt.Errorf("key template is missing from the input imageset JSON")
	}
	if err := json.Unmarshal(tmplRaw, &s.Template); err != nil {
		return fmt.Errorf("imageset template: %w", err)
	}
	if idxRaw, ok := raw["single_file_indices"]; ok {
		if err := json.Unmarshal(idxRaw, &s.SingleFileIndices); err != nil {
			return fmt.Errorf("imageset single_file_indices: %w", err)
		}
		if len(s.SingleFileIndices) > 0 && s.SingleFileIndices[0] < 0 {
			return fmt.Errorf("starting file index %d < 0", s.SingleFileIndices[0])
		}
	}
	s.extra = raw
	return nil
}
