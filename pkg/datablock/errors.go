package datablock

import (
	"errors"
	"fmt"
)

// ErrUnknownFormat is returned when no registered opener recognizes a file.
var ErrUnknownFormat = errors.New("unrecognized image format")

// FormatError reports a file that could not be opened as image data,
// either because no format matched or because the matching reader failed.
type FormatError struct {
	// Path is the offending file
	Path string

	// Err is the underlying cause
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error for %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
