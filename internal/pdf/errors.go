package pdf

import (
	"errors"
	"fmt"
)

// ErrNotPDF reports that the input could not be parsed as a PDF document.
var ErrNotPDF = errors.New("not a valid PDF document")

// DocumentError describes a failure to open or read a PDF document.
type DocumentError struct {
	Op   string
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("pdf %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("pdf %s: %v", e.Op, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// IsDocumentError reports whether err originates from reading a PDF.
func IsDocumentError(err error) bool {
	var de *DocumentError
	return errors.As(err, &de)
}
