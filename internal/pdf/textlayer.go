package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextLayer reads the embedded text of each page, for PDFs that carry one.
type TextLayer struct{}

// NewTextLayer returns a TextLayer reader.
func NewTextLayer() *TextLayer { return &TextLayer{} }

// PageTexts returns the plain text of every page, in order. Pages whose
// text cannot be decoded yield "".
func (t *TextLayer) PageTexts(data []byte) (texts []string, err error) {
	// The decoder panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			texts = nil
			err = &DocumentError{Op: "text", Err: fmt.Errorf("%w: %v", ErrNotPDF, r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &DocumentError{Op: "text", Err: fmt.Errorf("%w: %v", ErrNotPDF, err)}
	}

	texts = make([]string, 0, reader.NumPage())
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			texts = append(texts, "")
			continue
		}
		texts = append(texts, strings.TrimSpace(content))
	}
	return texts, nil
}
