// Package ocr turns page images into recognized text spans.
package ocr

import (
	"context"
	"image"
	"strings"
)

// Span is one recognized run of text.
type Span struct {
	Box        image.Rectangle
	Text       string
	Confidence float64 // 0..1
}

// Engine recognizes text in a raster image.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) ([]Span, error)
}

// JoinSpans joins span texts with single spaces, in recognition order.
func JoinSpans(spans []Span) string {
	texts := make([]string, 0, len(spans))
	for _, s := range spans {
		texts = append(texts, s.Text)
	}
	return strings.Join(texts, " ")
}
