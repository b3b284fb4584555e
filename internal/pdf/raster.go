package pdf

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// DefaultDPI is the rasterization resolution used for OCR.
const DefaultDPI = 300

// Page is one rasterized page.
type Page struct {
	Number int // 1-based
	Image  *image.RGBA
}

// Rasterizer renders PDF bytes to page images using MuPDF.
type Rasterizer struct {
	dpi float64
}

// NewRasterizer returns a Rasterizer rendering at dpi (DefaultDPI when <= 0).
func NewRasterizer(dpi int) *Rasterizer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Rasterizer{dpi: float64(dpi)}
}

// DPI returns the configured resolution.
func (r *Rasterizer) DPI() int { return int(r.dpi) }

// Rasterize opens data as a PDF and renders every page. An unparseable
// document or page fails the whole call.
func (r *Rasterizer) Rasterize(data []byte) ([]Page, error) {
	if len(data) == 0 {
		return nil, &DocumentError{Op: "rasterize", Err: fmt.Errorf("%w: empty content", ErrNotPDF)}
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, &DocumentError{Op: "rasterize", Err: fmt.Errorf("%w: %v", ErrNotPDF, err)}
	}
	defer doc.Close()

	pages := make([]Page, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.ImageDPI(i, r.dpi)
		if err != nil {
			return nil, &DocumentError{Op: "rasterize", Err: fmt.Errorf("page %d: %w", i+1, err)}
		}
		pages = append(pages, Page{Number: i + 1, Image: img})
	}
	return pages, nil
}
