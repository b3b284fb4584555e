// Package extraction recovers the text of files embedded in a PDF.
package extraction

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/a3tai/auditform/internal/ocr"
	"github.com/a3tai/auditform/internal/pdf"
)

// Text modes.
const (
	ModeOCR  = "ocr"  // rasterize and OCR every page
	ModeAuto = "auto" // use the text layer, OCR only pages without one
)

// Source exposes the embedded files of an open document.
type Source interface {
	AttachmentCount() (int, error)
	AttachmentInfo(index int) (pdf.AttachmentInfo, error)
	AttachmentBytes(index int) ([]byte, error)
}

// Rasterizer renders PDF bytes to page images.
type Rasterizer interface {
	Rasterize(data []byte) ([]pdf.Page, error)
}

// TextLayer reads embedded page text from PDF bytes.
type TextLayer interface {
	PageTexts(data []byte) ([]string, error)
}

// Block is the recovered text of one attachment.
type Block struct {
	Index int
	Name  string // file name without extension
	Pages int
	Text  string // page texts, each followed by "\n"
}

// Result is the outcome of one extraction pass.
type Result struct {
	Blocks []Block
	Failed []Failure
}

// Failure records an attachment that was skipped.
type Failure struct {
	Index int
	Err   error
}

// Text renders all blocks as the text handed to the summary model.
func (r Result) Text() string {
	var b strings.Builder
	for _, block := range r.Blocks {
		b.WriteString(FormatBlock(block))
	}
	return b.String()
}

// FormatBlock renders one attachment under its "Document name:" header.
func FormatBlock(block Block) string {
	return "Document name: " + block.Name + "\n" + block.Text + "\n"
}

// Extractor OCRs embedded PDF attachments.
type Extractor struct {
	engine   ocr.Engine
	raster   Rasterizer
	text     TextLayer
	mode     string
	logger   *slog.Logger
	progress io.Writer
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithTextLayer enables ModeAuto using the given text reader.
func WithTextLayer(t TextLayer) Option {
	return func(e *Extractor) {
		e.text = t
		e.mode = ModeAuto
	}
}

// WithProgress sets where per-attachment failures are reported to the user.
func WithProgress(w io.Writer) Option {
	return func(e *Extractor) { e.progress = w }
}

// NewExtractor creates an Extractor in ModeOCR.
func NewExtractor(engine ocr.Engine, raster Rasterizer, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		engine:   engine,
		raster:   raster,
		mode:     ModeOCR,
		logger:   logger,
		progress: io.Discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode returns the active text mode.
func (e *Extractor) Mode() string { return e.mode }

// Extract processes every attachment of src in index order. A failing
// attachment is logged and skipped; only context cancellation aborts the
// pass.
func (e *Extractor) Extract(ctx context.Context, src Source) (Result, error) {
	var res Result

	count, err := src.AttachmentCount()
	if err != nil {
		e.logger.Error("extraction.count.failed", "error", err)
		fmt.Fprintf(e.progress, "Error processing embedded documents: %v\n", err)
		return res, nil
	}

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		start := time.Now()
		block, err := e.extractOne(ctx, src, i)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			e.logger.Error("extraction.attachment.failed", "index", i, "error", err)
			fmt.Fprintf(e.progress, "Error processing embedded document %d: %v\n", i, err)
			res.Failed = append(res.Failed, Failure{Index: i, Err: err})
			continue
		}

		e.logger.Info("extraction.attachment.ok",
			"index", i,
			"name", block.Name,
			"pages", block.Pages,
			"text_len", len(block.Text),
			"mode", e.mode,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		res.Blocks = append(res.Blocks, block)
	}
	return res, nil
}

func (e *Extractor) extractOne(ctx context.Context, src Source, index int) (Block, error) {
	info, err := src.AttachmentInfo(index)
	if err != nil {
		return Block{}, fmt.Errorf("attachment info: %w", err)
	}
	data, err := src.AttachmentBytes(index)
	if err != nil {
		return Block{}, fmt.Errorf("attachment bytes: %w", err)
	}

	var pageTexts []string
	if e.mode == ModeAuto && e.text != nil {
		pageTexts, err = e.autoPages(ctx, data)
	} else {
		pageTexts, err = e.ocrPages(ctx, data, nil)
	}
	if err != nil {
		return Block{}, err
	}

	var b strings.Builder
	for _, t := range pageTexts {
		b.WriteString(t)
		b.WriteString("\n")
	}
	return Block{
		Index: index,
		Name:  pdf.BaseName(info.FileName),
		Pages: len(pageTexts),
		Text:  b.String(),
	}, nil
}

// ocrPages rasterizes data and OCRs each page. Pages whose 0-based index
// is in skip are left as "".
func (e *Extractor) ocrPages(ctx context.Context, data []byte, skip map[int]bool) ([]string, error) {
	pages, err := e.raster.Rasterize(data)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(pages))
	for i, page := range pages {
		if skip[i] {
			continue
		}
		spans, err := e.engine.Recognize(ctx, page.Image)
		if err != nil {
			return nil, fmt.Errorf("ocr page %d: %w", page.Number, err)
		}
		texts[i] = StripBraces(ocr.JoinSpans(spans))
	}
	return texts, nil
}

func (e *Extractor) autoPages(ctx context.Context, data []byte) ([]string, error) {
	layer, err := e.text.PageTexts(data)
	if err != nil || len(layer) == 0 {
		e.logger.Debug("extraction.text_layer.unavailable", "error", err)
		return e.ocrPages(ctx, data, nil)
	}

	have := map[int]bool{}
	for i, t := range layer {
		if strings.TrimSpace(t) != "" {
			have[i] = true
		}
	}
	if len(have) == len(layer) {
		texts := make([]string, len(layer))
		for i, t := range layer {
			texts[i] = StripBraces(t)
		}
		return texts, nil
	}

	texts, err := e.ocrPages(ctx, data, have)
	if err != nil {
		return nil, err
	}
	for i := range texts {
		if have[i] {
			texts[i] = StripBraces(layer[i])
		}
	}
	return texts, nil
}

// StripBraces removes literal "{" and "}" so recognized text cannot act as
// a prompt template placeholder.
func StripBraces(s string) string {
	return strings.NewReplacer("{", "", "}", "").Replace(s)
}
