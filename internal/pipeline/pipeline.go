// Package pipeline runs the extraction of one appointment filing from PDF
// to data.json and summary.txt.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/a3tai/auditform/internal/extraction"
	"github.com/a3tai/auditform/internal/locator"
	"github.com/a3tai/auditform/internal/pdf"
	"github.com/a3tai/auditform/internal/schema"
	"github.com/a3tai/auditform/internal/summary"
)

// Document is an open input PDF.
type Document interface {
	extraction.Source
	FormFields() (pdf.FormFields, error)
}

// Opener opens the input PDF.
type Opener interface {
	Open(path string) (Document, error)
}

// Locator finds the input PDF.
type Locator interface {
	FindFirst(dir string) (string, error)
	Check(path string) error
}

// Extractor recovers attachment text.
type Extractor interface {
	Extract(ctx context.Context, src extraction.Source) (extraction.Result, error)
}

// Summarizer produces the narrative summaries.
type Summarizer interface {
	Summarize(ctx context.Context, rec schema.Record) (string, error)
	SummarizeAttachments(ctx context.Context, text string) (string, error)
}

// Saver writes the artifacts and returns their paths.
type Saver interface {
	Save(rec schema.Record, sum summary.Result) ([]string, error)
}

// SaverFunc builds the Saver for an output directory.
type SaverFunc func(dir string) Saver

// Outcome describes a finished run.
type Outcome struct {
	Kind        Kind
	Stage       Stage // failing stage; empty on success
	Path        string
	Fields      pdf.FormFields
	Record      schema.Record
	Summary     summary.Result
	Attachments extraction.Result
	Files       []string
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Locator    Locator
	Opener     Opener
	Extractor  Extractor
	Summarizer Summarizer
	Saver      SaverFunc
}

// Orchestrator runs the stages strictly in order:
// Locate, Read, Map, Summarize, the attachment branch when the document
// has embedded files, then Save.
type Orchestrator struct {
	deps     Deps
	progress io.Writer
	logger   *slog.Logger
}

// New creates an Orchestrator. Progress lines go to progress; a nil
// writer discards them.
func New(deps Deps, progress io.Writer, logger *slog.Logger) *Orchestrator {
	if progress == nil {
		progress = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{deps: deps, progress: progress, logger: logger}
}

// Run processes the first PDF in dir and writes the artifacts next to it.
// An empty directory yields KindLocatorEmpty with a nil error.
func (o *Orchestrator) Run(ctx context.Context, dir string) (Outcome, error) {
	path, err := o.deps.Locator.FindFirst(dir)
	if err != nil {
		if errors.Is(err, locator.ErrNoPDF) {
			o.logger.Info("pipeline.locate.empty", "dir", dir)
			o.say("No PDF files found in the current directory.")
			return Outcome{Kind: KindLocatorEmpty}, nil
		}
		return o.fail(Outcome{}, stageErr(StageLocate, KindDocument, err))
	}
	return o.RunFile(ctx, path)
}

// RunFile processes the PDF at path and writes the artifacts into its
// directory.
func (o *Orchestrator) RunFile(ctx context.Context, path string) (Outcome, error) {
	start := time.Now()
	out := Outcome{Path: path}
	o.logger.Info("pipeline.start", "path", path)
	o.say("Starting PDF processing...")

	// Read
	o.say("Extracting form data...")
	doc, count, err := o.read(path)
	if err != nil {
		return o.fail(out, stageErr(StageRead, KindDocument, err))
	}
	fields, err := doc.FormFields()
	if err != nil {
		return o.fail(out, stageErr(StageRead, KindDocument, err))
	}
	out.Fields = fields
	o.logger.Info("pipeline.read.ok", "fields", len(fields), "attachments", count)

	// Map
	o.say("Structuring data...")
	out.Record = schema.Map(schema.Raw(fields))

	// Summarize
	o.say("Generating summaries with AI...")
	mainText, err := o.deps.Summarizer.Summarize(ctx, out.Record)
	if err != nil {
		return o.fail(out, stageErr(StageSummarize, KindService, err))
	}
	out.Summary.Main = mainText

	if count != 0 {
		o.say("Attatchment found\n")
		o.say("Extracting attachment documents...")
		res, err := o.deps.Extractor.Extract(ctx, doc)
		if err != nil {
			return o.fail(out, stageErr(StageExtractAttachments, KindService, err))
		}
		out.Attachments = res

		if text := res.Text(); text != "" {
			o.say("Generating summaries with AI...")
			att, err := o.deps.Summarizer.SummarizeAttachments(ctx, text)
			if err != nil {
				return o.fail(out, stageErr(StageSummarizeAttachments, KindService, err))
			}
			out.Summary.Attachments = att
			out.Summary.HasAttachments = true
		} else {
			o.logger.Warn("pipeline.attachments.empty", "count", count, "failed", len(res.Failed))
		}
	}

	// Save
	o.say("Saving outputs...")
	files, err := o.deps.Saver(filepath.Dir(path)).Save(out.Record, out.Summary)
	out.Files = files
	if err != nil {
		return o.fail(out, stageErr(StageSave, KindOutput, err))
	}
	o.say("Files saved:")
	for i, f := range files {
		o.say(fmt.Sprintf("- %s: %s", filepath.Base(f), fileLabel(i)))
	}

	o.say("Processing completed successfully!")
	out.Kind = KindSuccess
	o.logger.Info("pipeline.done",
		"path", path,
		"attachments", len(out.Attachments.Blocks),
		"attachments_failed", len(out.Attachments.Failed),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (o *Orchestrator) read(path string) (Document, int, error) {
	if err := o.deps.Locator.Check(path); err != nil {
		return nil, 0, err
	}
	doc, err := o.deps.Opener.Open(path)
	if err != nil {
		return nil, 0, err
	}
	count, err := doc.AttachmentCount()
	if err != nil {
		return nil, 0, err
	}
	return doc, count, nil
}

func (o *Orchestrator) fail(out Outcome, err *StageError) (Outcome, error) {
	out.Kind = err.Kind
	out.Stage = err.Stage
	o.logger.Error("pipeline.failed", "stage", err.Stage, "kind", err.Kind, "error", err.Err)
	o.say("Error occurred: " + err.Err.Error())
	return out, err
}

func (o *Orchestrator) say(line string) {
	fmt.Fprintln(o.progress, line)
}

// fileLabel describes the artifact written at position i of Saver output.
func fileLabel(i int) string {
	switch i {
	case 0:
		return "Structured form data"
	case 1:
		return "Generated summaries"
	default:
		return "Spreadsheet export"
	}
}

// PDFOpener opens documents with the pdf package.
type PDFOpener struct {
	Logger *slog.Logger
}

// Open implements Opener.
func (p PDFOpener) Open(path string) (Document, error) {
	doc, err := pdf.Open(path, p.Logger)
	if err != nil {
		return nil, err
	}
	return doc, nil
}
