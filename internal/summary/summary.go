// Package summary renders the summary prompts and asks a model for the
// narrative text of an appointment filing.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/a3tai/auditform/internal/llm"
	"github.com/a3tai/auditform/internal/schema"
)

const mainTemplate = `Write a professional 2–3 sentence summary of an auditor appointment using the following data:
Company Name: %s
Auditor Name: %s
Period: %s
Effective From: %s

output Example: "XYZ Pvt Ltd has appointed M/s Rao & Associates as its statutory auditor for FY 2023–24, effective from 1 July 2023.
The appointment has been disclosed via Form ADT-1, with all supporting documents submitted."

Summary:
`

const attachmentTemplate = `You are given several documents related to an auditor appointment.
%s
For each document provide a concise summary in 1-2 sentences.

Summary:
`

// Result holds the generated texts. HasAttachments is set when the
// attachment summary was requested, even if the model returned "".
type Result struct {
	Main           string `json:"summary"`
	Attachments    string `json:"attachment_summary,omitempty"`
	HasAttachments bool   `json:"has_attachments"`
}

// Generator produces summaries with a single Model.
type Generator struct {
	model  llm.Model
	logger *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(model llm.Model, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{model: model, logger: logger}
}

// MainPrompt renders the appointment summary prompt for rec.
func MainPrompt(rec schema.Record) string {
	return fmt.Sprintf(mainTemplate,
		rec.Get(schema.KeyCompanyName),
		rec.Get(schema.KeyAuditorName),
		rec.Get(schema.KeyAppointedPeriod),
		rec.Get(schema.KeyAppointmentDate),
	)
}

// AttachmentPrompt renders the per-document summary prompt.
func AttachmentPrompt(text string) string {
	return fmt.Sprintf(attachmentTemplate, text)
}

// Summarize returns the 2-3 sentence appointment summary.
func (g *Generator) Summarize(ctx context.Context, rec schema.Record) (string, error) {
	return g.generate(ctx, "main", MainPrompt(rec))
}

// SummarizeAttachments returns one short summary per document in text.
func (g *Generator) SummarizeAttachments(ctx context.Context, text string) (string, error) {
	return g.generate(ctx, "attachments", AttachmentPrompt(text))
}

func (g *Generator) generate(ctx context.Context, kind, prompt string) (string, error) {
	start := time.Now()
	out, err := g.model.Generate(ctx, prompt)
	if err != nil {
		g.logger.Error("summary.generate.failed", "kind", kind, "error", err)
		return "", fmt.Errorf("generate %s summary: %w", kind, err)
	}
	g.logger.Info("summary.generate.ok",
		"kind", kind,
		"prompt_len", len(prompt),
		"text_len", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
