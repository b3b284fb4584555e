package summary

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/auditform/internal/schema"
)

type fakeModel struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func record() schema.Record {
	return schema.Record{
		{Key: schema.KeyCompanyName, Value: "XYZ Private Limited"},
		{Key: schema.KeyAuditorName, Value: "M/s Rao & Associates"},
		{Key: schema.KeyAppointedPeriod, Value: "2023-04-01 - 2028-03-31"},
		{Key: schema.KeyAppointmentDate, Value: "2023-07-01"},
		{Key: schema.KeyCIN, Value: "U0000"},
	}
}

func TestGenerator_Summarize(t *testing.T) {
	model := &fakeModel{reply: "  XYZ appointed Rao.\n"}
	g := NewGenerator(model, nil)

	out, err := g.Summarize(context.Background(), record())
	require.NoError(t, err)
	assert.Equal(t, "  XYZ appointed Rao.\n", out, "model text is passed through untouched")

	require.Len(t, model.prompts, 1)
	p := model.prompts[0]
	assert.Contains(t, p, "Company Name: XYZ Private Limited\n")
	assert.Contains(t, p, "Auditor Name: M/s Rao & Associates\n")
	assert.Contains(t, p, "Period: 2023-04-01 - 2028-03-31\n")
	assert.Contains(t, p, "Effective From: 2023-07-01\n")
	assert.Contains(t, p, "2–3 sentence summary")
	assert.True(t, strings.HasSuffix(p, "Summary:\n"))
	assert.NotContains(t, p, "U0000")
}

func TestGenerator_SummarizeAttachments(t *testing.T) {
	model := &fakeModel{reply: "Doc A approves the auditor."}
	g := NewGenerator(model, nil)

	text := "Document name: Board Resolution\nresolved to appoint\n\n"
	out, err := g.SummarizeAttachments(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, "Doc A approves the auditor.", out)

	require.Len(t, model.prompts, 1)
	assert.Equal(t,
		"You are given several documents related to an auditor appointment.\n"+text+
			"\nFor each document provide a concise summary in 1-2 sentences.\n\nSummary:\n",
		model.prompts[0])
}

func TestGenerator_ModelError(t *testing.T) {
	cause := errors.New("quota exceeded")
	g := NewGenerator(&fakeModel{err: cause}, nil)

	_, err := g.Summarize(context.Background(), record())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "generate main summary")

	_, err = g.SummarizeAttachments(context.Background(), "x")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "generate attachments summary")
}

func TestMainPrompt_EmptyRecord(t *testing.T) {
	p := MainPrompt(schema.Map(nil))
	assert.Contains(t, p, "Company Name: \n")
	assert.Contains(t, p, "Period:  - \n")
}
