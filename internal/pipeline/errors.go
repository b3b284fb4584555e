package pipeline

import (
	"errors"
	"fmt"

	"github.com/a3tai/auditform/internal/locator"
	"github.com/a3tai/auditform/internal/pdf"
)

// Kind classifies how a run ended.
type Kind string

// Outcome kinds.
const (
	KindSuccess      Kind = "success"
	KindLocatorEmpty Kind = "locator_empty" // no PDF in the directory; not a failure
	KindDocument     Kind = "document"      // input missing, unreadable or malformed
	KindService      Kind = "service"       // language model or OCR failure
	KindOutput       Kind = "output"        // artifacts could not be written
)

// Stage names a pipeline step.
type Stage string

// Stages, in execution order.
const (
	StageLocate               Stage = "locate"
	StageRead                 Stage = "read"
	StageMap                  Stage = "map"
	StageSummarize            Stage = "summarize"
	StageExtractAttachments   Stage = "extract_attachments"
	StageSummarizeAttachments Stage = "summarize_attachments"
	StageSave                 Stage = "save"
)

// StageError is the failure of one stage.
type StageError struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// KindOf classifies err. A nil error is KindSuccess.
func KindOf(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	switch {
	case errors.Is(err, locator.ErrNoPDF):
		return KindLocatorEmpty
	case pdf.IsDocumentError(err), errors.Is(err, pdf.ErrNotPDF):
		return KindDocument
	default:
		return KindService
	}
}

func stageErr(stage Stage, kind Kind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}
