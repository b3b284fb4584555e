// Package output writes the run artifacts: data.json, summary.txt and the
// optional XLSX export.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/a3tai/auditform/internal/schema"
	"github.com/a3tai/auditform/internal/summary"
)

// Default file names.
const (
	DefaultDataFile    = "data.json"
	DefaultSummaryFile = "summary.txt"
)

// Section headers of summary.txt.
const (
	SummaryHeader    = "Summary"
	AttachmentHeader = "Summary of the attachments"
)

// Files names the artifacts relative to the output directory. An empty
// XLSX disables the spreadsheet.
type Files struct {
	Data    string
	Summary string
	XLSX    string
}

// Writer writes artifacts into one directory, overwriting existing files.
type Writer struct {
	dir    string
	files  Files
	xlsx   *XLSXWriter
	logger *slog.Logger
}

// NewWriter creates a Writer rooted at dir.
func NewWriter(dir string, files Files, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if files.Data == "" {
		files.Data = DefaultDataFile
	}
	if files.Summary == "" {
		files.Summary = DefaultSummaryFile
	}
	w := &Writer{dir: dir, files: files, logger: logger}
	if files.XLSX != "" {
		w.xlsx = NewXLSXWriter()
	}
	return w
}

// Save writes every configured artifact and returns their paths in the
// order written.
func (w *Writer) Save(rec schema.Record, sum summary.Result) ([]string, error) {
	var written []string

	dataPath := w.path(w.files.Data)
	if err := WriteData(dataPath, rec); err != nil {
		return written, err
	}
	written = append(written, dataPath)

	summaryPath := w.path(w.files.Summary)
	if err := WriteSummary(summaryPath, sum); err != nil {
		return written, err
	}
	written = append(written, summaryPath)

	if w.xlsx != nil {
		xlsxPath := w.path(w.files.XLSX)
		if err := w.xlsx.Write(xlsxPath, rec); err != nil {
			return written, err
		}
		written = append(written, xlsxPath)
	}

	w.logger.Info("output.saved", "dir", w.dir, "files", len(written))
	return written, nil
}

func (w *Writer) path(name string) string {
	if filepath.IsAbs(name) || w.dir == "" {
		return name
	}
	return filepath.Join(w.dir, name)
}

// EncodeData renders rec as a JSON object with a 4-space indent. HTML
// characters are written as-is.
func EncodeData(rec schema.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteData writes rec to path as pretty-printed JSON.
func WriteData(path string, rec schema.Record) error {
	data, err := EncodeData(rec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadData parses a data.json file.
func ReadData(path string) (schema.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec schema.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return rec, nil
}

// FormatSummary renders summary.txt. The attachment section is present
// only when sum.HasAttachments is set.
func FormatSummary(sum summary.Result) string {
	s := SummaryHeader + "\n\n" + sum.Main
	if sum.HasAttachments {
		s += "\n\n\n" + AttachmentHeader + "\n\n" + sum.Attachments
	}
	return s
}

// WriteSummary writes the formatted summary to path as UTF-8.
func WriteSummary(path string, sum summary.Result) error {
	if err := os.WriteFile(path, []byte(FormatSummary(sum)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
