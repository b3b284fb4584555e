package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/a3tai/auditform/internal/schema"
)

// XLSXWriter exports a Record as a two-column sheet.
type XLSXWriter struct {
	sheet string
}

// NewXLSXWriter creates a writer for the "Form ADT-1" sheet.
func NewXLSXWriter() *XLSXWriter {
	return &XLSXWriter{sheet: "Form ADT-1"}
}

// Sheet returns the sheet name rows are written to.
func (x *XLSXWriter) Sheet() string { return x.sheet }

// Write saves rec to path with a Field/Value header row followed by one
// row per field in record order.
func (x *XLSXWriter) Write(path string, rec schema.Record) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", x.sheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	write := func(col, row int, v string) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(x.sheet, cell, v)
	}

	if err := write(1, 1, "Field"); err != nil {
		return err
	}
	if err := write(2, 1, "Value"); err != nil {
		return err
	}
	for i, field := range rec {
		if err := write(1, i+2, field.Key); err != nil {
			return err
		}
		if err := write(2, i+2, field.Value); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(x.sheet, "A", "A", 36)
	_ = f.SetColWidth(x.sheet, "B", "B", 80)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
