// Package locator finds the input PDF in a working directory.
package locator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoPDF reports that the directory holds no PDF file.
var ErrNoPDF = errors.New("no PDF files found")

// Locator discovers PDF files in a single directory level.
type Locator struct {
	maxFileSize int64
}

// New creates a Locator. A maxFileSize of 0 disables the size check.
func New(maxFileSize int64) *Locator {
	return &Locator{maxFileSize: maxFileSize}
}

// FindFirst returns the path of the first regular file in dir whose name
// ends in ".pdf" (any case). Entries are visited in os.ReadDir order,
// which is sorted by file name.
func (l *Locator) FindFirst(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if !IsPDFName(entry.Name()) {
			continue
		}
		if !entry.Type().IsRegular() {
			// Follow symlinks; skip directories named *.pdf.
			info, err := os.Stat(filepath.Join(dir, entry.Name()))
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		}
		return filepath.Join(dir, entry.Name()), nil
	}
	return "", ErrNoPDF
}

// Check verifies that path is a readable regular file within the size
// limit.
func (l *Locator) Check(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if l.maxFileSize > 0 && info.Size() > l.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), l.maxFileSize)
	}
	return nil
}

// IsPDFName reports whether name carries the PDF extension.
func IsPDFName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
