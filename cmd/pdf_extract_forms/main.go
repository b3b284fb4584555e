package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/pflag"

	"github.com/a3tai/auditform/internal/output"
	"github.com/a3tai/auditform/internal/pdf"
	"github.com/a3tai/auditform/internal/schema"
)

var (
	outputFormat = pflag.String("format", "text", "Output format: text, json")
	mapFields    = pflag.Bool("map", false, "Print the mapped Form ADT-1 record instead of the raw fields")
	verbose      = pflag.Bool("verbose", false, "Log document parsing to stderr")
	help         = pflag.Bool("help", false, "Show help message")
)

func main() {
	pflag.Parse()

	if *help {
		printHelp()
		return
	}

	if pflag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: PDF file path required\n\n")
		printUsage()
		os.Exit(1)
	}

	pdfPath := pflag.Arg(0)
	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found: %s\n", pdfPath)
		os.Exit(1)
	}

	logWriter := io.Discard
	if *verbose {
		logWriter = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))

	result, err := inspect(pdfPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading form: %v\n", err)
		os.Exit(1)
	}

	if err := outputResults(os.Stdout, result, *outputFormat, *mapFields); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("PDF Extract Forms - inspect the form fields and embedded files of a PDF")
	fmt.Println()
	fmt.Println("Prints the fully qualified field names exactly as the Form ADT-1 mapping")
	fmt.Println("looks them up, which helps when a filing maps to empty values.")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("OPTIONS:")
	pflag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  pdf_extract_forms adt1.pdf")
	fmt.Println("  pdf_extract_forms --format json adt1.pdf")
	fmt.Println("  pdf_extract_forms --map adt1.pdf")
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Println("  pdf_extract_forms [OPTIONS] <pdf_file>")
}

// FormExtractionResult is everything read from one PDF.
type FormExtractionResult struct {
	FilePath    string               `json:"file_path"`
	PageCount   int                  `json:"page_count"`
	FieldCount  int                  `json:"field_count"`
	Fields      pdf.FormFields       `json:"fields"`
	Attachments []pdf.AttachmentInfo `json:"attachments"`
}

func inspect(pdfPath string, logger *slog.Logger) (*FormExtractionResult, error) {
	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	doc, err := pdf.Open(absPath, logger)
	if err != nil {
		return nil, err
	}
	fields, err := doc.FormFields()
	if err != nil {
		return nil, err
	}
	attachments, err := doc.Attachments()
	if err != nil {
		return nil, err
	}

	return &FormExtractionResult{
		FilePath:    absPath,
		PageCount:   doc.PageCount(),
		FieldCount:  len(fields),
		Fields:      fields,
		Attachments: attachments,
	}, nil
}

func outputResults(w io.Writer, result *FormExtractionResult, format string, mapped bool) error {
	if mapped {
		body, err := output.EncodeData(schema.Map(schema.Raw(result.Fields)))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(body))
		return err
	}

	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "text":
		return outputText(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func outputText(w io.Writer, result *FormExtractionResult) error {
	fmt.Fprintf(w, "%s (%d pages)\n\n", result.FilePath, result.PageCount)

	if result.FieldCount == 0 {
		fmt.Fprintln(w, "No form fields detected in the PDF")
	} else {
		fmt.Fprintf(w, "%d form fields\n\n", result.FieldCount)
		names := make([]string, 0, len(result.Fields))
		for name := range result.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for i, name := range names {
			fmt.Fprintf(w, "[%d] %s\n    Value: %s\n", i+1, name, result.Fields[name])
		}
	}

	if len(result.Attachments) > 0 {
		fmt.Fprintf(w, "\n%d embedded files\n\n", len(result.Attachments))
		for _, a := range result.Attachments {
			fmt.Fprintf(w, "[%d] %s\n", a.Index+1, a.FileName)
		}
	}
	return nil
}
