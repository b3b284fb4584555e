package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a3tai/auditform/internal/config"
	"github.com/a3tai/auditform/internal/pipeline"
)

// writeFormPDF writes a one-page PDF whose AcroForm carries the CIN and
// company name fields of Form ADT-1.
func writeFormPDF(t *testing.T, dir string) string {
	t.Helper()
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields [4 0 R] >> >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> /Annots [8 0 R 9 0 R] >>",
		"<< /T (data[0]) /Kids [5 0 R] >>",
		"<< /T (FormADT1_Dtls[0]) /Parent 4 0 R /Kids [6 0 R] >>",
		"<< /T (Page1[0]) /Parent 5 0 R /Kids [7 0 R] >>",
		"<< /T (Subform1[0]) /Parent 6 0 R /Kids [8 0 R 9 0 R] >>",
		"<< /Type /Annot /Subtype /Widget /T (CIN_C[0]) /Parent 7 0 R /V (L12345MH2000PLC000001) /Rect [0 0 10 10] >>",
		"<< /Type /Annot /Subtype /Widget /T (CompanyName_C[0]) /Parent 7 0 R /V (XYZ Limited) /Rect [0 0 10 10] >>",
	}

	var b strings.Builder
	b.WriteString("%PDF-1.7\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xrefStart := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<<\n/Size %d\n/Root 1 0 R\n>>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefStart)

	path := filepath.Join(dir, "adt1.pdf")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("failed to write test PDF: %v", err)
	}
	return path
}

func TestServerIntegration(t *testing.T) {
	tempDir := t.TempDir()
	path := writeFormPDF(t, tempDir)

	cfg := config.DefaultConfig()
	cfg.Directory = tempDir
	cfg.ServerName = "integration-test-server"

	server, err := NewServer(cfg, &fakeRunner{}, pipeline.PDFOpener{}, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	t.Run("form fields", func(t *testing.T) {
		result, err := server.handleFormFields(context.Background(), request(map[string]interface{}{"path": path}))
		if err != nil {
			t.Fatalf("handler failed: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected error result: %s", extractTextFromResult(result))
		}

		var body struct {
			Fields map[string]string `json:"fields"`
		}
		if err := json.Unmarshal([]byte(extractTextFromResult(result)), &body); err != nil {
			t.Fatalf("result is not JSON: %v", err)
		}
		key := "data[0].FormADT1_Dtls[0].Page1[0].Subform1[0].CIN_C[0]"
		if body.Fields[key] != "L12345MH2000PLC000001" {
			t.Errorf("fields[%s] = %q", key, body.Fields[key])
		}
	})

	t.Run("map fields", func(t *testing.T) {
		result, err := server.handleMapFields(context.Background(), request(map[string]interface{}{"path": path}))
		if err != nil {
			t.Fatalf("handler failed: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected error result: %s", extractTextFromResult(result))
		}

		var record map[string]string
		if err := json.Unmarshal([]byte(extractTextFromResult(result)), &record); err != nil {
			t.Fatalf("result is not JSON: %v", err)
		}
		if record["cin"] != "L12345MH2000PLC000001" {
			t.Errorf("cin = %q", record["cin"])
		}
		if record["company_name"] != "XYZ Limited" {
			t.Errorf("company_name = %q", record["company_name"])
		}
		if record["auditor_name"] != "" {
			t.Errorf("auditor_name = %q, want empty", record["auditor_name"])
		}
	})

	t.Run("missing file", func(t *testing.T) {
		result, err := server.handleMapFields(context.Background(),
			request(map[string]interface{}{"path": filepath.Join(tempDir, "missing.pdf")}))
		if err != nil {
			t.Fatalf("handler failed: %v", err)
		}
		if !result.IsError {
			t.Error("expected error result for a missing file")
		}
	})
}
