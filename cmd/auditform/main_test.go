package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a3tai/auditform/internal/config"
)

const (
	testVersion = "1.2.3"
	devVersion  = "dev"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	originalStdout := os.Stdout

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
		w.Close()
	}()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	<-done
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	tests := []struct {
		name      string
		version   string
		buildTime string
		gitCommit string
		want      []string
	}{
		{
			name:      "build flags",
			version:   testVersion,
			buildTime: "2023-12-01_10:30:00",
			gitCommit: "abc123",
			want:      []string{"auditform", "Version: " + testVersion, "Build Time: 2023-12-01_10:30:00", "Git Commit: abc123", "Built with:"},
		},
		{
			name:      "defaults",
			version:   devVersion,
			buildTime: "unknown",
			gitCommit: "unknown",
			want:      []string{"Version: dev", "Build Time: unknown", "Git Commit: unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, buildTime, gitCommit = tt.version, tt.buildTime, tt.gitCommit
			output := captureStdout(t, printVersion)
			for _, expected := range tt.want {
				if !strings.Contains(output, expected) {
					t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
				}
			}
		})
	}
}

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		logLevel string
		wantLogs bool
	}{
		{name: "run mode", mode: config.ModeRun, logLevel: "info", wantLogs: true},
		{name: "mcp mode - debug enabled", mode: config.ModeMCP, logLevel: "debug", wantLogs: true},
		{name: "mcp mode - debug disabled", mode: config.ModeMCP, logLevel: "info", wantLogs: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := setupLogging(&config.Config{Mode: tt.mode, LogLevel: tt.logLevel}, &buf)
			logger.Warn("test.event", "key", "value")

			if got := buf.Len() > 0; got != tt.wantLogs {
				t.Errorf("setupLogging() wrote logs = %v, want %v (output %q)", got, tt.wantLogs, buf.String())
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := logLevel(tt.name); got != tt.want {
			t.Errorf("logLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// formPDF returns a one-page PDF with two Form ADT-1 fields and no
// embedded files.
func formPDF() []byte {
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
	return []byte(b.String())
}

func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Directory = dir
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnce_EmptyDirectoryNeedsNoKey(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)

	var progress bytes.Buffer
	a := buildApp(cfg, &progress, quietLogger())
	defer a.model.Close()

	if code := runOnce(context.Background(), cfg, a, quietLogger()); code != 0 {
		t.Errorf("runOnce() = %d, want 0", code)
	}
	if !strings.Contains(progress.String(), "No PDF files found in the current directory.") {
		t.Errorf("progress = %q", progress.String())
	}
}

func TestRunOnce_MissingKeyFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "adt1.pdf"), formPDF(), 0o644); err != nil {
		t.Fatalf("failed to write PDF: %v", err)
	}
	cfg := testConfig(dir)

	var progress bytes.Buffer
	a := buildApp(cfg, &progress, quietLogger())
	defer a.model.Close()

	if code := runOnce(context.Background(), cfg, a, quietLogger()); code != 1 {
		t.Errorf("runOnce() = %d, want 1", code)
	}
	if !strings.Contains(progress.String(), "Error occurred: ") {
		t.Errorf("progress = %q", progress.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "data.json")); !os.IsNotExist(err) {
		t.Errorf("data.json should not be written on failure, stat err = %v", err)
	}
}

func TestRunOnce_EndToEnd(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/v1beta/models/gemini-2.0-flash:generateContent" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			http.Error(w, `{"error":{"code":403,"message":"bad key"}}`, http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"  XYZ Limited appointed its auditor.  "}]}}]}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "adt1.pdf"), formPDF(), 0o644); err != nil {
		t.Fatalf("failed to write PDF: %v", err)
	}
	cfg := testConfig(dir)
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.BaseURL = srv.URL
	cfg.XLSXFile = "data.xlsx"

	var progress bytes.Buffer
	a := buildApp(cfg, &progress, quietLogger())
	defer a.model.Close()

	if code := runOnce(context.Background(), cfg, a, quietLogger()); code != 0 {
		t.Fatalf("runOnce() = %d, want 0; progress:\n%s", code, progress.String())
	}
	if calls != 1 {
		t.Errorf("model calls = %d, want 1", calls)
	}

	data, err := os.ReadFile(filepath.Join(dir, "data.json"))
	if err != nil {
		t.Fatalf("read data.json: %v", err)
	}
	var record map[string]string
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("data.json is not JSON: %v", err)
	}
	if record["cin"] != "L12345MH2000PLC000001" || record["company_name"] != "XYZ Limited" {
		t.Errorf("record = %v", record)
	}

	sum, err := os.ReadFile(filepath.Join(dir, "summary.txt"))
	if err != nil {
		t.Fatalf("read summary.txt: %v", err)
	}
	if string(sum) != "Summary\n\n  XYZ Limited appointed its auditor.  " {
		t.Errorf("summary.txt = %q", string(sum))
	}

	if _, err := os.Stat(filepath.Join(dir, "data.xlsx")); err != nil {
		t.Errorf("data.xlsx not written: %v", err)
	}
	if !strings.Contains(progress.String(), "Files saved:") {
		t.Errorf("progress = %q", progress.String())
	}
}
