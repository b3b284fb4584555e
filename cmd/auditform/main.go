package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/auditform/internal/config"
	"github.com/a3tai/auditform/internal/extraction"
	"github.com/a3tai/auditform/internal/llm"
	"github.com/a3tai/auditform/internal/locator"
	"github.com/a3tai/auditform/internal/mcp"
	"github.com/a3tai/auditform/internal/ocr"
	"github.com/a3tai/auditform/internal/output"
	"github.com/a3tai/auditform/internal/pdf"
	"github.com/a3tai/auditform/internal/pipeline"
	"github.com/a3tai/auditform/internal/summary"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging builds the logger for the configured mode. In MCP mode
// stdout carries the protocol, so logs are dropped unless debug is on.
func setupLogging(cfg *config.Config, w io.Writer) *slog.Logger {
	if cfg.IsMCPMode() && !cfg.IsDebug() {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// app holds the wired collaborators of one process.
type app struct {
	orchestrator *pipeline.Orchestrator
	opener       pipeline.Opener
	model        *llm.Lazy
}

// buildApp wires the pipeline from cfg. Progress lines go to progress.
func buildApp(cfg *config.Config, progress io.Writer, logger *slog.Logger) *app {
	engine := ocr.NewTesseract(ocr.Config{
		Tesseract:   cfg.OCR.Tesseract,
		Languages:   cfg.OCR.Languages,
		TessdataDir: cfg.OCR.TessdataDir,
	}, logger)

	opts := []extraction.Option{extraction.WithProgress(progress)}
	if cfg.OCR.TextMode == config.TextModeAuto {
		opts = append(opts, extraction.WithTextLayer(pdf.NewTextLayer()))
	}
	extractor := extraction.NewExtractor(engine, pdf.NewRasterizer(cfg.OCR.DPI), logger, opts...)

	model := llm.NewLazy(llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: float32(cfg.LLM.Temperature),
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
		Project:     cfg.LLM.GCPProject,
		Location:    cfg.LLM.GCPLocation,
	}, logger)

	files := output.Files{Data: cfg.DataFile, Summary: cfg.SummaryFile, XLSX: cfg.XLSXFile}
	opener := pipeline.PDFOpener{Logger: logger}

	orchestrator := pipeline.New(pipeline.Deps{
		Locator:    locator.New(cfg.MaxFileSize),
		Opener:     opener,
		Extractor:  extractor,
		Summarizer: summary.NewGenerator(model, logger),
		Saver: func(dir string) pipeline.Saver {
			return output.NewWriter(dir, files, logger)
		},
	}, progress, logger)

	return &app{orchestrator: orchestrator, opener: opener, model: model}
}

// runOnce processes the first PDF in the configured directory. It returns
// the process exit code.
func runOnce(ctx context.Context, cfg *config.Config, a *app, logger *slog.Logger) int {
	out, err := a.orchestrator.Run(ctx, cfg.Directory)
	if err != nil {
		logger.Debug("run.failed", "stage", out.Stage, "kind", out.Kind, "error", err)
		return 1
	}
	logger.Debug("run.done", "kind", out.Kind, "path", out.Path, "files", len(out.Files))
	return 0
}

// runMCPMode serves the MCP tools until stdin closes or a signal arrives.
func runMCPMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server, logger *slog.Logger) int {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		logger.Info("mcp.signal", "signal", sig.String())
		cancel()
		return 0
	case err := <-serverErrCh:
		if err != nil {
			logger.Error("mcp.serve.failed", "error", err)
			return 1
		}
	}
	return 0
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion()
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger := setupLogging(cfg, os.Stderr)
	logger.Debug("config.loaded", "config", cfg.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !cfg.IsMCPMode() {
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a := buildApp(cfg, os.Stdout, logger)
		defer closeModel(a.model, logger)
		return runOnce(ctx, cfg, a, logger)
	}

	// Progress text would corrupt the protocol stream.
	a := buildApp(cfg, io.Discard, logger)
	defer closeModel(a.model, logger)

	server, err := mcp.NewServer(cfg, a.orchestrator, a.opener, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create MCP server: %v\n", err)
		return 1
	}
	return runMCPMode(ctx, cancel, server, logger)
}

func closeModel(m *llm.Lazy, logger *slog.Logger) {
	if err := m.Close(); err != nil {
		logger.Debug("llm.close.failed", "error", err)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("auditform\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
