package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/auditform/internal/config"
	"github.com/a3tai/auditform/internal/descriptions"
	"github.com/a3tai/auditform/internal/locator"
	"github.com/a3tai/auditform/internal/output"
	"github.com/a3tai/auditform/internal/pdf"
	"github.com/a3tai/auditform/internal/pipeline"
	"github.com/a3tai/auditform/internal/schema"
)

// Tool names.
const (
	ToolExtract    = "auditform_extract"
	ToolFormFields = "auditform_form_fields"
	ToolMapFields  = "auditform_map_fields"
)

// Runner executes the full pipeline.
type Runner interface {
	Run(ctx context.Context, dir string) (pipeline.Outcome, error)
	RunFile(ctx context.Context, path string) (pipeline.Outcome, error)
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	runner    Runner
	opener    pipeline.Opener
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, runner Runner, opener pipeline.Opener, logger *slog.Logger) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if opener == nil {
		return nil, fmt.Errorf("opener cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		runner:    runner,
		opener:    opener,
		mcpServer: mcpServer,
		logger:    logger,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	extractTool := mcp.NewTool(
		ToolExtract,
		mcp.WithDescription(descriptions.ExtractDescription),
		mcp.WithString("path",
			mcp.Description("Full path to the form PDF (uses the first PDF in the default directory if empty)"),
		),
	)
	s.mcpServer.AddTool(extractTool, s.handleExtract)

	formFieldsTool := mcp.NewTool(
		ToolFormFields,
		mcp.WithDescription(descriptions.FormFieldsDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(formFieldsTool, s.handleFormFields)

	mapFieldsTool := mcp.NewTool(
		ToolMapFields,
		mcp.WithDescription(descriptions.MapFieldsDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the form PDF"),
		),
	)
	s.mcpServer.AddTool(mapFieldsTool, s.handleMapFields)
}

func (s *Server) handleExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	path := ""
	if p, ok := args["path"].(string); ok {
		path = strings.TrimSpace(p)
	}

	var (
		out pipeline.Outcome
		err error
	)
	if path == "" {
		out, err = s.runner.Run(ctx, s.config.Directory)
	} else {
		if !locator.IsPDFName(path) {
			return mcp.NewToolResultError(fmt.Sprintf("not a PDF file: %s", path)), nil
		}
		out, err = s.runner.RunFile(ctx, path)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s failed (%s): %v", out.Stage, out.Kind, err)), nil
	}
	if out.Kind == pipeline.KindLocatorEmpty {
		return mcp.NewToolResultError(fmt.Sprintf("No PDF files found in %s", s.config.Directory)), nil
	}

	return mcp.NewToolResultText(formatOutcome(out)), nil
}

func (s *Server) handleFormFields(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.opener.Open(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields, err := doc.FormFields()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	attachments, err := listAttachments(doc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body, err := json.MarshalIndent(struct {
		Path        string               `json:"path"`
		Fields      pdf.FormFields       `json:"fields"`
		Attachments []pdf.AttachmentInfo `json:"attachments"`
	}{Path: path, Fields: fields, Attachments: attachments}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

func (s *Server) handleMapFields(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.opener.Open(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields, err := doc.FormFields()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body, err := output.EncodeData(schema.Map(schema.Raw(fields)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

func listAttachments(doc pipeline.Document) ([]pdf.AttachmentInfo, error) {
	n, err := doc.AttachmentCount()
	if err != nil {
		return nil, err
	}
	infos := make([]pdf.AttachmentInfo, 0, n)
	for i := 0; i < n; i++ {
		info, err := doc.AttachmentInfo(i)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// formatOutcome renders a successful run for the tool result
func formatOutcome(out pipeline.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Processed: %s\n", out.Path)
	fmt.Fprintf(&b, "Form fields: %d\n", len(out.Fields))
	if n := len(out.Attachments.Blocks) + len(out.Attachments.Failed); n > 0 {
		fmt.Fprintf(&b, "Attachments: %d processed, %d skipped\n", len(out.Attachments.Blocks), len(out.Attachments.Failed))
	}
	b.WriteString("\nFiles saved:\n")
	for _, f := range out.Files {
		fmt.Fprintf(&b, "- %s\n", filepath.Base(f))
	}
	b.WriteString("\n")
	b.WriteString(output.FormatSummary(out.Summary))
	return b.String()
}

// Run serves the MCP tools over stdio
func (s *Server) Run(_ context.Context) error {
	s.logger.Debug("mcp.serve.start", "dir", s.config.Directory, "server", s.config.ServerName)

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
