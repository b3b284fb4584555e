package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
)

// VertexClient calls Gemini through Vertex AI.
type VertexClient struct {
	model  *genai.GenerativeModel
	base   *genai.Client
	name   string
	logger *slog.Logger
}

// NewVertexClient creates a client for cfg.Project in cfg.Location.
func NewVertexClient(ctx context.Context, cfg Config, logger *slog.Logger) (*VertexClient, error) {
	if cfg.Project == "" || cfg.Location == "" {
		return nil, fmt.Errorf("vertex: project and location cannot be empty")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}

	base, err := genai.NewClient(ctx, cfg.Project, cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := base.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}

	return &VertexClient{model: model, base: base, name: cfg.Model, logger: logger}, nil
}

// Generate sends prompt and returns the concatenated text parts of the
// first candidate.
func (c *VertexClient) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.logger.Error("llm.vertex.error", "model", c.name, "error", err)
		return "", fmt.Errorf("vertex generate: %w", err)
	}

	text := responseText(resp)
	c.logger.Info("llm.vertex.ok",
		"model", c.name,
		"prompt_len", len(prompt),
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// Close releases the underlying client.
func (c *VertexClient) Close() error {
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
