// Package llm provides text-generation clients behind a single Model
// interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Providers.
const (
	ProviderGemini = "gemini" // Generative Language API with an API key
	ProviderVertex = "vertex" // Vertex AI with application default credentials
)

// ErrNoAPIKey reports a Gemini client configured without a key.
var ErrNoAPIKey = errors.New("GEMINI_API_KEY is not set")

// Model generates text from a rendered prompt. Sampling parameters are
// fixed when the Model is constructed.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a Model.
type Config struct {
	Provider    string
	APIKey      string        // gemini only
	BaseURL     string        // gemini only; endpoint root, default https://generativelanguage.googleapis.com/
	Model       string        // e.g. "gemini-2.0-flash"
	Temperature float32       // 0..2
	MaxTokens   int           // output length cap
	Timeout     time.Duration // 0 disables the client timeout
	Project     string        // vertex only
	Location    string        // vertex only
}

// New builds the Model for cfg.Provider. The returned close function
// releases provider resources and is never nil.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Model, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Provider {
	case "", ProviderGemini:
		c, err := NewGeminiClient(ctx, cfg, logger)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil
	case ProviderVertex:
		c, err := NewVertexClient(ctx, cfg, logger)
		if err != nil {
			return nil, noop, err
		}
		return c, c.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// Lazy defers building the Model until the first Generate, so a run that
// never reaches a model call does not need credentials.
type Lazy struct {
	cfg    Config
	logger *slog.Logger

	once  sync.Once
	model Model
	close func() error
	err   error
}

// NewLazy returns a Model that is built from cfg on first use.
func NewLazy(cfg Config, logger *slog.Logger) *Lazy {
	return &Lazy{cfg: cfg, logger: logger, close: func() error { return nil }}
}

// Generate builds the underlying Model once and delegates to it. A
// construction failure is returned from every call.
func (l *Lazy) Generate(ctx context.Context, prompt string) (string, error) {
	l.once.Do(func() {
		l.model, l.close, l.err = New(ctx, l.cfg, l.logger)
	})
	if l.err != nil {
		return "", l.err
	}
	return l.model.Generate(ctx, prompt)
}

// Close releases the underlying Model if it was built.
func (l *Lazy) Close() error {
	l.once.Do(func() {
		l.err = errors.New("llm: model closed before use")
	})
	return l.close()
}
