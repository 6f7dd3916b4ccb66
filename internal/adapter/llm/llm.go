// Package llm implements port.Translator over hosted language models.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/guillermoBallester/tabletalk/internal/core/port"
	"golang.org/x/time/rate"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"

	defaultGeminiModel = "gemini-2.0-flash"
	defaultOpenAIModel = "gpt-4o-mini"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported llm provider")
	ErrMissingAPIKey       = errors.New("llm api key is required")
	// ErrTransient marks failures worth retrying: throttling, 5xx, network timeouts.
	ErrTransient = errors.New("transient llm failure")
)

type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string // proxies and tests
	RPS      float64
}

// New builds the translator for cfg.Provider. The "none" provider yields a
// nil translator and no error.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (port.Translator, error) {
	switch cfg.Provider {
	case ProviderNone, "":
		return nil, nil
	case ProviderGemini:
		return NewGemini(ctx, cfg, logger)
	case ProviderOpenAI:
		return NewOpenAI(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

func modelOrDefault(model, fallback string) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	return fallback
}

func isTemporaryNetErr(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}
