package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guillermoBallester/tabletalk/internal/core/port"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Gemini translates utterances with Gemini function calling.
type Gemini struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewGemini(ctx context.Context, cfg Config, logger *slog.Logger) (*Gemini, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}

	cc := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if u := strings.TrimSpace(cfg.BaseURL); u != "" {
		cc.HTTPOptions.BaseURL = u
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{
		client:  client,
		model:   modelOrDefault(cfg.Model, defaultGeminiModel),
		limiter: newLimiter(cfg.RPS),
		logger:  logger,
	}, nil
}

func (g *Gemini) Translate(ctx context.Context, req port.TranslateRequest) (*port.Translation, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limit: %w", err)
	}

	config := &genai.GenerateContentConfig{
		CandidateCount: 1,
		Tools:          []*genai.Tool{{FunctionDeclarations: geminiDeclarations(req.Tools)}},
	}
	if req.Instructions != "" {
		config.SystemInstruction = genai.NewContentFromText(req.Instructions, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Utterance), config)
	if err != nil {
		return nil, classifyGeminiErr(err)
	}

	out := &port.Translation{Model: g.model}
	for _, fc := range resp.FunctionCalls() {
		if fc == nil {
			continue
		}
		out.Calls = append(out.Calls, port.ToolCall{Name: fc.Name, Arguments: fc.Args})
	}
	out.Text = strings.TrimSpace(geminiText(resp))

	g.logger.DebugContext(ctx, "gemini translation",
		slog.String("llm.model", g.model),
		slog.Int("llm.tool_calls", len(out.Calls)),
	)
	return out, nil
}

func geminiDeclarations(specs []port.ToolSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, s := range specs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 s.Name,
			Description:          s.Description,
			ParametersJsonSchema: s.Parameters,
		})
	}
	return decls
}

// geminiText concatenates the text parts of the first candidate. resp.Text()
// warns when function calls are present, so the parts are read directly.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func classifyGeminiErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return transient(err)
		}
		return fmt.Errorf("gemini: %w", err)
	}
	if isTemporaryNetErr(err) {
		return transient(err)
	}
	return fmt.Errorf("gemini: %w", err)
}
