package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guillermoBallester/tabletalk/internal/core/port"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAI translates utterances with any OpenAI-compatible chat completions
// endpoint that supports tools.
type OpenAI struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewOpenAI(cfg Config, logger *slog.Logger) (*OpenAI, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	oc := openai.DefaultConfig(key)
	if u := strings.TrimSpace(cfg.BaseURL); u != "" {
		oc.BaseURL = u
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(oc),
		model:   modelOrDefault(cfg.Model, defaultOpenAIModel),
		limiter: newLimiter(cfg.RPS),
		logger:  logger,
	}, nil
}

func (o *OpenAI) Translate(ctx context.Context, req port.TranslateRequest) (*port.Translation, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limit: %w", err)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openAIRequest(o.model, req))
	if err != nil {
		return nil, classifyOpenAIErr(err)
	}

	out := &port.Translation{Model: resp.Model}
	if out.Model == "" {
		out.Model = o.model
	}
	if len(resp.Choices) == 0 {
		return out, nil
	}

	msg := resp.Choices[0].Message
	out.Text = strings.TrimSpace(msg.Content)
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if strings.TrimSpace(tc.Function.Arguments) != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				// Passed through empty so the tool layer reports the call as invalid.
				o.logger.WarnContext(ctx, "undecodable tool arguments",
					slog.String("mcp.tool", tc.Function.Name),
					slog.String("error", err.Error()),
				)
				args = nil
			}
		}
		out.Calls = append(out.Calls, port.ToolCall{Name: tc.Function.Name, Arguments: args})
	}

	o.logger.DebugContext(ctx, "openai translation",
		slog.String("llm.model", out.Model),
		slog.Int("llm.tool_calls", len(out.Calls)),
	)
	return out, nil
}

func openAIRequest(model string, req port.TranslateRequest) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if req.Instructions != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.Instructions,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Utterance,
	})

	r := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}
	if len(req.Tools) > 0 {
		r.Tools = make([]openai.Tool, len(req.Tools))
		for i, s := range req.Tools {
			r.Tools[i] = openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        s.Name,
					Description: s.Description,
					Parameters:  s.Parameters,
				},
			}
		}
		r.ToolChoice = "auto"
	}
	return r
}

func classifyOpenAIErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode/100 == 5 {
			return transient(err)
		}
		return fmt.Errorf("openai: %w", err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && (reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode/100 == 5) {
		return transient(err)
	}
	if isTemporaryNetErr(err) {
		return transient(err)
	}
	return fmt.Errorf("openai: %w", err)
}
