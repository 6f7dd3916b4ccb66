package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/guillermoBallester/tabletalk/internal/core/port"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testRequest = port.TranslateRequest{
	Utterance:    "sort by population",
	Instructions: "You operate a table.",
	Tools: []port.ToolSpec{{
		Name:        "sort_table",
		Description: "Sort the table",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"sorts": map[string]any{"type": "array"},
			},
		},
	}},
}

func TestNew_Providers(t *testing.T) {
	ctx := context.Background()

	tr, err := New(ctx, Config{Provider: ProviderNone}, testLogger())
	require.NoError(t, err)
	assert.Nil(t, tr)

	_, err = New(ctx, Config{Provider: "claude-via-fax"}, testLogger())
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	_, err = New(ctx, Config{Provider: ProviderOpenAI}, testLogger())
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = New(ctx, Config{Provider: ProviderGemini, APIKey: "  "}, testLogger())
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	tr, err = New(ctx, Config{Provider: ProviderOpenAI, APIKey: "k"}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, defaultOpenAIModel, tr.(*OpenAI).model)
}

func TestOpenAI_Translate(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "cmpl-1", "object": "chat.completion", "model": "gpt-test",
			"choices": [{"index": 0, "finish_reason": "tool_calls", "message": {
				"role": "assistant", "content": "",
				"tool_calls": [
					{"id": "c1", "type": "function", "function": {"name": "sort_table",
						"arguments": "{\"sorts\":[{\"field\":\"population\",\"direction\":\"desc\"}]}"}},
					{"id": "c2", "type": "function", "function": {"name": "select_rows", "arguments": "{not json"}}
				]
			}}]
		}`)
	}))
	defer srv.Close()

	tr, err := NewOpenAI(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "gpt-test"}, testLogger())
	require.NoError(t, err)

	out, err := tr.Translate(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, "gpt-test", out.Model)
	require.Len(t, out.Calls, 2)
	assert.Equal(t, "sort_table", out.Calls[0].Name)
	sorts := out.Calls[0].Arguments["sorts"].([]any)
	assert.Equal(t, "population", sorts[0].(map[string]any)["field"])
	assert.Equal(t, "select_rows", out.Calls[1].Name)
	assert.Nil(t, out.Calls[1].Arguments)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, "sort by population", got.Messages[1].Content)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "sort_table", got.Tools[0].Function.Name)
}

func TestOpenAI_TranslateClassifiesErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTransient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusBadGateway, true},
		{"unauthorized", http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"error": {"message": "nope", "type": "test"}}`)
			}))
			defer srv.Close()

			tr, err := NewOpenAI(Config{APIKey: "k", BaseURL: srv.URL + "/v1"}, testLogger())
			require.NoError(t, err)

			_, err = tr.Translate(context.Background(), testRequest)
			require.Error(t, err)
			assert.Equal(t, tt.wantTransient, errors.Is(err, ErrTransient), err.Error())
		})
	}
}

func TestGemini_Translate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-test:generateContent")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates": [{"content": {"role": "model", "parts": [
			{"text": "Sorting now."},
			{"functionCall": {"name": "sort_table", "args": {"sorts": [{"field": "population", "direction": "desc"}]}}}
		]}}]}`)
	}))
	defer srv.Close()

	tr, err := NewGemini(context.Background(), Config{APIKey: "k", BaseURL: srv.URL, Model: "gemini-test"}, testLogger())
	require.NoError(t, err)

	out, err := tr.Translate(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, "gemini-test", out.Model)
	assert.Equal(t, "Sorting now.", out.Text)
	require.Len(t, out.Calls, 1)
	assert.Equal(t, "sort_table", out.Calls[0].Name)
	assert.Contains(t, out.Calls[0].Arguments, "sorts")

	assert.Contains(t, body, "systemInstruction")
	assert.Contains(t, body, "tools")
}

func TestClassifyGeminiErr(t *testing.T) {
	tests := []struct {
		name          string
		in            error
		wantTransient bool
	}{
		{name: "api_429", in: genai.APIError{Code: 429}, wantTransient: true},
		{name: "api_503", in: genai.APIError{Code: 503}, wantTransient: true},
		{name: "api_400", in: genai.APIError{Code: 400}, wantTransient: false},
		{name: "plain", in: errors.New("boom"), wantTransient: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTransient, errors.Is(classifyGeminiErr(tt.in), ErrTransient))
		})
	}
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model": "m", "choices": [{"message": {"role": "assistant", "content": "ok"}}]}`)
	}))
	defer srv.Close()

	tr, err := NewOpenAI(Config{APIKey: "k", BaseURL: srv.URL + "/v1", RPS: 0.001}, testLogger())
	require.NoError(t, err)

	out, err := tr.Translate(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Text)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Translate(ctx, testRequest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Equal(t, int32(1), calls.Load())
}
