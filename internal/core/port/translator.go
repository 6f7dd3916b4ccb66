package port

import "context"

// ToolSpec declares one callable tool to a language model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema of the arguments object
}

// ToolCall is a tool invocation returned by a language model. Arguments
// are untrusted until decoded by the tool layer.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

type TranslateRequest struct {
	Utterance    string
	Instructions string
	Tools        []ToolSpec
}

// Translation is the model's answer: tool calls, free text, or both.
type Translation struct {
	Calls []ToolCall
	Text  string
	Model string
}

// Translator maps a natural-language utterance onto tool calls.
type Translator interface {
	Translate(ctx context.Context, req TranslateRequest) (*Translation, error)
}
