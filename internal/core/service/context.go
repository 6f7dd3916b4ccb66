package service

import "context"

type (
	toolNameKey  struct{}
	utteranceKey struct{}
)

// WithToolName returns a context carrying the tool name for audit logging.
func WithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolNameKey{}, name)
}

func toolNameFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(toolNameKey{}).(string); ok {
		return v
	}
	return ""
}

// WithUtterance returns a context carrying the user utterance that produced
// the operations being executed.
func WithUtterance(ctx context.Context, utterance string) context.Context {
	return context.WithValue(ctx, utteranceKey{}, utterance)
}

func utteranceFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(utteranceKey{}).(string); ok {
		return v
	}
	return ""
}
