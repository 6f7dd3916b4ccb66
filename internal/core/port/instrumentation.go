package port

import "context"

// Instrumentation records application-level metrics.
type Instrumentation interface {
	IncrementOperationCount(ctx context.Context, kind string)
	IncrementOperationErrors(ctx context.Context, kind string)
	RecordAnalyticsDuration(ctx context.Context, ms float64)
	RecordToolDuration(ctx context.Context, ms float64)
	RecordTranslateDuration(ctx context.Context, ms float64)
}

// NoopInstrumentation discards all metrics.
type NoopInstrumentation struct{}

func (NoopInstrumentation) IncrementOperationCount(context.Context, string)  {}
func (NoopInstrumentation) IncrementOperationErrors(context.Context, string) {}
func (NoopInstrumentation) RecordAnalyticsDuration(context.Context, float64) {}
func (NoopInstrumentation) RecordToolDuration(context.Context, float64)      {}
func (NoopInstrumentation) RecordTranslateDuration(context.Context, float64) {}
