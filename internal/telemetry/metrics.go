package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/guillermoBallester/tabletalk"

// Instruments holds pre-created OTel metric instruments. It implements
// port.Instrumentation.
type Instruments struct {
	OperationCount    metric.Int64Counter
	OperationErrors   metric.Int64Counter
	AnalyticsDuration metric.Float64Histogram
	ToolDuration      metric.Float64Histogram
	TranslateDuration metric.Float64Histogram
}

// NewInstruments creates metric instruments from the global MeterProvider.
func NewInstruments() *Instruments {
	return newInstrumentsFromMeter(otel.Meter(meterName))
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return newInstrumentsFromMeter(noop.NewMeterProvider().Meter(meterName))
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	opCount, _ := meter.Int64Counter("tabletalk.operation.count",
		metric.WithDescription("Table operations applied, by kind"),
	)
	opErrors, _ := meter.Int64Counter("tabletalk.operation.errors",
		metric.WithDescription("Table operations that failed, by kind"),
	)
	analyticsDuration, _ := meter.Float64Histogram("tabletalk.analytics.duration",
		metric.WithDescription("Analytics computation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	toolDuration, _ := meter.Float64Histogram("tabletalk.tool.duration",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	translateDuration, _ := meter.Float64Histogram("tabletalk.llm.duration",
		metric.WithDescription("Language model translation duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		OperationCount:    opCount,
		OperationErrors:   opErrors,
		AnalyticsDuration: analyticsDuration,
		ToolDuration:      toolDuration,
		TranslateDuration: translateDuration,
	}
}

func kindAttr(kind string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("table.operation", kind))
}

func (i *Instruments) IncrementOperationCount(ctx context.Context, kind string) {
	i.OperationCount.Add(ctx, 1, kindAttr(kind))
}

func (i *Instruments) IncrementOperationErrors(ctx context.Context, kind string) {
	i.OperationErrors.Add(ctx, 1, kindAttr(kind))
}

func (i *Instruments) RecordAnalyticsDuration(ctx context.Context, ms float64) {
	i.AnalyticsDuration.Record(ctx, ms)
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}

func (i *Instruments) RecordTranslateDuration(ctx context.Context, ms float64) {
	i.TranslateDuration.Record(ctx, ms)
}
