package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/tabletalk/internal/core/domain"
	"github.com/guillermoBallester/tabletalk/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DatasetDescription is what describe_dataset returns.
type DatasetDescription struct {
	Source string                `json:"source"`
	Rows   int                   `json:"rows"`
	Fields []domain.FieldProfile `json:"fields"`
}

// DatasetService loads the working set from a row source.
type DatasetService struct {
	source  port.RowSource
	catalog *domain.Catalog
	maxRows int
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewDatasetService(source port.RowSource, catalog *domain.Catalog, maxRows int, logger *slog.Logger, tracer trace.Tracer) *DatasetService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	return &DatasetService{
		source:  source,
		catalog: catalog,
		maxRows: maxRows,
		logger:  logger,
		tracer:  tracer,
	}
}

// Load reads the source and builds the dataset. Records beyond maxRows are
// dropped with a warning; an empty source is an error.
func (s *DatasetService) Load(ctx context.Context) (*domain.Dataset, error) {
	ctx, span := s.tracer.Start(ctx, "DatasetService.Load",
		trace.WithAttributes(attribute.String("dataset.source", s.source.Name())),
	)
	defer span.End()

	start := time.Now()
	records, err := s.source.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("loading %s: %w", s.source.Name(), err)
	}
	if len(records) == 0 {
		span.SetStatus(codes.Error, domain.ErrEmptyDataset.Error())
		return nil, fmt.Errorf("loading %s: %w", s.source.Name(), domain.ErrEmptyDataset)
	}
	if s.maxRows > 0 && len(records) > s.maxRows {
		s.logger.WarnContext(ctx, "dataset truncated",
			slog.String("dataset.source", s.source.Name()),
			slog.Int("dataset.rows", len(records)),
			slog.Int("dataset.max_rows", s.maxRows),
		)
		records = records[:s.maxRows]
	}

	ds := domain.NewDataset(records, s.catalog)
	span.SetAttributes(attribute.Int("dataset.rows", ds.Len()))
	s.logger.InfoContext(ctx, "dataset loaded",
		slog.String("dataset.source", s.source.Name()),
		slog.Int("dataset.rows", ds.Len()),
		slog.Int("dataset.fields", len(ds.Fields())),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return ds, nil
}

// Describe profiles every column of ds.
func (s *DatasetService) Describe(ds *domain.Dataset) DatasetDescription {
	return DatasetDescription{
		Source: s.source.Name(),
		Rows:   ds.Len(),
		Fields: domain.ProfileFields(ds, s.catalog),
	}
}
