package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/guillermoBallester/tabletalk/internal/core/domain"
	"github.com/guillermoBallester/tabletalk/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Outcome is the result of one executed operation batch.
type Outcome struct {
	// Messages holds one message per operation, in batch order.
	Messages []string `json:"messages"`
	// Message is Messages joined with "; ".
	Message string `json:"message"`
	// Result is the last analytics result of the batch, if any.
	Result *domain.AnalyticsResult `json:"result,omitempty"`
	State  domain.TableState       `json:"state"`
}

// TableView is a read-only snapshot of the table.
type TableView struct {
	State         domain.TableState       `json:"state"`
	TotalRows     int                     `json:"total_rows"`
	FilteredRows  int                     `json:"filtered_rows"`
	SelectedRows  int                     `json:"selected_rows"`
	PageCount     int                     `json:"page_count"`
	Visible       []domain.Row            `json:"visible"`
	Groups        []domain.GroupSummary   `json:"groups,omitempty"`
	LastResult    *domain.AnalyticsResult `json:"last_result,omitempty"`
	ActiveFilters []string                `json:"active_filters,omitempty"`
}

type TableOption func(*TableService)

// WithPageSize sets the page size backing the visible scope.
func WithPageSize(n int) TableOption {
	return func(s *TableService) { s.state = domain.NewTableState(n) }
}

// WithRand sets the source used by selectRandom.
func WithRand(r *rand.Rand) TableOption {
	return func(s *TableService) { s.rnd = r }
}

// TableService owns the live table state and applies operation batches to
// it. A batch is applied atomically: no other batch observes its
// intermediate state.
type TableService struct {
	mu      sync.Mutex
	dataset *domain.Dataset
	rows    []domain.Row
	catalog *domain.Catalog
	state   domain.TableState
	last    *domain.AnalyticsResult
	rnd     *rand.Rand

	auditor port.OperationAuditor
	logger  *slog.Logger
	tracer  trace.Tracer
	inst    port.Instrumentation
}

func NewTableService(dataset *domain.Dataset, catalog *domain.Catalog, auditor port.OperationAuditor, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation, opts ...TableOption) *TableService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	s := &TableService{
		dataset: dataset,
		rows:    dataset.Rows(),
		catalog: catalog,
		state:   domain.NewTableState(domain.DefaultPageSize),
		auditor: auditor,
		logger:  logger,
		tracer:  tracer,
		inst:    inst,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExecuteOperations validates the batch, then applies it in order. A
// malformed batch is rejected as a whole and leaves the state untouched.
// Failures of individual operations become "Error: ..." messages and do not
// stop the batch.
func (s *TableService) ExecuteOperations(ctx context.Context, ops []domain.Operation) (*Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "TableService.ExecuteOperations",
		trace.WithAttributes(attribute.Int("table.operations", len(ops))),
	)
	defer span.End()

	if len(ops) == 0 {
		err := fmt.Errorf("%w: no operations", domain.ErrMissingParameter)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := domain.ValidateOperations(ops); err != nil {
		s.logger.WarnContext(ctx, "operation batch rejected",
			slog.String("error.type", "validation_error"),
			slog.String("error", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementOperationErrors(ctx, "batch")
		return nil, err
	}

	start := time.Now()

	s.mu.Lock()
	work := s.state.Clone()
	out := &Outcome{Messages: make([]string, 0, len(ops))}
	var failures []error
	for _, op := range ops {
		msg, res, err := s.apply(ctx, &work, op)
		if err != nil {
			failures = append(failures, err)
			msg = domain.UserMessage(err)
		}
		if res != nil {
			out.Result = res
			s.last = res
		}
		out.Messages = append(out.Messages, msg)
	}
	s.state = work
	out.State = work.Clone()
	s.mu.Unlock()

	out.Message = strings.Join(out.Messages, "; ")
	durationMS := time.Since(start).Milliseconds()
	batchErr := errors.Join(failures...)

	s.auditor.Record(ctx, port.AuditEntry{
		Tool:       toolNameFromCtx(ctx),
		Utterance:  utteranceFromCtx(ctx),
		Operations: domain.Envelopes(ops),
		Message:    out.Message,
		DurationMS: durationMS,
		Err:        batchErr,
	})

	if batchErr != nil {
		span.RecordError(batchErr)
		span.SetStatus(codes.Error, batchErr.Error())
	}
	s.logger.DebugContext(ctx, "operation batch executed",
		slog.Int("table.operations", len(ops)),
		slog.Int64("duration_ms", durationMS),
		slog.Int("table.failures", len(failures)),
	)
	return out, nil
}

// apply runs one operation against work. Analytics failures are reported
// through the result, never as an error.
func (s *TableService) apply(ctx context.Context, work *domain.TableState, op domain.Operation) (string, *domain.AnalyticsResult, error) {
	kind := string(op.Kind())
	if req, ok := op.(domain.AnalyticsOperation); ok {
		res := s.analyze(ctx, work, req)
		return res.Message, res, nil
	}

	msg, err := work.Apply(op, s.rows, s.catalog, s.rnd)
	if err != nil {
		s.logger.WarnContext(ctx, "operation failed",
			slog.String("table.operation", kind),
			slog.String("error", err.Error()),
		)
		s.inst.IncrementOperationErrors(ctx, kind)
		return "", nil, err
	}
	s.inst.IncrementOperationCount(ctx, kind)
	return msg, nil, nil
}

func (s *TableService) analyze(ctx context.Context, work *domain.TableState, req domain.AnalyticsOperation) *domain.AnalyticsResult {
	_, span := s.tracer.Start(ctx, "TableService.analyze",
		trace.WithAttributes(
			attribute.String("analytics.operation", string(req.Operation)),
			attribute.String("analytics.field", req.Field),
			attribute.String("analytics.scope", string(req.EffectiveScope())),
		),
	)
	defer span.End()

	start := time.Now()
	res := domain.Analyze(req, *work, s.rows, s.catalog)
	s.inst.RecordAnalyticsDuration(ctx, float64(time.Since(start).Microseconds())/1000)

	kind := string(domain.KindAnalytics)
	if res.Failed() {
		span.SetStatus(codes.Error, res.Error)
		s.inst.IncrementOperationErrors(ctx, kind)
		s.logger.InfoContext(ctx, "analytics failed",
			slog.String("analytics.operation", string(req.Operation)),
			slog.String("analytics.scope", string(req.EffectiveScope())),
			slog.String("error", res.Error),
		)
		return res
	}
	s.inst.IncrementOperationCount(ctx, kind)
	if res.Type == domain.ResultData {
		work.Selection = domain.SelectionFromRows(res.Data)
	}
	span.SetAttributes(attribute.Int("analytics.rows", res.Metadata.Count))
	return res
}

// ExecuteAnalysis is the direct analytics entry point. It always returns a
// result; malformed requests yield a failed result.
func (s *TableService) ExecuteAnalysis(ctx context.Context, req domain.AnalyticsOperation) *domain.AnalyticsResult {
	if err := domain.ValidateOperation(req); err != nil {
		s.inst.IncrementOperationErrors(ctx, string(domain.KindAnalytics))
		res := domain.ErrorResult(req, string(req.EffectiveScope()), err, "")
		s.mu.Lock()
		s.last = res
		s.mu.Unlock()
		return res
	}
	out, err := s.ExecuteOperations(ctx, []domain.Operation{req})
	if err != nil {
		return domain.ErrorResult(req, string(req.EffectiveScope()), err, "")
	}
	return out.Result
}

// Snapshot returns the current state with derived counts, the visible page
// and group summaries.
func (s *TableService) Snapshot() TableView {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := s.state.FilteredRows(s.rows)
	v := TableView{
		State:        s.state.Clone(),
		TotalRows:    len(s.rows),
		FilteredRows: len(filtered),
		SelectedRows: s.state.SelectedCount(),
		PageCount:    s.state.Pagination.PageCount(len(filtered)),
		Visible:      s.state.VisibleRows(s.rows),
		LastResult:   s.last,
	}
	for _, c := range s.state.Filters {
		v.ActiveFilters = append(v.ActiveFilters, c.Describe())
	}
	if s.state.HasGrouping() {
		v.Groups = domain.SummarizeGroups(filtered, s.state.Grouping[0], s.state.Aggregations)
	}
	return v
}

// Reset clears sorting, filters, selection, grouping and the last result.
func (s *TableService) Reset(ctx context.Context) {
	s.mu.Lock()
	s.state.Reset()
	s.last = nil
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "table state reset")
}

// Columns returns the dataset columns in sorted order.
func (s *TableService) Columns() []string {
	return s.dataset.Fields()
}

// Dataset returns the working set the table was built from.
func (s *TableService) Dataset() *domain.Dataset {
	return s.dataset
}
