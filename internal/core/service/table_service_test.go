package service

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/guillermoBallester/tabletalk/internal/core/domain"
	"github.com/guillermoBallester/tabletalk/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- recording auditor ---

type recordingAuditor struct {
	mu      sync.Mutex
	entries []port.AuditEntry
}

func (a *recordingAuditor) Record(_ context.Context, e port.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingAuditor) Close() error { return nil }

func (a *recordingAuditor) last() port.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entries[len(a.entries)-1]
}

// --- fixtures ---

func cityDataset() *domain.Dataset {
	return domain.NewDataset([]map[string]any{
		{"city": "Brussels", "postalCode": 1000, "averagePricePerM2": 3500, "population": 1200000},
		{"city": "Antwerp", "postalCode": 2000, "averagePricePerM2": 2800, "population": 500000},
		{"city": "Leuven", "postalCode": 3000, "averagePricePerM2": 3200, "population": 100000},
	}, domain.DefaultCatalog())
}

func newTestTable(aud *recordingAuditor) *TableService {
	if aud == nil {
		aud = &recordingAuditor{}
	}
	return NewTableService(cityDataset(), domain.DefaultCatalog(), aud, testLogger(), nil, nil,
		WithPageSize(2), WithRand(rand.New(rand.NewPCG(1, 2))))
}

func TestTableService_ExecuteOperations_JoinsMessages(t *testing.T) {
	t.Parallel()
	aud := &recordingAuditor{}
	svc := newTestTable(aud)

	ctx := WithUtterance(WithToolName(context.Background(), "filter_table"), "show cheap cities")
	out, err := svc.ExecuteOperations(ctx, []domain.Operation{
		domain.FilterOperation{Filters: []domain.Criteria{{Field: "averagePricePerM2", Operator: domain.OpLessThan, Value: 3400}}},
		domain.SortOperation{Sorts: []domain.SortSpec{{Field: "city", Direction: domain.SortAsc}}},
	})
	require.NoError(t, err)
	require.Len(t, out.Messages, 2)
	assert.Equal(t, out.Messages[0]+"; "+out.Messages[1], out.Message)
	assert.Equal(t, "Filtered to 2 of 3 records (averagePricePerM2 < 3400)", out.Messages[0])
	assert.Nil(t, out.Result)

	entry := aud.last()
	assert.Equal(t, "filter_table", entry.Tool)
	assert.Equal(t, "show cheap cities", entry.Utterance)
	assert.Equal(t, out.Message, entry.Message)
	require.Len(t, entry.Operations, 2)
	assert.Equal(t, domain.KindFilter, entry.Operations[0].Kind)
	assert.NoError(t, entry.Err)

	view := svc.Snapshot()
	assert.Equal(t, 3, view.TotalRows)
	assert.Equal(t, 2, view.FilteredRows)
	assert.Equal(t, []string{"averagePricePerM2 < 3400"}, view.ActiveFilters)
	require.Len(t, view.Visible, 2)
	assert.Equal(t, "Antwerp", view.Visible[0].Get("city"))
}

func TestTableService_ExecuteOperations_RejectsMalformedBatch(t *testing.T) {
	t.Parallel()
	aud := &recordingAuditor{}
	svc := newTestTable(aud)

	_, err := svc.ExecuteOperations(context.Background(), []domain.Operation{
		domain.SortOperation{Sorts: []domain.SortSpec{{Field: "city", Direction: domain.SortAsc}}},
		domain.FilterOperation{},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	assert.Empty(t, aud.entries, "rejected batches are not executed")
	assert.False(t, svc.Snapshot().State.HasSorting(), "state untouched")

	_, err = svc.ExecuteOperations(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrMissingParameter)
}

func TestTableService_ExecuteOperations_FailedOperationContinues(t *testing.T) {
	t.Parallel()
	aud := &recordingAuditor{}
	svc := newTestTable(aud)

	out, err := svc.ExecuteOperations(context.Background(), []domain.Operation{
		domain.SortOperation{Sorts: []domain.SortSpec{{Field: "altitude", Direction: domain.SortAsc}}},
		domain.SelectionOperation{Action: domain.SelectAll},
	})
	require.NoError(t, err)
	require.Len(t, out.Messages, 2)
	assert.Contains(t, out.Messages[0], "Error: ")
	assert.Equal(t, "Selected all 3 records", out.Messages[1])
	assert.Equal(t, 3, svc.Snapshot().SelectedRows)
	assert.ErrorIs(t, aud.last().Err, domain.ErrUnknownField)
}

func TestTableService_DataResultHighlightsRows(t *testing.T) {
	t.Parallel()
	svc := newTestTable(nil)

	out, err := svc.ExecuteOperations(context.Background(), []domain.Operation{
		domain.AnalyticsOperation{Operation: domain.AnalyticsTopN, Field: "averagePricePerM2", Count: 2},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, domain.ResultData, out.Result.Type)
	assert.Equal(t, "Top 2 by averagePricePerM2 (All 3 records): 1. Brussels (3,500), 2. Leuven (3,200)", out.Message)
	assert.Equal(t, map[string]bool{"0": true, "2": true}, out.State.Selection)

	view := svc.Snapshot()
	assert.Equal(t, 2, view.SelectedRows)
	assert.Same(t, out.Result, view.LastResult)
}

func TestTableService_ExecuteAnalysis(t *testing.T) {
	t.Parallel()

	t.Run("sum over all", func(t *testing.T) {
		t.Parallel()
		svc := newTestTable(nil)
		res := svc.ExecuteAnalysis(context.Background(), domain.AnalyticsOperation{
			Operation: domain.AnalyticsSum, Field: "averagePricePerM2", Scope: domain.ScopeAll,
		})
		require.False(t, res.Failed(), res.Message)
		assert.InDelta(t, 9500, res.Value, 1e-9)
	})

	t.Run("selected scope with nothing selected", func(t *testing.T) {
		t.Parallel()
		svc := newTestTable(nil)
		res := svc.ExecuteAnalysis(context.Background(), domain.AnalyticsOperation{
			Operation: domain.AnalyticsSum, Field: "averagePricePerM2", Scope: domain.ScopeSelected,
		})
		require.True(t, res.Failed())
		assert.Zero(t, res.Value)
		assert.Contains(t, res.Message, "No rows selected")
	})

	t.Run("malformed request still yields a result", func(t *testing.T) {
		t.Parallel()
		svc := newTestTable(nil)
		res := svc.ExecuteAnalysis(context.Background(), domain.AnalyticsOperation{Operation: "median", Field: "population"})
		require.NotNil(t, res)
		require.True(t, res.Failed())
		assert.Contains(t, res.Message, "Error: ")
		assert.Same(t, res, svc.Snapshot().LastResult)
	})

	t.Run("non-numeric field", func(t *testing.T) {
		t.Parallel()
		svc := newTestTable(nil)
		res := svc.ExecuteAnalysis(context.Background(), domain.AnalyticsOperation{Operation: domain.AnalyticsAverage, Field: "city"})
		require.True(t, res.Failed())
		assert.Contains(t, res.Error, domain.ErrNonNumericField.Error())
	})
}

func TestTableService_SnapshotGroups(t *testing.T) {
	t.Parallel()
	svc := newTestTable(nil)
	_, err := svc.ExecuteOperations(context.Background(), []domain.Operation{
		domain.GroupOperation{
			Action: domain.GroupBy, Field: "city",
			Aggregations: []domain.Aggregation{{Field: "population", Function: domain.AggSum}},
		},
	})
	require.NoError(t, err)

	view := svc.Snapshot()
	require.Len(t, view.Groups, 3)
	assert.Equal(t, "Brussels", view.Groups[0].Key)
	assert.InDelta(t, 1200000, view.Groups[0].Aggregates["sum(population)"], 1e-9)
	assert.True(t, view.State.Expanded.Keys["city:Brussels"])
}

func TestTableService_Reset(t *testing.T) {
	t.Parallel()
	svc := newTestTable(nil)
	_, err := svc.ExecuteOperations(context.Background(), []domain.Operation{
		domain.SelectionOperation{Action: domain.SelectAll},
		domain.SortOperation{Sorts: []domain.SortSpec{{Field: "population", Direction: domain.SortDesc}}},
	})
	require.NoError(t, err)

	svc.Reset(context.Background())
	view := svc.Snapshot()
	assert.Zero(t, view.SelectedRows)
	assert.False(t, view.State.HasSorting())
	assert.Nil(t, view.LastResult)
	assert.Equal(t, 2, view.State.Pagination.PageSize)
}

func TestTableService_ConcurrentBatchesSerialize(t *testing.T) {
	t.Parallel()
	svc := newTestTable(nil)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ExecuteOperations(context.Background(), []domain.Operation{
				domain.SelectionOperation{Action: domain.InvertSelection},
				domain.SelectionOperation{Action: domain.InvertSelection},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Zero(t, svc.Snapshot().SelectedRows, "each batch inverts twice, atomically")
}

func TestTableService_Columns(t *testing.T) {
	t.Parallel()
	svc := newTestTable(nil)
	assert.Equal(t, []string{"averagePricePerM2", "city", "population", "postalCode"}, svc.Columns())
	assert.Equal(t, 3, svc.Dataset().Len())
}
