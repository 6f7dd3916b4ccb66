package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/guillermoBallester/tabletalk/internal/core/domain"
	"github.com/guillermoBallester/tabletalk/internal/core/port"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const auditPath = "/var/log/tabletalk/audit.jsonl"

// rawEntry mirrors fileEntry with operations left undecoded.
type rawEntry struct {
	Timestamp  string            `json:"ts"`
	Tool       string            `json:"tool"`
	Utterance  string            `json:"utterance"`
	Operations []json.RawMessage `json:"operations"`
	Message    string            `json:"message"`
	DurationMS int64             `json:"duration_ms"`
	Error      *string           `json:"error"`
}

func readEntries(t *testing.T, fs afero.Fs) []rawEntry {
	t.Helper()
	f, err := fs.Open(auditPath)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	var out []rawEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e rawEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e), "line %d: %s", len(out)+1, scanner.Text())
		out = append(out, e)
	}
	require.NoError(t, scanner.Err())
	return out
}

func newAuditor(t *testing.T, fs afero.Fs) *FileAuditor {
	t.Helper()
	require.NoError(t, fs.MkdirAll("/var/log/tabletalk", 0o755))
	fa, err := NewFileAuditor(fs, auditPath)
	require.NoError(t, err)
	return fa
}

func TestNewFileAuditor_CreatesFile(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	fa := newAuditor(t, fs)
	defer func() { require.NoError(t, fa.Close()) }()

	ok, err := afero.Exists(fs, auditPath)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewFileAuditor_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := NewFileAuditor(afero.NewReadOnlyFs(afero.NewMemMapFs()), auditPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening audit log")
}

func TestFileAuditor_Record_WritesNDJSON(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	fa := newAuditor(t, fs)

	fa.Record(context.Background(), port.AuditEntry{
		Tool:      "sort_table",
		Utterance: "sort by price",
		Operations: domain.Envelopes([]domain.Operation{
			domain.SortOperation{Sorts: []domain.SortSpec{{Field: "averagePricePerM2", Direction: domain.SortDesc}}},
		}),
		Message:    "Sorted by averagePricePerM2 (descending)",
		DurationMS: 42,
	})
	require.NoError(t, fa.Close())

	entries := readEntries(t, fs)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "sort_table", e.Tool)
	assert.Equal(t, "sort by price", e.Utterance)
	assert.Equal(t, "Sorted by averagePricePerM2 (descending)", e.Message)
	assert.Equal(t, int64(42), e.DurationMS)
	assert.Nil(t, e.Error)
	assert.NotEmpty(t, e.Timestamp)
	require.Len(t, e.Operations, 1)
	assert.JSONEq(t,
		`{"kind":"sort","operation":{"sorts":[{"field":"averagePricePerM2","direction":"desc"}]}}`,
		string(e.Operations[0]))
}

func TestFileAuditor_Record_WithError(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	fa := newAuditor(t, fs)

	fa.Record(context.Background(), port.AuditEntry{
		Tool: "filter_table",
		Err:  errors.Join(domain.ErrUnknownField, errors.New("altitude")),
	})
	require.NoError(t, fa.Close())

	entries := readEntries(t, fs)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Error)
	assert.Contains(t, *entries[0].Error, "unknown field")
}

func TestFileAuditor_Record_ConcurrentWrites(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	fa := newAuditor(t, fs)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			fa.Record(context.Background(), port.AuditEntry{
				Tool:    "select_rows",
				Message: fmt.Sprintf("Selected %d records", n),
			})
		}(i)
	}
	wg.Wait()
	require.NoError(t, fa.Close())

	assert.Len(t, readEntries(t, fs), 50)
}

func TestFileAuditor_Append(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()

	fa1 := newAuditor(t, fs)
	fa1.Record(context.Background(), port.AuditEntry{Tool: "sort_table"})
	require.NoError(t, fa1.Close())

	fa2 := newAuditor(t, fs)
	fa2.Record(context.Background(), port.AuditEntry{Tool: "group_rows"})
	require.NoError(t, fa2.Close())

	entries := readEntries(t, fs)
	require.Len(t, entries, 2)
	assert.Equal(t, "group_rows", entries[1].Tool)
}

func TestNoopAuditor(t *testing.T) {
	t.Parallel()
	a := NoopAuditor{}
	a.Record(context.Background(), port.AuditEntry{Tool: "sort_table"})
	assert.NoError(t, a.Close())
}
