// Package duckdb loads datasets from Parquet and CSV files through an
// embedded DuckDB.
package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb/v2"
)

// ViewName is the relation a custom dataset query selects from.
const ViewName = "dataset"

var ErrUnsupportedFormat = errors.New("unsupported file format: want .parquet, .csv or .tsv")

// Source reads one file. The file is exposed as the view "dataset"; query
// defaults to selecting every column from it.
type Source struct {
	path         string
	query        string
	maxRows      int
	queryTimeout time.Duration
}

func NewSource(path, query string, maxRows int, queryTimeout time.Duration) *Source {
	if strings.TrimSpace(query) == "" {
		query = "SELECT * FROM " + ViewName
	}
	return &Source{path: path, query: query, maxRows: maxRows, queryTimeout: queryTimeout}
}

func (s *Source) Name() string { return "duckdb:" + filepath.Base(s.path) }

func (s *Source) Load(ctx context.Context) ([]map[string]any, error) {
	reader, err := readerFor(s.path)
	if err != nil {
		return nil, err
	}

	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	defer db.Close()

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring duckdb connection: %w", err)
	}
	defer conn.Close()

	view := fmt.Sprintf("CREATE VIEW %s AS SELECT * FROM %s(%s)", ViewName, reader, quoteLiteral(s.path))
	if _, err := conn.ExecContext(ctx, view); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	query := s.query
	if s.maxRows > 0 {
		query = fmt.Sprintf("SELECT * FROM (%s) AS _q LIMIT %d", s.query, s.maxRows)
	}
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func readerFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return "read_parquet", nil
	case ".csv", ".tsv":
		return "read_csv_auto", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case goduckdb.Decimal:
		return x.Float64()
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case []byte:
		return string(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case string, int64, uint64, float64, bool:
		return x
	default:
		return fmt.Sprint(x)
	}
}
