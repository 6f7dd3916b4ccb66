package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/guillermoBallester/tabletalk/internal/core/port"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Source loads the dataset from a SELECT run in a read-only transaction.
type Source struct {
	pool         *pgxpool.Pool
	validator    port.QueryValidator
	query        string
	maxRows      int
	queryTimeout time.Duration
}

func NewSource(pool *pgxpool.Pool, validator port.QueryValidator, query string, maxRows int, queryTimeout time.Duration) *Source {
	return &Source{
		pool:         pool,
		validator:    validator,
		query:        query,
		maxRows:      maxRows,
		queryTimeout: queryTimeout,
	}
}

func (s *Source) Name() string { return "postgres" }

func (s *Source) Load(ctx context.Context) ([]map[string]any, error) {
	if err := s.validator.Validate(s.query); err != nil {
		return nil, fmt.Errorf("validating dataset query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	sql := s.query
	if s.maxRows > 0 {
		sql = fmt.Sprintf("SELECT * FROM (%s) AS _q LIMIT %d", s.query, s.maxRows)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// SET LOCAL lets PostgreSQL cancel the query server-side, scoped to this transaction.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%d'", s.queryTimeout.Milliseconds())); err != nil {
		return nil, fmt.Errorf("setting statement timeout: %w", err)
	}

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	records, err := rowsToMaps(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return records, nil
}
