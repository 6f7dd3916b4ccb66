package postgres

import (
	"errors"
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

var (
	ErrEmptyQuery     = errors.New("empty query")
	ErrNotAllowed     = errors.New("only SELECT queries are allowed")
	ErrMultiStatement = errors.New("multiple statements are not allowed")
	ErrParseFailed    = errors.New("failed to parse SQL")
	ErrLockingClause  = errors.New("locking clauses are not allowed")
)

// QueryGuard checks the dataset query with PostgreSQL's own parser. Only a
// single plain SELECT passes: the query is wrapped in a LIMIT subquery, so
// EXPLAIN and row-locking reads are rejected too.
type QueryGuard struct{}

func NewQueryGuard() *QueryGuard {
	return &QueryGuard{}
}

func (g *QueryGuard) Validate(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return ErrEmptyQuery
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	if len(tree.Stmts) == 0 {
		return ErrEmptyQuery
	}
	if len(tree.Stmts) > 1 {
		return ErrMultiStatement
	}

	stmt := tree.Stmts[0].Stmt
	if stmt == nil {
		return ErrEmptyQuery
	}

	sel, ok := stmt.Node.(*pg_query.Node_SelectStmt)
	if !ok {
		return ErrNotAllowed
	}
	if sel.SelectStmt.GetIntoClause() != nil {
		return ErrNotAllowed
	}
	if len(sel.SelectStmt.GetLockingClause()) > 0 {
		return ErrLockingClause
	}
	return nil
}
