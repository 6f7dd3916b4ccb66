package port

import (
	"context"

	"github.com/guillermoBallester/tabletalk/internal/core/domain"
)

// AuditEntry represents one executed operation batch.
type AuditEntry struct {
	Tool       string
	Utterance  string
	Operations []domain.Envelope
	Message    string
	DurationMS int64
	Err        error
}

// OperationAuditor records executed operation batches.
type OperationAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}
