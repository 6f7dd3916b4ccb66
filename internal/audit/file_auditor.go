package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/guillermoBallester/tabletalk/internal/core/domain"
	"github.com/guillermoBallester/tabletalk/internal/core/port"
	"github.com/spf13/afero"
)

// fileEntry is the NDJSON-serializable form of an audit record.
type fileEntry struct {
	Timestamp  string            `json:"ts"`
	Tool       string            `json:"tool,omitempty"`
	Utterance  string            `json:"utterance,omitempty"`
	Operations []domain.Envelope `json:"operations"`
	Message    string            `json:"message"`
	DurationMS int64             `json:"duration_ms"`
	Error      *string           `json:"error"`
}

// FileAuditor writes one NDJSON line per executed operation batch.
type FileAuditor struct {
	mu   sync.Mutex
	file afero.File
	enc  *json.Encoder
}

// NewFileAuditor opens (or creates) path on fs for append-only writing.
func NewFileAuditor(fs afero.Fs, path string) (*FileAuditor, error) {
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &FileAuditor{
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

func (a *FileAuditor) Record(_ context.Context, entry port.AuditEntry) {
	fe := fileEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Tool:       entry.Tool,
		Utterance:  entry.Utterance,
		Operations: entry.Operations,
		Message:    entry.Message,
		DurationMS: entry.DurationMS,
	}
	if entry.Err != nil {
		s := entry.Err.Error()
		fe.Error = &s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.enc.Encode(fe) // best-effort; audit I/O never fails a batch
}

func (a *FileAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// NoopAuditor discards all audit entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, port.AuditEntry) {}
func (NoopAuditor) Close() error                            { return nil }
