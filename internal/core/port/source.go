package port

import "context"

// RowSource loads the raw records of the working set. Values are strings,
// numbers, booleans or nil; numeric normalization happens at ingestion.
type RowSource interface {
	Load(ctx context.Context) ([]map[string]any, error)
	// Name identifies the source in logs and dataset descriptions.
	Name() string
}
