package domain

import "context"

// HistoryRepository defines the interface for decision history persistence operations
type HistoryRepository interface {
	// Append atomically stores the application and its decision.
	// The returned record carries a freshly assigned, strictly increasing ID and timestamp.
	Append(ctx context.Context, input ApplicationInput, decision Decision) (*HistoryRecord, error)

	// ListAll returns every committed record, most recent first
	ListAll(ctx context.Context) ([]*HistoryRecord, error)

	// Delete removes a single record. Administrative use only.
	Delete(ctx context.Context, id int64) error
}
