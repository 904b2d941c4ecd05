package storage

import (
	"context"

	"prepaid-usage-lab/internal/domain"
)

// RecordStore provides access to balance_records storage.
// Records are keyed by timestamp. All reads return value copies: callers may
// mutate the returned samples without affecting stored state.
type RecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if timestamp exists.
	Insert(ctx context.Context, s domain.Sample) error

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, samples []domain.Sample) error

	// GetByTimeRange retrieves records within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end float64) ([]domain.Sample, error)

	// GetPage retrieves a page of records ordered by timestamp DESC (newest first).
	// index is zero-based.
	GetPage(ctx context.Context, size, index int) ([]domain.Sample, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	// CountSince returns the number of records with timestamp > since.
	CountSince(ctx context.Context, since float64) (int64, error)

	// EarliestAfter returns the oldest record with timestamp > after. Returns ErrNotFound if none.
	EarliestAfter(ctx context.Context, after float64) (domain.Sample, error)

	// Latest returns the newest record. Returns ErrNotFound if the store is empty.
	Latest(ctx context.Context) (domain.Sample, error)
}
