package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"prepaid-usage-lab/internal/domain"
	"prepaid-usage-lab/internal/storage"
)

// RecordStore implements storage.RecordStore using PostgreSQL.
type RecordStore struct {
	pool *Pool
}

// NewRecordStore creates a new RecordStore.
func NewRecordStore(pool *Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RecordStore = (*RecordStore)(nil)

const insertRecordQuery = `
	INSERT INTO balance_records (timestamp, light_balance, ac_balance)
	VALUES ($1, $2, $3)
`

// Insert adds a new record. Returns ErrDuplicateKey if timestamp exists.
func (s *RecordStore) Insert(ctx context.Context, sample domain.Sample) error {
	if err := storage.ValidateSample(sample); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, insertRecordQuery, sample.Timestamp, sample.Light, sample.AC)
	if err != nil {
		if isDuplicateTimestamp(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert balance record: %w", err)
	}
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *RecordStore) InsertBulk(ctx context.Context, samples []domain.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	for _, sample := range samples {
		if err := storage.ValidateSample(sample); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, sample := range samples {
		_, err := tx.Exec(ctx, insertRecordQuery, sample.Timestamp, sample.Light, sample.AC)
		if err != nil {
			if isDuplicateTimestamp(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert balance record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves records within [start, end] (inclusive), ordered by timestamp ASC.
func (s *RecordStore) GetByTimeRange(ctx context.Context, start, end float64) ([]domain.Sample, error) {
	query := `
		SELECT timestamp, light_balance, ac_balance
		FROM balance_records
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get balance records by time range: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetPage retrieves a page of records ordered by timestamp DESC.
func (s *RecordStore) GetPage(ctx context.Context, size, index int) ([]domain.Sample, error) {
	if err := storage.ValidatePage(size, index); err != nil {
		return nil, err
	}

	query := `
		SELECT timestamp, light_balance, ac_balance
		FROM balance_records
		ORDER BY timestamp DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.pool.Query(ctx, query, size, size*index)
	if err != nil {
		return nil, fmt.Errorf("get balance records page: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Count returns the total number of records.
func (s *RecordStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM balance_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count balance records: %w", err)
	}
	return count, nil
}

// CountSince returns the number of records with timestamp > since.
func (s *RecordStore) CountSince(ctx context.Context, since float64) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM balance_records WHERE timestamp > $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count balance records since: %w", err)
	}
	return count, nil
}

// EarliestAfter returns the oldest record with timestamp > after.
func (s *RecordStore) EarliestAfter(ctx context.Context, after float64) (domain.Sample, error) {
	query := `
		SELECT timestamp, light_balance, ac_balance
		FROM balance_records
		WHERE timestamp > $1
		ORDER BY timestamp ASC
		LIMIT 1
	`

	sample, err := scanRecord(s.pool.QueryRow(ctx, query, after))
	if err != nil {
		if isNoRecord(err) {
			return domain.Sample{}, storage.ErrNotFound
		}
		return domain.Sample{}, fmt.Errorf("get earliest balance record: %w", err)
	}
	return sample, nil
}

// Latest returns the newest record.
func (s *RecordStore) Latest(ctx context.Context) (domain.Sample, error) {
	query := `
		SELECT timestamp, light_balance, ac_balance
		FROM balance_records
		ORDER BY timestamp DESC
		LIMIT 1
	`

	sample, err := scanRecord(s.pool.QueryRow(ctx, query))
	if err != nil {
		if isNoRecord(err) {
			return domain.Sample{}, storage.ErrNotFound
		}
		return domain.Sample{}, fmt.Errorf("get latest balance record: %w", err)
	}
	return sample, nil
}

// scanRecord scans a single row.
func scanRecord(row pgx.Row) (domain.Sample, error) {
	var sample domain.Sample
	err := row.Scan(&sample.Timestamp, &sample.Light, &sample.AC)
	return sample, err
}

// scanRecords scans multiple rows.
func scanRecords(rows pgx.Rows) ([]domain.Sample, error) {
	samples := make([]domain.Sample, 0)
	for rows.Next() {
		sample, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance record: %w", err)
		}
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance records: %w", err)
	}

	return samples, nil
}
