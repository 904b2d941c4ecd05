package clickhouse

import (
	"context"
	"fmt"

	"prepaid-usage-lab/internal/domain"
	"prepaid-usage-lab/internal/storage"
)

// RecordStore implements storage.RecordStore using ClickHouse.
// MergeTree does not enforce uniqueness, so inserts check for existing
// timestamps before sending the batch. Reads use FINAL to collapse
// rows that a concurrent writer may have duplicated.
type RecordStore struct {
	conn *Conn
}

// NewRecordStore creates a new RecordStore.
func NewRecordStore(conn *Conn) *RecordStore {
	return &RecordStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RecordStore = (*RecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if timestamp exists.
func (s *RecordStore) Insert(ctx context.Context, sample domain.Sample) error {
	return s.InsertBulk(ctx, []domain.Sample{sample})
}

// InsertBulk adds multiple records. Fails entire batch on duplicate.
func (s *RecordStore) InsertBulk(ctx context.Context, samples []domain.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[float64]struct{}, len(samples))
	for _, sample := range samples {
		if err := storage.ValidateSample(sample); err != nil {
			return err
		}
		if _, exists := seen[sample.Timestamp]; exists {
			return storage.ErrDuplicateKey
		}
		seen[sample.Timestamp] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, sample := range samples {
		exists, err := s.exists(ctx, sample.Timestamp)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO balance_records (timestamp, light_balance, ac_balance)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sample := range samples {
		if err := batch.Append(sample.Timestamp, sample.Light, sample.AC); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves records within [start, end] (inclusive), ordered by timestamp ASC.
func (s *RecordStore) GetByTimeRange(ctx context.Context, start, end float64) ([]domain.Sample, error) {
	query := `
		SELECT timestamp, light_balance, ac_balance
		FROM balance_records FINAL
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
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
		FROM balance_records FINAL
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.conn.Query(ctx, query, uint64(size), uint64(size*index))
	if err != nil {
		return nil, fmt.Errorf("query page: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Count returns the total number of records.
func (s *RecordStore) Count(ctx context.Context) (int64, error) {
	var count uint64
	if err := s.conn.QueryRow(ctx, `SELECT count(*) FROM balance_records FINAL`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return int64(count), nil
}

// CountSince returns the number of records with timestamp > since.
func (s *RecordStore) CountSince(ctx context.Context, since float64) (int64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM balance_records FINAL WHERE timestamp > ?`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records since: %w", err)
	}
	return int64(count), nil
}

// EarliestAfter returns the oldest record with timestamp > after.
func (s *RecordStore) EarliestAfter(ctx context.Context, after float64) (domain.Sample, error) {
	query := `
		SELECT timestamp, light_balance, ac_balance
		FROM balance_records FINAL
		WHERE timestamp > ?
		ORDER BY timestamp ASC
		LIMIT 1
	`
	return s.queryOne(ctx, query, after)
}

// Latest returns the newest record.
func (s *RecordStore) Latest(ctx context.Context) (domain.Sample, error) {
	query := `
		SELECT timestamp, light_balance, ac_balance
		FROM balance_records FINAL
		ORDER BY timestamp DESC
		LIMIT 1
	`
	return s.queryOne(ctx, query)
}

func (s *RecordStore) queryOne(ctx context.Context, query string, args ...interface{}) (domain.Sample, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return domain.Sample{}, fmt.Errorf("query record: %w", err)
	}
	defer rows.Close()

	samples, err := scanRecords(rows)
	if err != nil {
		return domain.Sample{}, err
	}
	if len(samples) == 0 {
		return domain.Sample{}, storage.ErrNotFound
	}
	return samples[0], nil
}

// exists checks if a record with the given timestamp exists.
func (s *RecordStore) exists(ctx context.Context, timestamp float64) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM balance_records WHERE timestamp = ?`, timestamp).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanRecords scans multiple rows.
func scanRecords(rows chRows) ([]domain.Sample, error) {
	samples := make([]domain.Sample, 0)

	for rows.Next() {
		var sample domain.Sample
		if err := rows.Scan(&sample.Timestamp, &sample.Light, &sample.AC); err != nil {
			return nil, fmt.Errorf("scan balance record row: %w", err)
		}
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance record rows: %w", err)
	}

	return samples, nil
}
