package memory

import (
	"context"
	"sort"
	"sync"

	"prepaid-usage-lab/internal/domain"
	"prepaid-usage-lab/internal/storage"
)

// RecordStore is an in-memory implementation of storage.RecordStore.
type RecordStore struct {
	mu   sync.RWMutex
	data map[float64]domain.Sample // keyed by timestamp
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		data: make(map[float64]domain.Sample),
	}
}

var _ storage.RecordStore = (*RecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if timestamp exists.
func (s *RecordStore) Insert(_ context.Context, sample domain.Sample) error {
	if err := storage.ValidateSample(sample); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sample.Timestamp]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[sample.Timestamp] = sample
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *RecordStore) InsertBulk(_ context.Context, samples []domain.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: validate and check for duplicates (existing + intra-batch)
	batchKeys := make(map[float64]struct{}, len(samples))
	for _, sample := range samples {
		if err := storage.ValidateSample(sample); err != nil {
			return err
		}
		if _, exists := s.data[sample.Timestamp]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[sample.Timestamp]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[sample.Timestamp] = struct{}{}
	}

	// Second pass: insert all
	for _, sample := range samples {
		s.data[sample.Timestamp] = sample
	}

	return nil
}

// GetByTimeRange retrieves records within [start, end] (inclusive), ordered by timestamp ASC.
func (s *RecordStore) GetByTimeRange(_ context.Context, start, end float64) ([]domain.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sample, 0)
	for ts, sample := range s.data {
		if ts >= start && ts <= end {
			result = append(result, sample)
		}
	}

	sortAscending(result)
	return result, nil
}

// GetPage retrieves a page of records ordered by timestamp DESC.
func (s *RecordStore) GetPage(_ context.Context, size, index int) ([]domain.Sample, error) {
	if err := storage.ValidatePage(size, index); err != nil {
		return nil, err
	}

	s.mu.RLock()
	all := make([]domain.Sample, 0, len(s.data))
	for _, sample := range s.data {
		all = append(all, sample)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp > all[j].Timestamp
	})

	offset := size * index
	if offset >= len(all) {
		return []domain.Sample{}, nil
	}
	end := min(offset+size, len(all))

	return domain.CloneSamples(all[offset:end]), nil
}

// Count returns the total number of records.
func (s *RecordStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.data)), nil
}

// CountSince returns the number of records with timestamp > since.
func (s *RecordStore) CountSince(_ context.Context, since float64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for ts := range s.data {
		if ts > since {
			count++
		}
	}
	return count, nil
}

// EarliestAfter returns the oldest record with timestamp > after.
func (s *RecordStore) EarliestAfter(_ context.Context, after float64) (domain.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  domain.Sample
		found bool
	)
	for ts, sample := range s.data {
		if ts > after && (!found || ts < best.Timestamp) {
			best = sample
			found = true
		}
	}

	if !found {
		return domain.Sample{}, storage.ErrNotFound
	}
	return best, nil
}

// Latest returns the newest record.
func (s *RecordStore) Latest(_ context.Context) (domain.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  domain.Sample
		found bool
	)
	for ts, sample := range s.data {
		if !found || ts > best.Timestamp {
			best = sample
			found = true
		}
	}

	if !found {
		return domain.Sample{}, storage.ErrNotFound
	}
	return best, nil
}

func sortAscending(samples []domain.Sample) {
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Timestamp < samples[j].Timestamp
	})
}
