package usage

import (
	"fmt"
	"math"

	"prepaid-usage-lab/internal/domain"
)

// ValidateAscending checks that every timestamp is finite and strictly greater than its predecessor.
// Samples are never reordered: every stage relies on the storage order being correct.
func ValidateAscending(samples []domain.Sample) error {
	for i, s := range samples {
		if math.IsNaN(s.Timestamp) || math.IsInf(s.Timestamp, 0) {
			return fmt.Errorf("sample %d: %w", i, ErrInvalidTimestamp)
		}
		if i > 0 && s.Timestamp <= samples[i-1].Timestamp {
			return fmt.Errorf("sample %d (ts=%v) after ts=%v: %w",
				i, s.Timestamp, samples[i-1].Timestamp, ErrNotAscending)
		}
	}
	return nil
}
