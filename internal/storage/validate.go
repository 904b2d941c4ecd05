package storage

import (
	"math"

	"prepaid-usage-lab/internal/domain"
)

// ValidateSample rejects samples that cannot be stored: non-finite timestamps or balances.
func ValidateSample(s domain.Sample) error {
	for _, v := range []float64{s.Timestamp, s.Light, s.AC} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidInput
		}
	}
	return nil
}

// ValidatePage rejects non-positive page sizes and negative page indexes.
func ValidatePage(size, index int) error {
	if size <= 0 || index < 0 {
		return ErrInvalidInput
	}
	return nil
}
