package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MergeRatio is the number of consecutive points the smart merge folds into one.
// The zero value means "auto": the ratio is derived from the span of the series.
type MergeRatio struct {
	value int
	fixed bool
}

// AutoMergeRatio returns a ratio resolved from the series span (one bucket per day of span).
func AutoMergeRatio() MergeRatio {
	return MergeRatio{}
}

// FixedMergeRatio returns an explicit ratio. Values below 1 are clamped to 1 on resolution.
func FixedMergeRatio(n int) MergeRatio {
	return MergeRatio{value: n, fixed: true}
}

// Fixed reports whether an explicit ratio was set and returns it.
func (r MergeRatio) Fixed() (int, bool) {
	return r.value, r.fixed
}

// MarshalJSON encodes an auto ratio as null and a fixed ratio as its integer value.
func (r MergeRatio) MarshalJSON() ([]byte, error) {
	if !r.fixed {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

// UnmarshalJSON accepts null (auto) or a positive integer (fixed).
func (r *MergeRatio) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = AutoMergeRatio()
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("merge_ratio: %w", err)
	}
	if n < 1 {
		return fmt.Errorf("merge_ratio must be a positive integer, got %d", n)
	}
	*r = FixedMergeRatio(n)
	return nil
}

// ConvertConfig selects which stages of the balance -> usage conversion run.
// Stage order is fixed regardless of which flags are set.
type ConvertConfig struct {
	Spreading        bool       `json:"spreading"`
	Smoothing        bool       `json:"smoothing"`
	PerHourUsage     bool       `json:"per_hour_usage"`
	UseSmartMerge    bool       `json:"use_smart_merge"`
	MergeRatio       MergeRatio `json:"merge_ratio"`
	RemoveFirstPoint bool       `json:"remove_first_point"`
}

// SpreadConfig holds the process-wide point spreading thresholds.
// A gap triggers spreading when gap > MaxGapSeconds + ToleranceSeconds.
type SpreadConfig struct {
	MaxGapSeconds    float64
	ToleranceSeconds float64
}

// Default spreading thresholds (seconds).
const (
	DefaultSpreadMaxGapSeconds    = 60 * 60
	DefaultSpreadToleranceSeconds = 10 * 60
)

// DefaultSpreadConfig returns the default spreading thresholds (60 min + 10 min tolerance).
func DefaultSpreadConfig() SpreadConfig {
	return SpreadConfig{
		MaxGapSeconds:    DefaultSpreadMaxGapSeconds,
		ToleranceSeconds: DefaultSpreadToleranceSeconds,
	}
}
