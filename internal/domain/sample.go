package domain

// Sample is one timestamped reading of the two prepaid accounts.
// Before conversion Light and AC hold balances; after conversion they hold usage.
// Corresponds to balance_records table in PostgreSQL / ClickHouse.
type Sample struct {
	Timestamp float64 `json:"timestamp"`     // Unix timestamp in seconds (fractional)
	Light     float64 `json:"light_balance"` // light (general) account
	AC        float64 `json:"ac_balance"`    // air-conditioner account
}

// CloneSamples returns an independently owned copy of samples.
// A nil input yields an empty, non-nil slice.
func CloneSamples(samples []Sample) []Sample {
	out := make([]Sample, len(samples))
	copy(out, samples)
	return out
}
