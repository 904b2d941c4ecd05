package usage

import (
	"prepaid-usage-lab/internal/domain"
)

const secondsPerHour = 60 * 60

// PerHour converts accumulated usage into a per-hour rate using the elapsed time
// since the previous point. The first point has no predecessor and is forced to 0.
//
// Must run after Merge: merged buckets hold summed usage, which is only the correct
// numerator while the elapsed time still spans the whole bucket.
func PerHour(samples []domain.Sample) []domain.Sample {
	out := domain.CloneSamples(samples)
	if len(out) == 0 {
		return out
	}

	out[0].Light = 0
	out[0].AC = 0

	for i := 1; i < len(out); i++ {
		hours := (samples[i].Timestamp - samples[i-1].Timestamp) / secondsPerHour
		if hours <= 0 {
			// no elapsed time, no rate
			out[i].Light = 0
			out[i].AC = 0
			continue
		}
		out[i].Light = samples[i].Light / hours
		out[i].AC = samples[i].AC / hours
	}

	return out
}
