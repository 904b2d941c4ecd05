package usage

import (
	"math"

	"prepaid-usage-lab/internal/domain"
)

const secondsPerDay = 24 * 60 * 60

// ResolveMergeRatio turns a MergeRatio option into a concrete window size.
// Resolution rule:
//   - fixed ratio: used as given
//   - auto: floor((last.ts - first.ts) / 86400), one bucket per day of span
//
// The result is clamped to a minimum of 1.
func ResolveMergeRatio(samples []domain.Sample, ratio domain.MergeRatio) int {
	n, fixed := ratio.Fixed()
	if !fixed {
		n = 0
		if len(samples) > 0 {
			span := samples[len(samples)-1].Timestamp - samples[0].Timestamp
			n = int(math.Floor(span / secondsPerDay))
		}
	}
	return max(1, n)
}

// Merge aggregates consecutive windows of the resolved ratio into one point each.
// Quantities are summed (not averaged) so total usage is conserved; the output point
// takes the last timestamp of its window. The final window may be shorter.
//
// Ratio 1 or a series shorter than the ratio is returned unchanged.
func Merge(samples []domain.Sample, ratio domain.MergeRatio) []domain.Sample {
	size := ResolveMergeRatio(samples, ratio)
	if size == 1 || len(samples) < size {
		return domain.CloneSamples(samples)
	}

	out := make([]domain.Sample, 0, (len(samples)+size-1)/size)
	for start := 0; start < len(samples); start += size {
		end := min(start+size, len(samples))

		var bucket domain.Sample
		for _, s := range samples[start:end] {
			bucket.Light += s.Light
			bucket.AC += s.AC
		}
		bucket.Timestamp = samples[end-1].Timestamp

		out = append(out, bucket)
	}

	return out
}
