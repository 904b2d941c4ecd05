package usage

import (
	"math"
	"sort"

	"prepaid-usage-lab/internal/domain"
)

// Spread subdivides gaps wider than cfg.MaxGapSeconds+cfg.ToleranceSeconds into synthetic points.
// Samples must be usage samples sorted by timestamp ascending.
//
// For a gap g (whole seconds) that triggers spreading:
//   - k = floor((g-1) / max) synthetic points are created
//   - the current point's value becomes round2(value / (k+1))
//   - synthetic points are placed at cur.ts - j*max (j = 1..k) with the same value
//
// The result is re-sorted ascending. Series shorter than 2 are returned unchanged.
func Spread(samples []domain.Sample, cfg domain.SpreadConfig) []domain.Sample {
	out := domain.CloneSamples(samples)
	if len(out) < 2 || cfg.MaxGapSeconds <= 0 {
		return out
	}

	maxGap := cfg.MaxGapSeconds
	threshold := maxGap + cfg.ToleranceSeconds

	var added []domain.Sample
	for i := 1; i < len(out); i++ {
		gap := math.Trunc(out[i].Timestamp - out[i-1].Timestamp)
		if gap <= threshold {
			continue
		}

		count := int(math.Floor((gap - 1) / maxGap))
		light := divideRounded(out[i].Light, count+1)
		ac := divideRounded(out[i].AC, count+1)

		out[i].Light = light
		out[i].AC = ac

		for j := 1; j <= count; j++ {
			added = append(added, domain.Sample{
				Timestamp: out[i].Timestamp - float64(j)*maxGap,
				Light:     light,
				AC:        ac,
			})
		}
	}

	if len(added) == 0 {
		return out
	}

	out = append(out, added...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})

	return out
}

// divideRounded returns value/parts rounded to 2 decimal places (see round2).
func divideRounded(value float64, parts int) float64 {
	return round2(value / float64(parts))
}
