package usage

import (
	"prepaid-usage-lab/internal/domain"
)

// Smoothing filter weights for (previous, current, next).
const (
	smoothPrevWeight = 0.1
	smoothCurWeight  = 0.7
	smoothNextWeight = 0.2
)

// Smooth applies a fixed 3-tap weighted moving average to interior points:
//
//	new[i] = 0.1*old[i-1] + 0.7*old[i] + 0.2*old[i+1]
//
// Endpoints and all timestamps are copied verbatim. Series shorter than 3 are returned unchanged.
func Smooth(samples []domain.Sample) []domain.Sample {
	out := domain.CloneSamples(samples)
	if len(samples) < 3 {
		return out
	}

	for i := 1; i < len(samples)-1; i++ {
		prev, cur, next := samples[i-1], samples[i], samples[i+1]
		out[i].Light = prev.Light*smoothPrevWeight + cur.Light*smoothCurWeight + next.Light*smoothNextWeight
		out[i].AC = prev.AC*smoothPrevWeight + cur.AC*smoothCurWeight + next.AC*smoothNextWeight
	}

	return out
}
