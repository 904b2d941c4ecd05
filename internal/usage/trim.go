package usage

import (
	"prepaid-usage-lab/internal/domain"
)

// TrimFirst drops the leading sentinel point produced by Difference.
func TrimFirst(samples []domain.Sample) []domain.Sample {
	if len(samples) == 0 {
		return domain.CloneSamples(samples)
	}
	return domain.CloneSamples(samples[1:])
}
