package usage

import (
	"prepaid-usage-lab/internal/domain"
)

// Difference converts an ascending balance series into a usage series of the same length.
//
//	usage[i] = max(0, balance[i-1] - balance[i])   for i = n-1 .. 1
//	usage[0] = 0                                   (sentinel point)
//
// A negative delta means the account was topped up; it is clamped to zero.
// Samples must be sorted by timestamp ascending.
func Difference(balances []domain.Sample) []domain.Sample {
	out := domain.CloneSamples(balances)
	if len(out) == 0 {
		return out
	}

	// Walk backwards so each balance[i-1] is still unmodified when read.
	for i := len(out) - 1; i > 0; i-- {
		out[i].Light = max(0, out[i-1].Light-out[i].Light)
		out[i].AC = max(0, out[i-1].AC-out[i].AC)
	}

	out[0].Light = 0
	out[0].AC = 0

	return out
}
