package usage

import (
	"prepaid-usage-lab/internal/domain"
)

// TotalUsage sums the consumption of both accounts over an ascending balance series.
// Each negative balance delta counts as usage; positive deltas (top-ups) count as zero.
// This is independent of the conversion pipeline: no spreading, smoothing or rates.
func TotalUsage(balances []domain.Sample) (light, ac float64) {
	for i := 1; i < len(balances); i++ {
		light += max(0, balances[i-1].Light-balances[i].Light)
		ac += max(0, balances[i-1].AC-balances[i].AC)
	}
	return light, ac
}

// RoundedTotalUsage is TotalUsage rounded to 2 decimal places.
func RoundedTotalUsage(balances []domain.Sample) (light, ac float64) {
	light, ac = TotalUsage(balances)
	return round2(light), round2(ac)
}

// TopUps reports every reading where at least one balance went up.
// Difference and TotalUsage discard these jumps; TopUps keeps their magnitude.
func TopUps(balances []domain.Sample) []domain.TopUp {
	var result []domain.TopUp
	for i := 1; i < len(balances); i++ {
		light := max(0, balances[i].Light-balances[i-1].Light)
		ac := max(0, balances[i].AC-balances[i-1].AC)
		if light == 0 && ac == 0 {
			continue
		}
		result = append(result, domain.TopUp{
			Timestamp: balances[i].Timestamp,
			Light:     light,
			AC:        ac,
		})
	}
	return result
}
