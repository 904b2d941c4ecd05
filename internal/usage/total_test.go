package usage

import (
	"testing"
)

func TestTotalUsage(t *testing.T) {
	balances := series(
		[3]float64{0, 10, 20},
		[3]float64{60, 8, 19.5},
		[3]float64{120, 12, 19},  // light top-up
		[3]float64{180, 11, 25},  // ac top-up
		[3]float64{240, 10.5, 24},
	)

	light, ac := TotalUsage(balances)

	// light: 2 + 0 + 1 + 0.5
	if !approxEqual(light, 3.5) {
		t.Errorf("Expected light total 3.5, got %v", light)
	}
	// ac: 0.5 + 0.5 + 0 + 1
	if !approxEqual(ac, 2) {
		t.Errorf("Expected ac total 2, got %v", ac)
	}
}

func TestTotalUsage_MatchesDifferenceSum(t *testing.T) {
	balances := hourlyBalances()

	light, ac := TotalUsage(balances)
	diffLight, diffAC := sum(Difference(balances))

	if !approxEqual(light, diffLight) || !approxEqual(ac, diffAC) {
		t.Errorf("TotalUsage (%v, %v) != sum of Difference (%v, %v)", light, ac, diffLight, diffAC)
	}
}

func TestTotalUsage_Degenerate(t *testing.T) {
	if light, ac := TotalUsage(nil); light != 0 || ac != 0 {
		t.Errorf("Expected zero totals for empty input, got (%v, %v)", light, ac)
	}
	if light, ac := TotalUsage(series([3]float64{0, 5, 5})); light != 0 || ac != 0 {
		t.Errorf("Expected zero totals for single point, got (%v, %v)", light, ac)
	}
}

func TestRoundedTotalUsage(t *testing.T) {
	balances := series(
		[3]float64{0, 10, 10},
		[3]float64{60, 9.333, 9.9951},
	)

	light, ac := RoundedTotalUsage(balances)

	if light != 0.67 {
		t.Errorf("Expected light 0.67, got %v", light)
	}
	if ac != 0 {
		t.Errorf("Expected ac 0, got %v", ac)
	}
}

func TestTopUps(t *testing.T) {
	balances := series(
		[3]float64{0, 10, 20},
		[3]float64{60, 8, 19},
		[3]float64{120, 50, 18}, // light top-up +42
		[3]float64{180, 49, 30}, // ac top-up +12
	)

	result := TopUps(balances)

	if len(result) != 2 {
		t.Fatalf("Expected 2 top-ups, got %d", len(result))
	}
	if result[0].Timestamp != 120 || !approxEqual(result[0].Light, 42) || result[0].AC != 0 {
		t.Errorf("Top-up 0: unexpected %+v", result[0])
	}
	if result[1].Timestamp != 180 || result[1].Light != 0 || !approxEqual(result[1].AC, 12) {
		t.Errorf("Top-up 1: unexpected %+v", result[1])
	}
}
