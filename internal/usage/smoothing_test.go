package usage

import (
	"math/rand"
	"testing"

	"prepaid-usage-lab/internal/domain"
)

func TestSmooth_WeightedInterior(t *testing.T) {
	samples := series(
		[3]float64{0, 0, 10},
		[3]float64{60, 10, 10},
		[3]float64{120, 20, 0},
		[3]float64{180, 30, 10},
	)

	result := Smooth(samples)

	if len(result) != 4 {
		t.Fatalf("Expected 4 points, got %d", len(result))
	}

	// 0.1*0 + 0.7*10 + 0.2*20 = 11
	if !approxEqual(result[1].Light, 11) {
		t.Errorf("Point 1 light: expected 11, got %v", result[1].Light)
	}
	// 0.1*10 + 0.7*10 + 0.2*0 = 8
	if !approxEqual(result[1].AC, 8) {
		t.Errorf("Point 1 ac: expected 8, got %v", result[1].AC)
	}
	// 0.1*10 + 0.7*20 + 0.2*30 = 21
	if !approxEqual(result[2].Light, 21) {
		t.Errorf("Point 2 light: expected 21, got %v", result[2].Light)
	}
	// 0.1*10 + 0.7*0 + 0.2*10 = 3
	if !approxEqual(result[2].AC, 3) {
		t.Errorf("Point 2 ac: expected 3, got %v", result[2].AC)
	}

	for i := range samples {
		if result[i].Timestamp != samples[i].Timestamp {
			t.Errorf("Point %d: timestamp changed", i)
		}
	}
}

func TestSmooth_EndpointsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for run := 0; run < 30; run++ {
		n := 3 + rng.Intn(20)
		samples := make([]domain.Sample, n)
		for i := range samples {
			samples[i] = domain.Sample{Timestamp: float64(i), Light: rng.Float64(), AC: rng.Float64()}
		}

		result := Smooth(samples)

		if result[0] != samples[0] {
			t.Errorf("Run %d: first point changed %+v -> %+v", run, samples[0], result[0])
		}
		if result[n-1] != samples[n-1] {
			t.Errorf("Run %d: last point changed %+v -> %+v", run, samples[n-1], result[n-1])
		}
	}
}

func TestSmooth_ShortSeriesUnchanged(t *testing.T) {
	samples := series([3]float64{0, 1, 2}, [3]float64{60, 3, 4})

	result := Smooth(samples)

	if len(result) != 2 || result[0] != samples[0] || result[1] != samples[1] {
		t.Errorf("Expected identity, got %+v", result)
	}
}

func TestSmooth_DoesNotMutateInput(t *testing.T) {
	samples := series([3]float64{0, 0, 0}, [3]float64{60, 10, 10}, [3]float64{120, 0, 0})

	_ = Smooth(samples)

	if samples[1].Light != 10 || samples[1].AC != 10 {
		t.Errorf("Input mutated: %+v", samples)
	}
}
