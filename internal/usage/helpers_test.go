package usage

import (
	"math"

	"prepaid-usage-lab/internal/domain"
)

const epsilon = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// series builds samples from (timestamp, light, ac) triples.
func series(points ...[3]float64) []domain.Sample {
	out := make([]domain.Sample, 0, len(points))
	for _, p := range points {
		out = append(out, domain.Sample{Timestamp: p[0], Light: p[1], AC: p[2]})
	}
	return out
}

func sum(samples []domain.Sample) (light, ac float64) {
	for _, s := range samples {
		light += s.Light
		ac += s.AC
	}
	return light, ac
}

func nan() float64 {
	return math.NaN()
}
