package bank

import (
	"math"
	"math/rand"
)

// gammaSample draws from a Gamma(shape, 1) distribution using the
// Marsaglia-Tsang method. No library in the pack ships a Gamma
// sampler, so this is translated directly from the well-known
// algorithm rather than from any one example repo; shape is always
// the configured expected account count here, which is comfortably
// above the 1.0 threshold the boost step below exists for.
func gammaSample(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		return gammaSample(rng, shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		x2 := x * x
		if u < 1-0.0331*x2*x2 {
			return d * v
		}
		if math.Log(u) < 0.5*x2+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}
