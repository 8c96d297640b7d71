package matrix

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// SampleUniform draws n values uniformly from [vMin, vMax] using a deterministic seed.
func SampleUniform(n int, vMin, vMax float64, seed uint64) []float64 {
	z := make([]float64, n)
	dist := distuv.Uniform{
		Min: vMin,
		Max: vMax,
		Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}
	for i := range z {
		z[i] = dist.Rand()
	}
	return z
}

// SampleNormal draws n values from a normal distribution centered on (vMax+vMin)/2, rejecting
// anything outside [vMin, vMax].
func SampleNormal(n int, vMin, vMax float64, seed uint64) []float64 {
	z := make([]float64, n)
	// mostly in [vMin, vMax] (var=0.1)
	dist := distuv.Normal{
		Mu:    (vMax + vMin) / 2,
		Sigma: (vMax - vMin) * 0.4472,
		Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}
	for i := range z {
		val := dist.Rand()
		for val < vMin || val > vMax {
			val = dist.Rand()
		}
		z[i] = val
	}
	return z
}
