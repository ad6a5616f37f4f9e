package merge

import "math"

// hannWindow1D returns an n-sample Hann window, used (separably, as an
// outer product) to window each frequency-domain tile before its
// forward DFT and again before overlap-add accumulation.
func hannWindow1D(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// hannWindow2D returns the n x n separable Hann window as a flat,
// row-major array.
func hannWindow2D(n int) []float64 {
	w1 := hannWindow1D(n)
	w2 := make([]float64, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			w2[y*n+x] = w1[y] * w1[x]
		}
	}
	return w2
}
