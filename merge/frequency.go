package merge

import (
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/hdrplus/hdrplus"
	"github.com/hdrplus/hdrplus/align"
	"github.com/hdrplus/hdrplus/gpuctx"
	"github.com/hdrplus/hdrplus/internal/parallel"
)

// FrequencyMerger implements the Wiener-style frequency-domain variant:
// per-tile DFT, per-bin shrinkage weighted by the reference/alternate
// disagreement against expected noise power, inverse DFT, and
// overlap-add reassembly.
type FrequencyMerger struct {
	// TileSize (Tm) must be a power of two.
	TileSize int

	// NoiseConstC is the tuning constant c in the shrinkage formula.
	NoiseConstC float64

	Noise NoiseModel
}

// NewFrequencyMerger builds a FrequencyMerger with a 16-sample tile and
// DefaultNoiseModel.
func NewFrequencyMerger() *FrequencyMerger {
	return &FrequencyMerger{TileSize: 16, NoiseConstC: 1.0, Noise: DefaultNoiseModel()}
}

func (m *FrequencyMerger) Merge(ctx *gpuctx.Context, burst *hdrplus.Burst, maps map[int]*align.AlignmentMap) (*Result, error) {
	ref := burst.Ref()
	if len(burst.Frames) < 2 {
		return referenceOnlyResult(ref), nil
	}

	logger := hdrplus.Logger()
	if ctx != nil && ctx.UseCPUFallback() {
		logger.Debug("merge: running frequency-domain merge on CPU")
	}

	n := m.TileSize
	window := hannWindow2D(n)
	fft := fourier.NewCmplxFFT(n)

	w, h := ref.Width, ref.Height
	res := &Result{Width: w, Height: h, Values: make([]float64, w*h), Weight: make([]float64, w*h)}

	grid := parallel.NewTileGrid(w, h, n, n/2)
	grid.ForEach(func(t *parallel.Tile) {
		x0, y0, x1, y1 := grid.Clamp(t)

		refTile := extractWindowed(ref, nil, 0, 0, t.PixelX, t.PixelY, n, window)
		refFreq := forward2D(fft, refTile, n)

		mergedFreq := make([]complex128, n*n)
		copy(mergedFreq, refFreq)
		totalOneMinusAlpha := make([]float64, n*n)
		for i := range totalOneMinusAlpha {
			totalOneMinusAlpha[i] = 0
		}

		cell := ref.CFACell(t.PixelY, t.PixelX)
		black := 0.0
		if cell < len(ref.BlackLevels) {
			black = float64(ref.BlackLevels[cell])
		}
		meanSignal := tileMean(ref, t.PixelX, t.PixelY, n) - black
		sigma := m.Noise.Sigma(ref.ISOExposureTime, meanSignal)
		noisePower := sigma * sigma

		for i, f := range burst.Frames {
			if i == burst.Reference {
				continue
			}
			amap, ok := maps[i]
			if !ok {
				continue
			}
			dx, dy, _, ok := amap.TileAt(t.PixelY, t.PixelX)
			if !ok {
				continue
			}

			altTile := extractWindowed(f, nil, dx, dy, t.PixelX, t.PixelY, n, window)
			altFreq := forward2D(fft, altTile, n)

			for k := 0; k < n*n; k++ {
				diff := refFreq[k] - altFreq[k]
				num := real(diff)*real(diff) + imag(diff)*imag(diff)
				alpha := num / (num + m.NoiseConstC*noisePower)
				oneMinusAlpha := 1 - alpha
				mergedFreq[k] += complex(oneMinusAlpha, 0) * altFreq[k]
				totalOneMinusAlpha[k] += oneMinusAlpha
			}
		}
		for k := 0; k < n*n; k++ {
			mergedFreq[k] /= complex(1+totalOneMinusAlpha[k], 0)
		}

		spatial := inverse2D(fft, mergedFreq, n)

		for ly := 0; ly < n; ly++ {
			py := t.PixelY + ly
			if py < y0 || py >= y1 {
				continue
			}
			for lx := 0; lx < n; lx++ {
				px := t.PixelX + lx
				if px < x0 || px >= x1 {
					continue
				}
				wgt := window[ly*n+lx]
				idx := py*w + px
				res.Values[idx] += real(spatial[ly*n+lx]) * wgt
				res.Weight[idx] += wgt * wgt
			}
		}
	})

	for i := range res.Values {
		if res.Weight[i] > 0 {
			res.Values[i] /= res.Weight[i]
		} else {
			res.Values[i] = float64(ref.Samples[i])
		}
	}
	return res, nil
}

func tileMean(f *hdrplus.Frame, px, py, n int) float64 {
	var sum float64
	count := 0
	for ly := 0; ly < n; ly++ {
		row := py + ly
		if row < 0 || row >= f.Height {
			continue
		}
		for lx := 0; lx < n; lx++ {
			col := px + lx
			if col < 0 || col >= f.Width {
				continue
			}
			sum += float64(f.At(row, col))
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func extractWindowed(f *hdrplus.Frame, _ []complex128, dx, dy, px, py, n int, window []float64) []complex128 {
	out := make([]complex128, n*n)
	for ly := 0; ly < n; ly++ {
		row := py + ly + dy
		if row < 0 {
			row = 0
		}
		if row >= f.Height {
			row = f.Height - 1
		}
		for lx := 0; lx < n; lx++ {
			col := px + lx + dx
			if col < 0 {
				col = 0
			}
			if col >= f.Width {
				col = f.Width - 1
			}
			v := float64(f.At(row, col)) * window[ly*n+lx]
			out[ly*n+lx] = complex(v, 0)
		}
	}
	return out
}

// forward2D computes a separable 2D DFT (rows then columns) of an n x n
// tile stored row-major.
func forward2D(fft *fourier.CmplxFFT, tile []complex128, n int) []complex128 {
	out := make([]complex128, n*n)
	row := make([]complex128, n)
	for y := 0; y < n; y++ {
		copy(row, tile[y*n:y*n+n])
		coeff := fft.Coefficients(nil, row)
		copy(out[y*n:y*n+n], coeff)
	}
	col := make([]complex128, n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			col[y] = out[y*n+x]
		}
		coeff := fft.Coefficients(nil, col)
		for y := 0; y < n; y++ {
			out[y*n+x] = coeff[y]
		}
	}
	return out
}

// inverse2D computes the separable inverse 2D DFT, normalizing by n^2.
func inverse2D(fft *fourier.CmplxFFT, freq []complex128, n int) []complex128 {
	out := make([]complex128, n*n)
	col := make([]complex128, n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			col[y] = freq[y*n+x]
		}
		seq := fft.Sequence(nil, col)
		for y := 0; y < n; y++ {
			out[y*n+x] = seq[y]
		}
	}
	row := make([]complex128, n)
	for y := 0; y < n; y++ {
		copy(row, out[y*n:y*n+n])
		seq := fft.Sequence(nil, row)
		copy(out[y*n:y*n+n], seq)
	}
	scale := complex(1/float64(n*n), 0)
	for i := range out {
		out[i] *= scale
	}
	return out
}
