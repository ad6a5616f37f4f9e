package merge

import (
	"github.com/hdrplus/hdrplus"
	"github.com/hdrplus/hdrplus/align"
	"github.com/hdrplus/hdrplus/gpuctx"
)

// SpatialMerger implements the temporal weighted-average variant:
// S(p) = Ir(p) + Σf wf(p)·If(p+d); W(p) = 1 + Σf wf(p); merged = S/W.
type SpatialMerger struct {
	Noise NoiseModel
}

// NewSpatialMerger builds a SpatialMerger with DefaultNoiseModel.
func NewSpatialMerger() *SpatialMerger {
	return &SpatialMerger{Noise: DefaultNoiseModel()}
}

func (m *SpatialMerger) Merge(ctx *gpuctx.Context, burst *hdrplus.Burst, maps map[int]*align.AlignmentMap) (*Result, error) {
	ref := burst.Ref()
	if len(burst.Frames) < 2 {
		return referenceOnlyResult(ref), nil
	}

	logger := hdrplus.Logger()
	if ctx != nil && ctx.UseCPUFallback() {
		logger.Debug("merge: running spatial merge on CPU")
	}

	w, h := ref.Width, ref.Height
	res := &Result{Width: w, Height: h, Values: make([]float64, w*h), Weight: make([]float64, w*h)}

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			idx := row*w + col
			irVal := float64(ref.At(row, col))
			cell := ref.CFACell(row, col)
			black := 0
			if cell < len(ref.BlackLevels) {
				black = ref.BlackLevels[cell]
			}
			signal := irVal - float64(black)
			sigma := m.Noise.Sigma(ref.ISOExposureTime, signal)

			sum := irVal
			weight := 1.0

			for i, f := range burst.Frames {
				if i == burst.Reference {
					continue
				}
				amap, ok := maps[i]
				if !ok {
					continue
				}
				dx, dy, _, ok := amap.TileAt(row, col)
				if !ok {
					continue
				}
				sr, sc := row+dy, col+dx
				if sr < 0 || sr >= f.Height || sc < 0 || sc >= f.Width {
					continue // tile falls outside the alternate image: reference-only
				}
				ifVal := float64(f.At(sr, sc))
				diff := irVal - ifVal
				if diff < 0 {
					diff = -diff
				}
				wf := robustness(diff / sigma)
				sum += wf * ifVal
				weight += wf
			}

			res.Values[idx] = sum / weight
			res.Weight[idx] = weight
		}
	}

	return res, nil
}
