// Package merge combines an aligned burst into a single Merged Mosaic
// plus a per-pixel weight map, using one of two interchangeable
// variants: a spatial temporal-weighted average, or a frequency-domain
// Wiener-style shrinkage. Both share the same contract: output domain
// identical to the reference (same W, H, M); a single-frame burst merges
// to a bitwise copy of the reference.
package merge

import (
	"github.com/hdrplus/hdrplus"
	"github.com/hdrplus/hdrplus/align"
	"github.com/hdrplus/hdrplus/gpuctx"
)

// Result is a Merged Mosaic: per-pixel accumulated value and total
// weight, still carrying the reference's black level (assembly performs
// black-level subtraction and exposure/white-level scaling afterward).
type Result struct {
	Width, Height int
	Values        []float64
	Weight        []float64
}

// At returns the merged value at (row, col).
func (r *Result) At(row, col int) float64 {
	return r.Values[row*r.Width+col]
}

// Merger produces a Result from an aligned burst. Implementations are
// constructed directly by name (SpatialMerger, FrequencyMerger); there is
// no global registry, since the pipeline always knows which variant it
// wants at construction time.
type Merger interface {
	Merge(ctx *gpuctx.Context, burst *hdrplus.Burst, maps map[int]*align.AlignmentMap) (*Result, error)
}

// referenceOnlyResult builds the Result for a burst with no alternate
// frames (or none contributing any weight): a bitwise copy of the
// reference with unit weight everywhere.
func referenceOnlyResult(ref *hdrplus.Frame) *Result {
	n := ref.Width * ref.Height
	res := &Result{Width: ref.Width, Height: ref.Height, Values: make([]float64, n), Weight: make([]float64, n)}
	for i, s := range ref.Samples {
		res.Values[i] = float64(s)
		res.Weight[i] = 1
	}
	return res
}
