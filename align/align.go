package align

import (
	"github.com/hdrplus/hdrplus"
	"github.com/hdrplus/hdrplus/gpuctx"
	"github.com/hdrplus/hdrplus/internal/parallel"
	"github.com/hdrplus/hdrplus/mosaic"
)

// AlignmentMap is the finest-level, native-resolution displacement field
// for one alternate frame relative to the burst's reference.
type AlignmentMap struct {
	TilesX, TilesY int
	TileSize       int
	Stride         int

	// DX, DY, Cost are parallel, row-major (ty*TilesX+tx) arrays, one
	// entry per tile: the chosen displacement and its SAD cost.
	DX, DY []int
	Cost   []float64
}

// TileAt returns the displacement and cost of the tile covering native
// pixel (row, col). Pixels past the last tile column or row map to the
// edge tile; a negative coordinate or a zero Stride yields
// (0, 0, 0, false).
func (m *AlignmentMap) TileAt(row, col int) (dx, dy int, cost float64, ok bool) {
	if m.Stride == 0 {
		return 0, 0, 0, false
	}
	tx := col / m.Stride
	ty := row / m.Stride
	if tx >= m.TilesX {
		tx = m.TilesX - 1
	}
	if ty >= m.TilesY {
		ty = m.TilesY - 1
	}
	if tx < 0 || ty < 0 {
		return 0, 0, 0, false
	}
	idx := ty*m.TilesX + tx
	return m.DX[idx], m.DY[idx], m.Cost[idx], true
}

// Align builds a pyramid for the reference frame and every alternate
// frame in burst, then runs coarse-to-fine block matching to produce one
// AlignmentMap per alternate frame index. Matching always runs on CPU;
// ctx is consulted only to log that a CPU-fallback Context is in use, and
// may be nil.
func Align(ctx *gpuctx.Context, burst *hdrplus.Burst, cfg Config) (map[int]*AlignmentMap, error) {
	cfg = cfg.normalize()
	levels := cfg.Levels()

	logger := hdrplus.Logger()
	if ctx != nil && ctx.UseCPUFallback() {
		logger.Debug("align: running coarse-to-fine matching on CPU")
	}

	ref := burst.Ref()
	refGain := 1.0
	refPyramid := BuildPyramid(ref, levels, refGain)

	pool := parallel.NewWorkerPool(0)
	defer pool.Close()

	out := make(map[int]*AlignmentMap, len(burst.Frames)-1)
	for i, f := range burst.Frames {
		if i == burst.Reference {
			continue
		}

		gain := 1.0
		if f.ISOExposureTime > 0 {
			gain = ref.ISOExposureTime / f.ISOExposureTime
		}
		altPyramid := BuildPyramid(f, levels, gain)

		var prevGrid *parallel.TileGrid
		for scheduleIdx := 0; scheduleIdx < levels; scheduleIdx++ {
			levelIdx := (levels - 1) - scheduleIdx // coarsest first
			tileSize := cfg.TileSizes[scheduleIdx]
			radius := cfg.SearchRadii[scheduleIdx]

			grid := matchLevel(refPyramid.Levels[levelIdx], altPyramid.Levels[levelIdx], tileSize, radius, prevGrid, pool)

			if levelIdx == 0 {
				snapFinestLevel(grid, burst.MosaicWidth())
				out[i] = toAlignmentMap(grid)
				burstMotionCheck(logger, f.URL, grid)
			}
			prevGrid = grid
		}
	}

	return out, nil
}

// snapFinestLevel snaps every tile's native-resolution displacement to a
// multiple of the mosaic width, preserving CFA phase between the
// reference and the sampled alternate pixel.
func snapFinestLevel(grid *parallel.TileGrid, mosaicWidth int) {
	grid.ForEach(func(t *parallel.Tile) {
		t.DX, t.DY = mosaic.SnapDisplacement(t.DX, t.DY, mosaicWidth)
	})
}

func toAlignmentMap(grid *parallel.TileGrid) *AlignmentMap {
	n := grid.TileCount()
	m := &AlignmentMap{
		TilesX:   grid.TilesX(),
		TilesY:   grid.TilesY(),
		TileSize: grid.TileSize(),
		Stride:   grid.Stride(),
		DX:       make([]int, n),
		DY:       make([]int, n),
		Cost:     make([]float64, n),
	}
	for i, t := range grid.AllTiles() {
		m.DX[i], m.DY[i], m.Cost[i] = t.DX, t.DY, t.Cost
	}
	return m
}

// burstMotionRejectSAD is the per-sample mean SAD threshold above which a
// frame's alignment is considered unreliable burst motion rather than
// fine detail; the frame is still merged (alignment never fails per
// tile), only logged.
const burstMotionRejectSAD = 4096.0

func burstMotionCheck(logger interface{ Warn(string, ...any) }, url string, grid *parallel.TileGrid) {
	if grid.TileCount() == 0 {
		return
	}
	var total float64
	grid.ForEach(func(t *parallel.Tile) {
		n := t.Size * t.Size
		if n > 0 {
			total += t.Cost / float64(n)
		}
	})
	mean := total / float64(grid.TileCount())
	if mean > burstMotionRejectSAD {
		logger.Warn("align: high residual SAD, possible burst motion", "frame", url, "mean_sad_per_sample", mean)
	}
}
