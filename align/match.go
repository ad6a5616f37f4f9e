package align

import (
	"sort"

	"github.com/hdrplus/hdrplus/internal/parallel"
)

// candidateOffset is one (ddx, ddy) search offset, sorted by its
// Euclidean distance from the origin so the exhaustive search visits
// closer candidates first; ties in SAD cost are then broken toward the
// candidate nearer the initial (prior) displacement by keeping the first
// one found.
type candidateOffset struct{ dx, dy int }

func searchOffsets(radius int) []candidateOffset {
	offsets := make([]candidateOffset, 0, (2*radius+1)*(2*radius+1))
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			offsets = append(offsets, candidateOffset{dx, dy})
		}
	}
	sort.Slice(offsets, func(i, j int) bool {
		di := offsets[i].dx*offsets[i].dx + offsets[i].dy*offsets[i].dy
		dj := offsets[j].dx*offsets[j].dx + offsets[j].dy*offsets[j].dy
		return di < dj
	})
	return offsets
}

// matchLevel runs coarse-to-fine block matching for one pyramid level,
// returning a tile grid carrying each tile's best displacement and SAD
// cost. prev is the (coarser) grid computed for the next pyramid level
// up, or nil at the coarsest level.
func matchLevel(ref, alt *Level, tileSize, radius int, prev *parallel.TileGrid, pool *parallel.WorkerPool) *parallel.TileGrid {
	stride := tileSize / 2
	if stride < 1 {
		stride = tileSize
	}
	grid := parallel.NewTileGrid(ref.Width, ref.Height, tileSize, stride)
	offsets := searchOffsets(radius)

	tasks := make([]func(), 0, grid.TileCount())
	grid.ForEach(func(t *parallel.Tile) {
		t := t
		tasks = append(tasks, func() {
			initDX, initDY := 0, 0
			if prev != nil {
				if coarse := grid.NeighborAbove(t, prev, 2); coarse != nil {
					initDX, initDY = coarse.DX*2, coarse.DY*2
				}
			}

			x0, y0, x1, y1 := grid.Clamp(t)
			refBuf := sampleTile(ref, x0, y0, x1, y1, 0, 0)
			defer parallel.PutTileBuffer(refBuf)

			bestDX, bestDY := clampDisplacement(t, alt, initDX, initDY)
			altBuf := sampleTile(alt, x0, y0, x1, y1, bestDX, bestDY)
			bestCost := sad(refBuf, altBuf)
			parallel.PutTileBuffer(altBuf)

			for _, off := range offsets {
				cdx, cdy := clampDisplacement(t, alt, initDX+off.dx, initDY+off.dy)
				altBuf = sampleTile(alt, x0, y0, x1, y1, cdx, cdy)
				cost := sad(refBuf, altBuf)
				parallel.PutTileBuffer(altBuf)
				if cost < bestCost {
					bestCost, bestDX, bestDY = cost, cdx, cdy
				}
			}

			t.DX, t.DY, t.Cost = bestDX, bestDY, bestCost
		})
	})

	if pool != nil {
		pool.ExecuteAll(tasks)
	} else {
		for _, fn := range tasks {
			fn()
		}
	}

	return grid
}

// clampDisplacement constrains (dx, dy) so the displaced tile still
// reads entirely inside alt's bounds.
func clampDisplacement(t *parallel.Tile, alt *Level, dx, dy int) (int, int) {
	minDX := -t.PixelX
	maxDX := alt.Width - t.Size - t.PixelX
	minDY := -t.PixelY
	maxDY := alt.Height - t.Size - t.PixelY

	if maxDX < minDX {
		maxDX = minDX
	}
	if maxDY < minDY {
		maxDY = minDY
	}

	if dx < minDX {
		dx = minDX
	}
	if dx > maxDX {
		dx = maxDX
	}
	if dy < minDY {
		dy = minDY
	}
	if dy > maxDY {
		dy = maxDY
	}
	return dx, dy
}

// sampleTile reads the (x0,y0)-(x1,y1) rectangle of lvl, offset by
// (dx, dy), into a freshly pooled buffer.
func sampleTile(lvl *Level, x0, y0, x1, y1, dx, dy int) []float32 {
	w, h := x1-x0, y1-y0
	buf := parallel.GetTileBuffer(w * h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf[y*w+x] = lvl.at(y0+y+dy, x0+x+dx)
		}
	}
	return buf
}

func sad(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum
}
