package parallel

// TileGrid manages a grid of overlapping tiles over one pyramid level (or
// the full-resolution mosaic).
//
// Unlike a non-overlapping canvas tiling, adjacent tiles here share half
// their extent: tile origins are spaced Stride = Size/2 pixels apart, not
// Size pixels apart. This is what lets the merge stage blend across tile
// boundaries without seams, and what gives the alignment search enough
// neighboring support to refine a displacement coarse-to-fine. Tiles are
// stored in a flat slice in row-major order: index = ty*tilesX + tx.
//
// Thread safety: TileGrid is NOT thread-safe to mutate concurrently (grid
// shape changes), but concurrent goroutines may read/write distinct
// Tile.DX/DY/Cost fields of different tiles without a lock, which is the
// access pattern the coarse-to-fine matcher uses via WorkerPool.
type TileGrid struct {
	tiles []*Tile

	tilesX, tilesY int

	// levelWidth, levelHeight are the level's pixel dimensions; the last
	// row/column of tiles may extend past them, and sample reads must be
	// clamped via Clamp.
	levelWidth, levelHeight int

	tileSize int
	stride   int

	pool *TileBufferPool
}

// NewTileGrid builds a grid over a levelWidth x levelHeight image using
// square tiles of tileSize pixels, spaced stride pixels apart. Passing
// stride == tileSize/2 gives the half-overlap tiling the alignment and
// merge stages use; stride == tileSize gives a non-overlapping tiling.
func NewTileGrid(levelWidth, levelHeight, tileSize, stride int) *TileGrid {
	if tileSize <= 0 {
		tileSize = 1
	}
	if stride <= 0 {
		stride = tileSize
	}
	if levelWidth <= 0 || levelHeight <= 0 {
		return &TileGrid{pool: NewTileBufferPool(), tileSize: tileSize, stride: stride}
	}

	tilesX := ceilDiv(levelWidth, stride)
	tilesY := ceilDiv(levelHeight, stride)
	if tilesX < 1 {
		tilesX = 1
	}
	if tilesY < 1 {
		tilesY = 1
	}

	g := &TileGrid{
		tiles:       make([]*Tile, tilesX*tilesY),
		tilesX:      tilesX,
		tilesY:      tilesY,
		levelWidth:  levelWidth,
		levelHeight: levelHeight,
		tileSize:    tileSize,
		stride:      stride,
		pool:        NewTileBufferPool(),
	}
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			g.tiles[ty*tilesX+tx] = &Tile{
				TX:     tx,
				TY:     ty,
				PixelX: tx * stride,
				PixelY: ty * stride,
				Size:   tileSize,
			}
		}
	}
	return g
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// TileAt returns the tile at tile coordinates (tx, ty), or nil if out of
// bounds.
func (g *TileGrid) TileAt(tx, ty int) *Tile {
	if tx < 0 || tx >= g.tilesX || ty < 0 || ty >= g.tilesY {
		return nil
	}
	return g.tiles[ty*g.tilesX+tx]
}

// Clamp returns the rectangle a tile should actually read samples from,
// clipped to the level bounds (tiles at the grid edge extend past them).
func (g *TileGrid) Clamp(t *Tile) (x0, y0, x1, y1 int) {
	x0, y0 = t.PixelX, t.PixelY
	x1, y1 = t.PixelX+t.Size, t.PixelY+t.Size
	if x1 > g.levelWidth {
		x1 = g.levelWidth
	}
	if y1 > g.levelHeight {
		y1 = g.levelHeight
	}
	return
}

// TileCount returns the total number of tiles in the grid.
func (g *TileGrid) TileCount() int { return len(g.tiles) }

// TilesX returns the number of tiles horizontally.
func (g *TileGrid) TilesX() int { return g.tilesX }

// TilesY returns the number of tiles vertically.
func (g *TileGrid) TilesY() int { return g.tilesY }

// TileSize returns the tile side length in pixels (Tℓ).
func (g *TileGrid) TileSize() int { return g.tileSize }

// Stride returns the pixel distance between adjacent tile origins.
func (g *TileGrid) Stride() int { return g.stride }

// Width returns the level width in pixels.
func (g *TileGrid) Width() int { return g.levelWidth }

// Height returns the level height in pixels.
func (g *TileGrid) Height() int { return g.levelHeight }

// AllTiles returns all tiles in the grid. The returned slice should not
// be modified, but the Tile values it points to may have their
// DX/DY/Cost fields updated in place.
func (g *TileGrid) AllTiles() []*Tile {
	return g.tiles
}

// ForEach calls fn for each tile in the grid, in row-major order.
func (g *TileGrid) ForEach(fn func(tile *Tile)) {
	for _, tile := range g.tiles {
		if tile != nil {
			fn(tile)
		}
	}
}

// NeighborAbove returns the tile directly above (tx, ty) in the next
// coarser level's grid, used to seed a tile's initial search displacement
// from its coarse-to-fine parent. levelScale is the resolution ratio
// between this grid's level and the coarser one (always 2 in the pyramid
// schedule).
func (g *TileGrid) NeighborAbove(t *Tile, coarser *TileGrid, levelScale int) *Tile {
	if coarser == nil || levelScale <= 0 {
		return nil
	}
	cx := (t.PixelX / levelScale) / max(coarser.stride, 1)
	cy := (t.PixelY / levelScale) / max(coarser.stride, 1)
	return coarser.TileAt(cx, cy)
}
