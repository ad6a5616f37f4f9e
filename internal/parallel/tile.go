// Package parallel provides the tile-based parallel work infrastructure
// shared by the alignment and merge stages: a worker pool for fanning
// decode/match/merge work across goroutines, and an overlapping tile grid
// used to partition a pyramid level (or a full-resolution mosaic) into
// square, half-tile-overlapping regions.
package parallel

// Tile is one cell of an overlapping TileGrid. Unlike a non-overlapping
// canvas tile, a Tile's pixel origin is tx*Stride (not tx*Size): adjacent
// tiles share half their extent, which is what lets the merge stage
// blend across tile boundaries without seams.
type Tile struct {
	// TX, TY are the tile's grid indices (0-based).
	TX, TY int

	// PixelX, PixelY are the tile's top-left pixel coordinates in the
	// level image, equal to TX*Stride and TY*Stride.
	PixelX, PixelY int

	// Size is the tile's side length in pixels (Tℓ). Tiles at the image
	// edge are not shrunk: callers clamp sample reads into the level
	// bounds instead, so every tile has the same Size.
	Size int

	// DX, DY is the tile's displacement relative to the reference,
	// populated by the alignment search.
	DX, DY int

	// Cost is the SAD tile-matching cost at (DX, DY). It is exported in
	// the finest-level AlignmentMap and feeds the burst-motion warning;
	// the merge stage does not read it.
	Cost float64
}

// Bounds returns the tile's pixel rectangle in the level image.
func (t *Tile) Bounds() (x, y, size int) {
	return t.PixelX, t.PixelY, t.Size
}
