// Package mosaic holds CFA (color filter array) math: cell indexing for a
// repeating Bayer (2x2) or X-Trans (6x6) pattern, and phase-preserving
// displacement snapping, which the alignment stage applies at the finest
// level.
package mosaic

// Cell returns the index into a MosaicWidth*MosaicWidth black-level (or
// color-factor) array for sample (row, col), using (row mod M)*M + col mod M.
func Cell(row, col, width int) int {
	return (row%width)*width + col%width
}

// SnapDisplacement rounds (dx, dy) to the nearest multiple of the required
// step for the given mosaic width, preserving CFA phase: Bayer (M=2)
// requires even integers, X-Trans (M=6) requires multiples of 6. Any other
// M snaps to multiples of M, matching the general rule spec.md states for
// both patterns.
func SnapDisplacement(dx, dy, mosaicWidth int) (int, int) {
	step := mosaicWidth
	return snapTo(dx, step), snapTo(dy, step)
}

func snapTo(v, step int) int {
	if step <= 1 {
		return v
	}
	half := step / 2
	if v >= 0 {
		return ((v + half) / step) * step
	}
	return -(((-v + half) / step) * step)
}

// IsBayer reports whether a mosaic width corresponds to a Bayer pattern.
func IsBayer(mosaicWidth int) bool { return mosaicWidth == 2 }

// IsXTrans reports whether a mosaic width corresponds to an X-Trans pattern.
func IsXTrans(mosaicWidth int) bool { return mosaicWidth == 6 }

// CellCount returns the number of distinct CFA cells for a mosaic of the
// given width (M*M).
func CellCount(mosaicWidth int) int { return mosaicWidth * mosaicWidth }

// ValidWidths lists the two mosaic widths this pipeline handles uniformly.
var ValidWidths = [2]int{2, 6}

// IsValidWidth reports whether m is a supported mosaic width.
func IsValidWidth(m int) bool {
	for _, v := range ValidWidths {
		if v == m {
			return true
		}
	}
	return false
}
