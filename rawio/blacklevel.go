package rawio

import "gonum.org/v1/gonum/stat"

// RecoverBlackLevels fills in any black level the header left unspecified
// (any non-positive value, including the -1 sentinel) by averaging
// masked-area pixels whose (row mod M, col
// mod M) matches that CFA cell. A cell with no header value and no
// covering masked-area pixels defaults to 0. headerLevels and the
// returned slice both have mosaicWidth*mosaicWidth entries, indexed by
// (row mod M)*M + col mod M.
func RecoverBlackLevels(samples []uint16, width, height, mosaicWidth int, headerLevels []int, masks []Rectangle) []int {
	cells := mosaicWidth * mosaicWidth
	out := make([]int, cells)
	copy(out, headerLevels)

	needsRecovery := false
	for _, v := range out {
		if v <= 0 {
			needsRecovery = true
			break
		}
	}
	if !needsRecovery || len(masks) == 0 {
		for i, v := range out {
			if v <= 0 {
				out[i] = 0
			}
		}
		return out
	}

	sums := make([]float64, cells)
	counts := make([]int, cells)
	values := make([][]float64, cells)

	for _, m := range masks {
		top, left, bottom, right := clampRect(m, width, height)
		for row := top; row < bottom; row++ {
			base := row * width
			for col := left; col < right; col++ {
				cell := (row%mosaicWidth)*mosaicWidth + col%mosaicWidth
				v := float64(samples[base+col])
				sums[cell] += v
				counts[cell]++
				values[cell] = append(values[cell], v)
			}
		}
	}

	for cell := range out {
		if out[cell] > 0 {
			continue
		}
		if counts[cell] == 0 {
			out[cell] = 0
			continue
		}
		out[cell] = int(stat.Mean(values[cell], nil) + 0.5)
	}
	return out
}

func clampRect(r Rectangle, width, height int) (top, left, bottom, right int) {
	top, left, bottom, right = r.Top, r.Left, r.Bottom, r.Right
	if top < 0 {
		top = 0
	}
	if left < 0 {
		left = 0
	}
	if bottom > height {
		bottom = height
	}
	if right > width {
		right = width
	}
	return
}
