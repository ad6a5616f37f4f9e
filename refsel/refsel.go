// Package refsel picks the reference frame a burst aligns and merges
// against. The selector is a pure function of frame metadata so tests can
// inject alternate policies.
package refsel

import "github.com/hdrplus/hdrplus"

// Policy picks a reference frame index out of frames (0 <= result <
// len(frames)). Implementations must be pure functions of the frames'
// metadata.
type Policy func(frames []*hdrplus.Frame) int

// ClosestToZeroExposureBias is the default Policy: it picks the frame
// whose ExposureBias is closest to 0, breaking ties toward the lowest
// index.
func ClosestToZeroExposureBias(frames []*hdrplus.Frame) int {
	best := 0
	bestAbs := abs(frames[0].ExposureBias)
	for i := 1; i < len(frames); i++ {
		a := abs(frames[i].ExposureBias)
		if a < bestAbs {
			best = i
			bestAbs = a
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Select applies policy (ClosestToZeroExposureBias if nil) to frames and
// returns the chosen reference index.
func Select(frames []*hdrplus.Frame, policy Policy) int {
	if policy == nil {
		policy = ClosestToZeroExposureBias
	}
	return policy(frames)
}
