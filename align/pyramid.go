package align

import "github.com/hdrplus/hdrplus"

// Level is one image of a Gaussian pyramid: black-level-subtracted,
// exposure-normalized samples at a given resolution.
type Level struct {
	Width, Height int
	Samples       []float32
}

// at returns the level's sample at (row, col), clamping to the level's
// bounds so callers can read tiles that extend past the image edge.
func (l *Level) at(row, col int) float32 {
	if row < 0 {
		row = 0
	}
	if row >= l.Height {
		row = l.Height - 1
	}
	if col < 0 {
		col = 0
	}
	if col >= l.Width {
		col = l.Width - 1
	}
	return l.Samples[row*l.Width+col]
}

// Pyramid holds a frame's levels, finest first (Levels[0] is native
// resolution; Levels[n-1] is the coarsest).
type Pyramid struct {
	Levels []*Level
}

// BuildPyramid constructs an n-level Gaussian pyramid for frame. Samples
// are black-level-subtracted (pattern-aware) and scaled by gain so that
// every frame in a burst shares a common linear exposure before matching;
// the reference frame's gain is always 1.
func BuildPyramid(frame *hdrplus.Frame, levels int, gain float64) *Pyramid {
	if levels < 1 {
		levels = 1
	}

	base := &Level{Width: frame.Width, Height: frame.Height, Samples: make([]float32, frame.Width*frame.Height)}
	for row := 0; row < frame.Height; row++ {
		for col := 0; col < frame.Width; col++ {
			cell := frame.CFACell(row, col)
			black := 0
			if cell < len(frame.BlackLevels) {
				black = frame.BlackLevels[cell]
			}
			v := float64(frame.At(row, col)) - float64(black)
			if v < 0 {
				v = 0
			}
			base.Samples[row*frame.Width+col] = float32(v * gain)
		}
	}

	p := &Pyramid{Levels: make([]*Level, 0, levels)}
	p.Levels = append(p.Levels, base)
	for i := 1; i < levels; i++ {
		p.Levels = append(p.Levels, downsample2x(p.Levels[i-1]))
	}
	return p
}

// downsample2x halves linear resolution via a 2x2 box filter.
func downsample2x(src *Level) *Level {
	dstW := (src.Width + 1) / 2
	dstH := (src.Height + 1) / 2
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}
	dst := &Level{Width: dstW, Height: dstH, Samples: make([]float32, dstW*dstH)}
	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			sx, sy := x*2, y*2
			sum := src.at(sy, sx) + src.at(sy, sx+1) + src.at(sy+1, sx) + src.at(sy+1, sx+1)
			dst.Samples[y*dstW+x] = sum * 0.25
		}
	}
	return dst
}
