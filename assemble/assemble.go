// Package assemble performs the post-merge radiometric assembly that
// turns a Merged Mosaic back into a DNG-compatible 16-bit mosaic: black
// level subtraction, exposure equalization against the reference, and
// white-level scaling with clipping and requantization.
package assemble

import (
	"math"

	"github.com/hdrplus/hdrplus"
	"github.com/hdrplus/hdrplus/merge"
)

// Result is the final, requantized mosaic ready for the DNG writer.
type Result struct {
	Width, Height int
	MosaicWidth   int
	WhiteLevel    int
	Samples       []uint16
}

// effectiveExposure derives the reference's own exposure scale from its
// exposure bias (EV x100): a frame with Eb = 0 has effective exposure 1,
// which is what makes assembling a single-frame, zero-bias burst an
// identity transform (beyond black-level subtraction and white-level
// rescaling, both also identities when the input and output share black
// level and white level).
func effectiveExposure(ref *hdrplus.Frame) float64 {
	return math.Pow(2, float64(ref.ExposureBias)/100.0)
}

// Assemble converts a merge.Result into a Result quantized against
// whiteLevelOut, using ref as the black-level/exposure/metadata
// template.
func Assemble(m *merge.Result, ref *hdrplus.Frame, whiteLevelOut int) *Result {
	logger := hdrplus.Logger()
	logger.Debug("assemble: post-merge radiometric assembly", "white_level_out", whiteLevelOut)

	out := &Result{
		Width: m.Width, Height: m.Height,
		MosaicWidth: ref.MosaicWidth, WhiteLevel: whiteLevelOut,
		Samples: make([]uint16, m.Width*m.Height),
	}

	exposure := effectiveExposure(ref)
	if exposure <= 0 {
		exposure = 1
	}

	for row := 0; row < m.Height; row++ {
		for col := 0; col < m.Width; col++ {
			idx := row*m.Width + col
			cell := ref.CFACell(row, col)
			black := 0.0
			if cell < len(ref.BlackLevels) {
				black = float64(ref.BlackLevels[cell])
			}

			inputRange := float64(ref.WhiteLevel) - black
			if inputRange <= 0 {
				inputRange = 1
			}

			normalized := (m.Values[idx] - black) / exposure
			scaled := normalized * (float64(whiteLevelOut) / inputRange)

			if scaled < 0 {
				scaled = 0
			}
			if scaled > float64(whiteLevelOut) {
				scaled = float64(whiteLevelOut)
			}

			out.Samples[idx] = uint16(math.Round(scaled))
		}
	}

	return out
}
