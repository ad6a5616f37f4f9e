// Package rawio is the DNG I/O adapter: it decodes a DNG to a 16-bit
// mosaic image plus metadata, recovers black levels from masked pixels
// when the header omits them, and writes a merged mosaic back into a DNG
// using the input as a metadata template.
//
// Actual pixel decode/encode is delegated to an external raw-decoder
// library reached over a strict return-code C ABI (see package rawabi);
// this package owns only the Go-side contract, the black-level recovery
// math, and translating ABI failures into distinguishable error kinds.
package rawio

import (
	"fmt"

	"github.com/hdrplus/hdrplus"
)

// Rectangle is a masked-area rectangle in sensor coordinates: optically
// blocked pixels used as a black-level reference. Bounds follow
// hdrplus.MaskedArea (Top/Left inclusive, Bottom/Right exclusive).
type Rectangle = hdrplus.MaskedArea

// Decoded holds everything read_raw reports for one DNG.
type Decoded struct {
	Samples     []uint16
	Width       int
	Height      int
	MosaicWidth int
	WhiteLevel  int
	// BlackLevels has MosaicWidth*MosaicWidth entries; a non-positive
	// entry (such as the -1 sentinel) is treated as unspecified by the
	// header and still needing recovery.
	BlackLevels  []int
	MaskedAreas  []Rectangle
	ExposureBias int
	ISOExposureTime float64
	ColorFactorRed, ColorFactorGreen, ColorFactorBlue float64
}

// Decoder is the Go-side contract to a raw decoder library: decode a DNG
// to a Decoded image plus metadata, and write a merged mosaic back using
// a template DNG for IFD/metadata. Implementations must keep the ABI's
// environment initialized (initialize_env ... terminate_env, see rawabi)
// for as long as they decode or write, and translate any trapped
// exception or non-zero return
// code to a *hdrplus.Error carrying the right Kind.
type Decoder interface {
	// Decode reads path and returns its mosaic image and metadata.
	Decode(path string) (*Decoded, error)

	// Write replaces templatePath's image strip with samples (row-major,
	// width*height 16-bit values) and writes the result to outPath. A
	// newWhiteLevel <= 0 preserves the template's white level. All other
	// IFD/metadata, including lens calibration and maker notes, is
	// preserved bit-for-bit from the template.
	Write(templatePath, outPath string, samples []uint16, width, height, newWhiteLevel int) error
}

// Open decodes path with dec and fills in any black levels the header
// left unspecified (non-positive) using RecoverBlackLevels. The returned Frame's
// URL is set to path.
func Open(dec Decoder, path string) (*hdrplus.Frame, error) {
	d, err := dec.Decode(path)
	if err != nil {
		return nil, err
	}
	if err := validateDecoded(d, path); err != nil {
		return nil, err
	}

	blackLevels := RecoverBlackLevels(d.Samples, d.Width, d.Height, d.MosaicWidth, d.BlackLevels, d.MaskedAreas)

	f := &hdrplus.Frame{
		URL:              path,
		Width:            d.Width,
		Height:           d.Height,
		Samples:          d.Samples,
		MosaicWidth:      d.MosaicWidth,
		BlackLevels:      blackLevels,
		WhiteLevel:       d.WhiteLevel,
		ExposureBias:     d.ExposureBias,
		ISOExposureTime:  d.ISOExposureTime,
		ColorFactorRed:   d.ColorFactorRed,
		ColorFactorGreen: d.ColorFactorGreen,
		ColorFactorBlue:  d.ColorFactorBlue,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func validateDecoded(d *Decoded, path string) error {
	if len(d.Samples) != d.Width*d.Height {
		return hdrplus.NewError(hdrplus.KindLoad, path, fmt.Errorf(
			"decoded %d samples, want %d*%d=%d", len(d.Samples), d.Width, d.Height, d.Width*d.Height))
	}
	if len(d.BlackLevels) != d.MosaicWidth*d.MosaicWidth {
		return hdrplus.NewError(hdrplus.KindLoad, path, fmt.Errorf(
			"decoded %d black levels, want %d for mosaic width %d", len(d.BlackLevels), d.MosaicWidth*d.MosaicWidth, d.MosaicWidth))
	}
	return nil
}

// WriteMergedMosaic packages a merged mosaic as a DNG using refURL as the
// metadata template, applying newWhiteLevel (<=0 keeps the template's).
func WriteMergedMosaic(dec Decoder, refURL, outPath string, samples []uint16, width, height, newWhiteLevel int) error {
	if len(samples) != width*height {
		return hdrplus.NewError(hdrplus.KindSave, outPath, fmt.Errorf(
			"buffer has %d samples, want %d*%d=%d", len(samples), width, height, width*height))
	}
	if err := dec.Write(refURL, outPath, samples, width, height, newWhiteLevel); err != nil {
		return hdrplus.NewError(hdrplus.KindSave, outPath, err)
	}
	return nil
}
