//go:build hdrplus_rawcgo

package rawio

import (
	"encoding/binary"
	"fmt"

	"github.com/hdrplus/hdrplus"
	"github.com/hdrplus/hdrplus/rawio/rawabi"
)

// CGODecoder is the production Decoder, backed by the external raw
// decoder library via the rawabi cgo bridge.
type CGODecoder struct{}

// NewCGODecoder brackets the ABI's environment lifetime: InitializeEnv is
// called here, TerminateEnv must be called via Close when the decoder is
// no longer needed.
func NewCGODecoder() (*CGODecoder, error) {
	if err := rawabi.InitializeEnv(); err != nil {
		return nil, hdrplus.NewError(hdrplus.KindLoad, "", err)
	}
	return &CGODecoder{}, nil
}

// Close terminates the ABI environment. Safe to call once.
func (d *CGODecoder) Close() {
	rawabi.TerminateEnv()
}

func (d *CGODecoder) Decode(path string) (*Decoded, error) {
	raw, err := rawabi.Decode(path)
	if err != nil {
		return nil, hdrplus.NewError(hdrplus.KindLoad, path, err)
	}

	samples := make([]uint16, raw.Width*raw.Height)
	for i := range samples {
		samples[i] = binary.LittleEndian.Uint16(raw.Pixels[i*2 : i*2+2])
	}

	cells := raw.MosaicWidth * raw.MosaicWidth
	blackLevels := make([]int, cells)
	copy(blackLevels, raw.BlackLevels[:cells])

	masks := make([]Rectangle, len(raw.MaskedAreas))
	for i, m := range raw.MaskedAreas {
		masks[i] = Rectangle{Top: m.Top, Left: m.Left, Bottom: m.Bottom, Right: m.Right}
	}

	return &Decoded{
		Samples:          samples,
		Width:            raw.Width,
		Height:           raw.Height,
		MosaicWidth:      raw.MosaicWidth,
		WhiteLevel:       raw.WhiteLevel,
		BlackLevels:      blackLevels,
		MaskedAreas:      masks,
		ExposureBias:     raw.ExposureBias,
		ISOExposureTime:  raw.ISOExposureTime,
		ColorFactorRed:   raw.ColorFactorRed,
		ColorFactorGreen: raw.ColorFactorGreen,
		ColorFactorBlue:  raw.ColorFactorBlue,
	}, nil
}

func (d *CGODecoder) Write(templatePath, outPath string, samples []uint16, width, height, newWhiteLevel int) error {
	if len(samples) != width*height {
		return hdrplus.NewError(hdrplus.KindSave, outPath, fmt.Errorf(
			"buffer has %d samples, want %d*%d", len(samples), width, height))
	}
	pixels := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pixels[i*2:i*2+2], s)
	}
	if err := rawabi.Write(templatePath, outPath, pixels, newWhiteLevel); err != nil {
		return hdrplus.NewError(hdrplus.KindSave, outPath, err)
	}
	return nil
}
