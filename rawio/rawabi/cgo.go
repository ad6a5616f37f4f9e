//go:build hdrplus_rawcgo

package rawabi

/*
#cgo CFLAGS: -I${SRCDIR}/include
#cgo LDFLAGS: -lrawdecoder
#include <stdlib.h>
#include "rawdecoder.h"
*/
import "C"

import (
	"fmt"
	"unsafe"
)

const maxCFACells = 36
const maxMaskedAreas = 4

// Rect mirrors one masked_areas[] entry: top, left, bottom, right. A
// rectangle with Top == -1 marks an absent entry, per the ABI.
type Rect struct {
	Top, Left, Bottom, Right int
}

// Raw is everything read_raw reports for one file.
type Raw struct {
	Pixels       []byte // W*H*2 bytes, row-major, little-endian
	Width        int
	Height       int
	MosaicWidth  int
	WhiteLevel   int
	BlackLevels  [maxCFACells]int // -1 entries are unspecified
	MaskedAreas  []Rect
	ExposureBias int
	ISOExposureTime                                  float64
	ColorFactorRed, ColorFactorGreen, ColorFactorBlue float64
}

// InitializeEnv brackets every raw operation; must be called once before
// any Decode/Write and matched by TerminateEnv.
func InitializeEnv() error {
	if rc := C.initialize_env(); rc != 0 {
		return fmt.Errorf("rawabi: initialize_env failed: code %d", int(rc))
	}
	return nil
}

// TerminateEnv releases resources acquired by InitializeEnv.
func TerminateEnv() {
	C.terminate_env()
}

// Decode calls read_raw for inPath and marshals the C-owned output buffers
// into Go-owned memory before freeing them.
func Decode(inPath string) (*Raw, error) {
	cPath := C.CString(inPath)
	defer C.free(unsafe.Pointer(cPath))

	var pixelBytes *C.uint8_t
	var w, h, m, wl C.int
	var blackLevels [maxCFACells]C.int
	var maskedAreas [maxMaskedAreas * 4]C.int
	var eb C.int
	var isoT, cr, cg, cb C.double

	rc := C.read_raw(
		cPath,
		&pixelBytes,
		&w, &h, &m, &wl,
		(*C.int)(unsafe.Pointer(&blackLevels[0])),
		(*C.int)(unsafe.Pointer(&maskedAreas[0])),
		&eb, &isoT, &cr, &cg, &cb,
	)
	if rc != 0 {
		return nil, fmt.Errorf("rawabi: read_raw(%s) failed: code %d", inPath, int(rc))
	}
	defer C.free(unsafe.Pointer(pixelBytes))

	width, height, mosaicWidth := int(w), int(h), int(m)
	pix := C.GoBytes(unsafe.Pointer(pixelBytes), C.int(width*height*2))

	raw := &Raw{
		Pixels:           pix,
		Width:            width,
		Height:           height,
		MosaicWidth:      mosaicWidth,
		WhiteLevel:       int(wl),
		ExposureBias:     int(eb),
		ISOExposureTime:  float64(isoT),
		ColorFactorRed:   float64(cr),
		ColorFactorGreen: float64(cg),
		ColorFactorBlue:  float64(cb),
	}
	for i := 0; i < maxCFACells; i++ {
		raw.BlackLevels[i] = int(blackLevels[i])
	}
	for i := 0; i < maxMaskedAreas; i++ {
		top := int(maskedAreas[i*4])
		if top == -1 {
			continue
		}
		raw.MaskedAreas = append(raw.MaskedAreas, Rect{
			Top:    top,
			Left:   int(maskedAreas[i*4+1]),
			Bottom: int(maskedAreas[i*4+2]),
			Right:  int(maskedAreas[i*4+3]),
		})
	}
	return raw, nil
}

// Write calls write_raw to replace templatePath's image strip with pixels
// (width*height*2 bytes, row-major, little-endian) and writes the result
// to outPath. newWhiteLevel <= 0 preserves the template's white level.
func Write(templatePath, outPath string, pixels []byte, newWhiteLevel int) error {
	cTemplate := C.CString(templatePath)
	defer C.free(unsafe.Pointer(cTemplate))
	cOut := C.CString(outPath)
	defer C.free(unsafe.Pointer(cOut))

	rc := C.write_raw(
		cTemplate, cOut,
		(*C.uint8_t)(unsafe.Pointer(&pixels[0])),
		C.int(len(pixels)),
		C.int(newWhiteLevel),
	)
	if rc != 0 {
		return fmt.Errorf("rawabi: write_raw(%s -> %s) failed: code %d", templatePath, outPath, int(rc))
	}
	return nil
}
