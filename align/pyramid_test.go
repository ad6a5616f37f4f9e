package align

import (
	"testing"

	"github.com/hdrplus/hdrplus"
)

func testFrame(w, h, m int, value uint16) *hdrplus.Frame {
	samples := make([]uint16, w*h)
	for i := range samples {
		samples[i] = value
	}
	cells := m * m
	black := make([]int, cells)
	return &hdrplus.Frame{
		URL: "f.dng", Width: w, Height: h, Samples: samples,
		MosaicWidth: m, BlackLevels: black, WhiteLevel: 16383,
		ISOExposureTime: 1.0, ColorFactorRed: 1, ColorFactorGreen: 1, ColorFactorBlue: 1,
	}
}

func TestBuildPyramid_LevelCount(t *testing.T) {
	f := testFrame(64, 64, 2, 1000)
	p := BuildPyramid(f, 4, 1.0)
	if len(p.Levels) != 4 {
		t.Fatalf("len(Levels) = %d, want 4", len(p.Levels))
	}
	if p.Levels[0].Width != 64 || p.Levels[0].Height != 64 {
		t.Errorf("Levels[0] = %dx%d, want 64x64", p.Levels[0].Width, p.Levels[0].Height)
	}
	if p.Levels[1].Width != 32 || p.Levels[1].Height != 32 {
		t.Errorf("Levels[1] = %dx%d, want 32x32", p.Levels[1].Width, p.Levels[1].Height)
	}
	if p.Levels[3].Width != 8 || p.Levels[3].Height != 8 {
		t.Errorf("Levels[3] = %dx%d, want 8x8", p.Levels[3].Width, p.Levels[3].Height)
	}
}

func TestBuildPyramid_BlackLevelSubtractedAndGained(t *testing.T) {
	f := testFrame(4, 4, 2, 1100)
	for i := range f.BlackLevels {
		f.BlackLevels[i] = 100
	}
	p := BuildPyramid(f, 1, 2.0)
	for _, v := range p.Levels[0].Samples {
		if v != 2000 {
			t.Fatalf("sample = %v, want 2000 ((1100-100)*2)", v)
		}
	}
}

func TestBuildPyramid_NegativeClampedToZero(t *testing.T) {
	f := testFrame(2, 2, 2, 50)
	for i := range f.BlackLevels {
		f.BlackLevels[i] = 100
	}
	p := BuildPyramid(f, 1, 1.0)
	for _, v := range p.Levels[0].Samples {
		if v != 0 {
			t.Fatalf("sample = %v, want 0 (clamped)", v)
		}
	}
}

func TestDownsample2x_ConstantImagePreservesValue(t *testing.T) {
	f := testFrame(8, 8, 2, 4000)
	p := BuildPyramid(f, 3, 1.0)
	for li, lvl := range p.Levels {
		for _, v := range lvl.Samples {
			if v != 4000 {
				t.Fatalf("level %d sample = %v, want 4000", li, v)
			}
		}
	}
}
