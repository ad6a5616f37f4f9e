package merge

import (
	"math"
	"testing"

	"github.com/hdrplus/hdrplus"
	"github.com/hdrplus/hdrplus/align"
	"github.com/hdrplus/hdrplus/gpuctx"
)

func constFrame(w, h, m int, value uint16) *hdrplus.Frame {
	samples := make([]uint16, w*h)
	for i := range samples {
		samples[i] = value
	}
	return &hdrplus.Frame{
		URL: "const.dng", Width: w, Height: h, Samples: samples,
		MosaicWidth: m, BlackLevels: make([]int, m*m), WhiteLevel: 16383,
		ISOExposureTime: 1.0, ColorFactorRed: 1, ColorFactorGreen: 1, ColorFactorBlue: 1,
	}
}

func cpuCtx(t *testing.T) *gpuctx.Context {
	t.Helper()
	ctx, err := gpuctx.Acquire(gpuctx.Options{ForceCPU: true})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	return ctx
}

func TestSpatialMerger_SingleFrameIsBitwiseReference(t *testing.T) {
	ref := constFrame(16, 16, 2, 1234)
	burst := &hdrplus.Burst{Frames: []*hdrplus.Frame{ref}, Reference: 0}

	m := NewSpatialMerger()
	res, err := m.Merge(cpuCtx(t), burst, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	for i, s := range ref.Samples {
		if res.Values[i] != float64(s) {
			t.Fatalf("Values[%d] = %v, want %v", i, res.Values[i], s)
		}
	}
}

func TestSpatialMerger_UniformWeightsMatchReferenceUnderTranslation(t *testing.T) {
	w, h, mw := 64, 64, 2
	ref := constFrame(w, h, mw, 1000)
	alt := constFrame(w, h, mw, 1000)
	burst := &hdrplus.Burst{Frames: []*hdrplus.Frame{ref, alt}, Reference: 0}

	amap := &align.AlignmentMap{TilesX: 1, TilesY: 1, TileSize: w, Stride: w, DX: []int{-2}, DY: []int{0}, Cost: []float64{0}}
	maps := map[int]*align.AlignmentMap{1: amap}

	m := NewSpatialMerger()
	res, err := m.Merge(cpuCtx(t), burst, maps)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	for i, v := range res.Values {
		if v != 1000 {
			t.Fatalf("Values[%d] = %v, want 1000 (constant image)", i, v)
		}
	}
}

func TestFrequencyMerger_SingleFrameIsBitwiseReference(t *testing.T) {
	ref := constFrame(32, 32, 2, 500)
	burst := &hdrplus.Burst{Frames: []*hdrplus.Frame{ref}, Reference: 0}

	m := NewFrequencyMerger()
	res, err := m.Merge(cpuCtx(t), burst, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	for i, s := range ref.Samples {
		if res.Values[i] != float64(s) {
			t.Fatalf("Values[%d] = %v, want %v", i, res.Values[i], s)
		}
	}
}

func TestFrequencyMerger_ConstantImageReconstructsValue(t *testing.T) {
	w, h, mw := 32, 32, 2
	ref := constFrame(w, h, mw, 2000)
	alt := constFrame(w, h, mw, 2000)
	burst := &hdrplus.Burst{Frames: []*hdrplus.Frame{ref, alt}, Reference: 0}

	amap := &align.AlignmentMap{TilesX: 1, TilesY: 1, TileSize: w, Stride: w, DX: []int{0}, DY: []int{0}, Cost: []float64{0}}
	maps := map[int]*align.AlignmentMap{1: amap}

	m := NewFrequencyMerger()
	m.TileSize = 16
	res, err := m.Merge(cpuCtx(t), burst, maps)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	for i, v := range res.Values {
		if diff := v - 2000; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("Values[%d] = %v, want ~2000", i, v)
		}
	}
}

// TestSpatialMerger_ExposureMismatchFallsBackToReference covers spec.md's
// exposure-mismatch scenario: two frames with Eb1=0, Eb2=-200 (EV x100)
// whose content is identical once exposure-compensated. Frame 2's raw
// samples, still at their own exposure, sit two stops below frame 1's —
// a difference the robustness weight rejects outright, so the merge
// should fall back to frame 1 within ±1 LSB.
func TestSpatialMerger_ExposureMismatchFallsBackToReference(t *testing.T) {
	w, h, mw := 32, 32, 2
	refValue := uint16(8000)
	altValue := uint16(math.Round(float64(refValue) * math.Pow(2, -200.0/100.0)))

	ref := constFrame(w, h, mw, refValue)
	ref.ExposureBias = 0
	alt := constFrame(w, h, mw, altValue)
	alt.ExposureBias = -200

	burst := &hdrplus.Burst{Frames: []*hdrplus.Frame{ref, alt}, Reference: 0}
	amap := &align.AlignmentMap{TilesX: 1, TilesY: 1, TileSize: w, Stride: w, DX: []int{0}, DY: []int{0}, Cost: []float64{0}}
	maps := map[int]*align.AlignmentMap{1: amap}

	m := NewSpatialMerger()
	res, err := m.Merge(cpuCtx(t), burst, maps)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	for i, v := range res.Values {
		if diff := math.Abs(v - float64(refValue)); diff > 1 {
			t.Fatalf("Values[%d] = %v, want within 1 LSB of frame 1's %d", i, v, refValue)
		}
	}
}

func TestRobustness_MonotonicDecreasing(t *testing.T) {
	if robustness(-1) != 1 {
		t.Error("robustness(-1) should clamp to 1")
	}
	if robustness(2) != 0 {
		t.Error("robustness(2) should clamp to 0")
	}
	if robustness(0.2) <= robustness(0.8) {
		t.Error("robustness should be monotonically decreasing")
	}
}

func TestNoiseModel_SigmaIncreasesWithSignal(t *testing.T) {
	nm := DefaultNoiseModel()
	low := nm.Sigma(1.0, 10)
	high := nm.Sigma(1.0, 10000)
	if high <= low {
		t.Errorf("Sigma should increase with signal: low=%v high=%v", low, high)
	}
}
