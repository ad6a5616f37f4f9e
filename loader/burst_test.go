package loader

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/hdrplus/hdrplus"
	"github.com/hdrplus/hdrplus/cache"
	"github.com/hdrplus/hdrplus/rawio"
)

type fakeDecoder struct {
	decoded map[string]*rawio.Decoded

	// decodeCalls counts Decode invocations per URL; LoadBurst's decode
	// tasks run on a worker pool, so this must be updated atomically.
	decodeCalls map[string]*atomic.Int64
}

func (f *fakeDecoder) Decode(path string) (*rawio.Decoded, error) {
	if f.decodeCalls != nil {
		if c, ok := f.decodeCalls[path]; ok {
			c.Add(1)
		}
	}
	d, ok := f.decoded[path]
	if !ok {
		return nil, hdrplus.NewError(hdrplus.KindLoad, path, errors.New("no such fixture"))
	}
	return d, nil
}

func (f *fakeDecoder) Write(templatePath, outPath string, samples []uint16, width, height, newWhiteLevel int) error {
	return nil
}

func fixture(eb int) *rawio.Decoded {
	return &rawio.Decoded{
		Samples: make([]uint16, 16), Width: 4, Height: 4, MosaicWidth: 2,
		WhiteLevel: 16383, BlackLevels: []int{0, 0, 0, 0}, ExposureBias: eb,
		ISOExposureTime: 1.0, ColorFactorRed: 1, ColorFactorGreen: 1, ColorFactorBlue: 1,
	}
}

func TestLoadBurst_PopulatesFramesAndPicksReference(t *testing.T) {
	dec := &fakeDecoder{decoded: map[string]*rawio.Decoded{
		"a.dng": fixture(-100),
		"b.dng": fixture(0),
		"c.dng": fixture(100),
	}}
	tc := cache.New[*hdrplus.Frame](0)

	burst, err := LoadBurst(dec, []string{"a.dng", "b.dng", "c.dng"}, tc)
	if err != nil {
		t.Fatalf("LoadBurst: %v", err)
	}
	if len(burst.Frames) != 3 {
		t.Fatalf("len(Frames) = %d, want 3", len(burst.Frames))
	}
	if burst.Reference != 1 {
		t.Errorf("Reference = %d, want 1 (b.dng, Eb=0)", burst.Reference)
	}
}

func TestLoadBurst_UndecodedURLSurfacesError(t *testing.T) {
	dec := &fakeDecoder{decoded: map[string]*rawio.Decoded{"a.dng": fixture(0)}}
	tc := cache.New[*hdrplus.Frame](0)

	_, err := LoadBurst(dec, []string{"a.dng", "missing.dng"}, tc)
	if err == nil {
		t.Fatal("expected error for undecoded url")
	}
}

func TestLoadBurst_CacheHitAvoidsRedecode(t *testing.T) {
	dec := &fakeDecoder{
		decoded:     map[string]*rawio.Decoded{"a.dng": fixture(0), "b.dng": fixture(100)},
		decodeCalls: map[string]*atomic.Int64{"a.dng": new(atomic.Int64), "b.dng": new(atomic.Int64)},
	}
	tc := cache.New[*hdrplus.Frame](0)

	if _, err := LoadBurst(dec, []string{"a.dng", "b.dng"}, tc); err != nil {
		t.Fatalf("LoadBurst (first load): %v", err)
	}
	if got := dec.decodeCalls["a.dng"].Load(); got != 1 {
		t.Fatalf("a.dng Decode calls after first load = %d, want 1", got)
	}
	if got := dec.decodeCalls["b.dng"].Load(); got != 1 {
		t.Fatalf("b.dng Decode calls after first load = %d, want 1", got)
	}

	if _, err := LoadBurst(dec, []string{"a.dng", "b.dng"}, tc); err != nil {
		t.Fatalf("LoadBurst (second load): %v", err)
	}
	if got := dec.decodeCalls["a.dng"].Load(); got != 1 {
		t.Errorf("a.dng Decode calls after second load = %d, want still 1 (cache hit)", got)
	}
	if got := dec.decodeCalls["b.dng"].Load(); got != 1 {
		t.Errorf("b.dng Decode calls after second load = %d, want still 1 (cache hit)", got)
	}
}

func TestLoadBurst_InconsistentDimensionsFails(t *testing.T) {
	a := fixture(0)
	b := fixture(0)
	b.Width, b.Height = 8, 8
	b.Samples = make([]uint16, 64)

	dec := &fakeDecoder{decoded: map[string]*rawio.Decoded{"a.dng": a, "b.dng": b}}
	tc := cache.New[*hdrplus.Frame](0)

	_, err := LoadBurst(dec, []string{"a.dng", "b.dng"}, tc)
	if err == nil {
		t.Fatal("expected InconsistentResolutions error")
	}
	var hErr *hdrplus.Error
	if !errors.As(err, &hErr) || hErr.Kind != hdrplus.KindInconsistentResolutions {
		t.Errorf("err = %v, want KindInconsistentResolutions", err)
	}
}
