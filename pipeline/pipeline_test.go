package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/hdrplus/hdrplus"
	"github.com/hdrplus/hdrplus/gpuctx"
	"github.com/hdrplus/hdrplus/rawio"
)

type fakeDecoder struct {
	decoded      map[string]*rawio.Decoded
	writePath    string
	writeW       int
	writeH       int
	writeSamples []uint16
}

func (f *fakeDecoder) Decode(path string) (*rawio.Decoded, error) {
	d, ok := f.decoded[path]
	if !ok {
		return nil, hdrplus.NewError(hdrplus.KindLoad, path, errors.New("no such fixture"))
	}
	return d, nil
}

func (f *fakeDecoder) Write(templatePath, outPath string, samples []uint16, width, height, newWhiteLevel int) error {
	f.writePath = outPath
	f.writeW, f.writeH = width, height
	f.writeSamples = samples
	return nil
}

func fixture(eb int) *rawio.Decoded {
	return &rawio.Decoded{
		Samples: make([]uint16, 64*64), Width: 64, Height: 64, MosaicWidth: 2,
		WhiteLevel: 16383, BlackLevels: []int{0, 0, 0, 0}, ExposureBias: eb,
		ISOExposureTime: 1.0, ColorFactorRed: 1, ColorFactorGreen: 1, ColorFactorBlue: 1,
	}
}

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New(Config{GPU: gpuctx.Options{ForceCPU: true}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestPipeline_SingleFrameBurstIsIdentity(t *testing.T) {
	in := fixture(0)
	for i := range in.Samples {
		in.Samples[i] = 1000
	}
	dec := &fakeDecoder{decoded: map[string]*rawio.Decoded{"a.dng": in}}
	p := testPipeline(t)

	outPath := t.TempDir() + "/out.dng"
	if err := p.Run(context.Background(), dec, []string{"a.dng"}, outPath); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if dec.writePath != outPath {
		t.Errorf("writePath = %q, want %q", dec.writePath, outPath)
	}
	if dec.writeW != 64 || dec.writeH != 64 {
		t.Errorf("write dims = %dx%d, want 64x64", dec.writeW, dec.writeH)
	}
	if len(dec.writeSamples) != len(in.Samples) {
		t.Fatalf("wrote %d samples, want %d", len(dec.writeSamples), len(in.Samples))
	}
	for i, s := range dec.writeSamples {
		if s != in.Samples[i] {
			t.Fatalf("written sample %d = %d, want %d (identity)", i, s, in.Samples[i])
		}
	}
}

func TestPipeline_MultiFrameBurstRuns(t *testing.T) {
	dec := &fakeDecoder{decoded: map[string]*rawio.Decoded{
		"a.dng": fixture(0),
		"b.dng": fixture(0),
	}}
	p := testPipeline(t)

	outPath := t.TempDir() + "/out.dng"
	if err := p.Run(context.Background(), dec, []string{"a.dng", "b.dng"}, outPath); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if dec.writePath != outPath {
		t.Errorf("writePath = %q, want %q", dec.writePath, outPath)
	}
}

func TestPipeline_CancelledContextStopsBeforeWrite(t *testing.T) {
	dec := &fakeDecoder{decoded: map[string]*rawio.Decoded{"a.dng": fixture(0)}}
	p := testPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outPath := t.TempDir() + "/out.dng"
	err := p.Run(ctx, dec, []string{"a.dng"}, outPath)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if dec.writePath != "" {
		t.Errorf("expected no write on cancelled context, got %q", dec.writePath)
	}
}

func TestPipeline_MissingInputSurfacesLoadError(t *testing.T) {
	dec := &fakeDecoder{decoded: map[string]*rawio.Decoded{}}
	p := testPipeline(t)

	outPath := t.TempDir() + "/out.dng"
	err := p.Run(context.Background(), dec, []string{"missing.dng"}, outPath)
	if err == nil {
		t.Fatal("expected error for undecoded url")
	}
}

func TestDefaultConfig_Normalizes(t *testing.T) {
	cfg := DefaultConfig().normalize()
	if cfg.Merger == nil {
		t.Error("expected normalize() to default Merger")
	}
	if cfg.Align.TileSizes == nil {
		t.Error("expected normalize() to default Align")
	}
}
