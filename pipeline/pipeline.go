// Package pipeline orchestrates the full burst-merge sequence: load,
// align, merge, assemble, write, following the stage order and
// concurrency model laid out for the core packages (hdrplus, align,
// merge, assemble, loader, cache, gpuctx, rawio).
package pipeline

import (
	"context"
	"fmt"

	"github.com/hdrplus/hdrplus"
	"github.com/hdrplus/hdrplus/align"
	"github.com/hdrplus/hdrplus/assemble"
	"github.com/hdrplus/hdrplus/cache"
	"github.com/hdrplus/hdrplus/gpuctx"
	"github.com/hdrplus/hdrplus/loader"
	"github.com/hdrplus/hdrplus/merge"
	"github.com/hdrplus/hdrplus/rawio"
)

// Config configures a Pipeline. Zero values are replaced by defaults in
// normalize: DefaultConfig mirrors the teacher's PipelineConfig
// defaulting pattern.
type Config struct {
	Align align.Config

	// Merger selects the merge variant; nil defaults to a SpatialMerger.
	Merger merge.Merger

	// WhiteLevelOut is the output DNG's white level; 0 keeps the
	// reference frame's white level.
	WhiteLevelOut int

	// ConverterPath, TmpDir, and ForceConvert configure non-DNG input
	// conversion; ConverterPath == "" skips conversion entirely (every
	// input must already be a DNG).
	ConverterPath string
	TmpDir        string
	ForceConvert  bool

	// CacheBudgetBytes bounds the texture cache's total cost; 0 means
	// unbounded (see cache.TextureCache).
	CacheBudgetBytes int64

	GPU gpuctx.Options
}

// DefaultConfig returns a Config with the default alignment schedule and
// an unbounded cache.
func DefaultConfig() Config {
	return Config{Align: align.DefaultConfig()}
}

func (c Config) normalize() Config {
	if c.Align.TileSizes == nil {
		c.Align = align.DefaultConfig()
	}
	if c.Merger == nil {
		c.Merger = merge.NewSpatialMerger()
	}
	return c
}

// Pipeline holds the resources shared across runs: the GPU execution
// context and the texture cache. Both are explicit, non-singleton state
// — construct one Pipeline per concurrent user.
type Pipeline struct {
	cfg   Config
	ctx   *gpuctx.Context
	cache *cache.TextureCache[*hdrplus.Frame]
}

// New acquires a GPU context (or CPU fallback) and constructs a
// Pipeline.
func New(cfg Config) (*Pipeline, error) {
	cfg = cfg.normalize()

	gctx, err := gpuctx.Acquire(cfg.GPU)
	if err != nil {
		return nil, fmt.Errorf("pipeline: acquiring GPU context: %w", err)
	}

	return &Pipeline{
		cfg:   cfg,
		ctx:   gctx,
		cache: cache.New[*hdrplus.Frame](cfg.CacheBudgetBytes),
	}, nil
}

// Close releases the pipeline's GPU context.
func (p *Pipeline) Close() {
	p.ctx.Close()
}

// Run executes load -> align -> merge -> assemble -> write for urls,
// producing outPath. ctx is checked for cancellation at every stage
// boundary (cooperative cancellation; no stage is interrupted
// mid-computation).
func (p *Pipeline) Run(ctx context.Context, dec rawio.Decoder, urls []string, outPath string) error {
	logger := hdrplus.Logger()

	expanded, err := loader.ExpandURLs(urls)
	if err != nil {
		return fmt.Errorf("pipeline: expanding input urls: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	dngURLs := expanded
	if p.cfg.ConverterPath != "" {
		dngURLs, err = loader.ConvertNonDNG(expanded, p.cfg.ConverterPath, p.cfg.TmpDir, p.cache, p.cfg.ForceConvert)
		if err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	burst, err := loadBurstWithRetry(dec, dngURLs, p.cache)
	if err != nil {
		return err
	}
	logger.Info("pipeline: burst loaded", "frames", len(burst.Frames), "reference", burst.Reference)

	if err := ctx.Err(); err != nil {
		return err
	}

	maps, err := align.Align(p.ctx, burst, p.cfg.Align)
	if err != nil {
		return fmt.Errorf("pipeline: alignment: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	mergedResult, err := p.cfg.Merger.Merge(p.ctx, burst, maps)
	if err != nil {
		return fmt.Errorf("pipeline: merge: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	whiteLevelOut := p.cfg.WhiteLevelOut
	if whiteLevelOut == 0 {
		whiteLevelOut = burst.Ref().WhiteLevel
	}
	assembled := assemble.Assemble(mergedResult, burst.Ref(), whiteLevelOut)

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := rawio.WriteMergedMosaic(dec, burst.Ref().URL, outPath, assembled.Samples, assembled.Width, assembled.Height, whiteLevelOut); err != nil {
		return err
	}

	logger.Info("pipeline: merged mosaic written", "path", outPath)
	return nil
}

// loadBurstWithRetry retries the whole load once on a transient I/O
// failure: load_burst has no per-frame retry hook, so a single
// whole-burst retry is the coarsest, simplest place to absorb a
// one-off decode hiccup without masking a genuinely bad frame (which
// fails identically on the second attempt).
func loadBurstWithRetry(dec rawio.Decoder, urls []string, tc *cache.TextureCache[*hdrplus.Frame]) (*hdrplus.Burst, error) {
	burst, err := loader.LoadBurst(dec, urls, tc)
	if err == nil {
		return burst, nil
	}

	var hErr *hdrplus.Error
	if !isLoadError(err, &hErr) {
		return nil, err
	}

	hdrplus.Logger().Warn("pipeline: retrying burst load after transient decode error", "error", err)
	return loader.LoadBurst(dec, urls, tc)
}

func isLoadError(err error, target **hdrplus.Error) bool {
	type errorAs interface{ As(any) bool }
	// errors.As requires a concrete target type; reimplemented narrowly
	// here to avoid importing errors solely for this one check.
	for err != nil {
		if e, ok := err.(*hdrplus.Error); ok {
			*target = e
			return e.Kind == hdrplus.KindLoad
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
