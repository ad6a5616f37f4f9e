package loader

import (
	"github.com/hdrplus/hdrplus"
	"github.com/hdrplus/hdrplus/cache"
	"github.com/hdrplus/hdrplus/internal/parallel"
	"github.com/hdrplus/hdrplus/rawio"
	"github.com/hdrplus/hdrplus/refsel"
)

// LoadBurst turns a list of DNG URLs into a Burst: decode work for
// cache misses is farmed to a worker pool, cache reads/writes go
// through TextureCache's own single critical section, and LoadBurst
// blocks (the worker pool's ExecuteAll is a barrier) until every URL has
// been served from cache or freshly decoded. Fails if any frame fails to
// decode, or if frames disagree on (W, H, M) (hdrplus.KindInconsistentResolutions).
func LoadBurst(dec rawio.Decoder, urls []string, tc *cache.TextureCache[*hdrplus.Frame]) (*hdrplus.Burst, error) {
	return LoadBurstWithPolicy(dec, urls, tc, nil)
}

// LoadBurstWithPolicy is LoadBurst with an injectable reference-selection
// policy (nil uses refsel.ClosestToZeroExposureBias).
func LoadBurstWithPolicy(dec rawio.Decoder, urls []string, tc *cache.TextureCache[*hdrplus.Frame], policy refsel.Policy) (*hdrplus.Burst, error) {
	frames := make([]*hdrplus.Frame, len(urls))
	errs := make([]error, len(urls))

	pool := parallel.NewWorkerPool(0)
	defer pool.Close()

	tasks := make([]func(), len(urls))
	for i, url := range urls {
		i, url := i, url
		tasks[i] = func() {
			if f, ok := tc.Get(url); ok {
				frames[i] = f
				return
			}
			f, err := rawio.Open(dec, url)
			if err != nil {
				errs[i] = err
				return
			}
			cost := int64(2 * f.Width * f.Height)
			tc.Put(url, f, cost)
			frames[i] = f
		}
	}
	pool.ExecuteAll(tasks)

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	burst := &hdrplus.Burst{Frames: frames}
	burst.Reference = refsel.Select(frames, policy)

	if err := burst.Validate(); err != nil {
		return nil, err
	}
	return burst, nil
}
