package loader

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/google/uuid"

	"github.com/hdrplus/hdrplus"
	"github.com/hdrplus/hdrplus/internal/parallel"
)

func isDNG(url string) bool {
	return strings.EqualFold(filepath.Ext(url), ".dng")
}

// convertedPath returns the deterministic staging path a non-DNG input
// converts to inside tmpDir. The name is a version-5 UUID derived from
// the URL itself (not randomly generated), so a second call with the
// same input agrees on the same path without needing a side index, while
// still avoiding basename collisions between inputs drawn from different
// source directories.
func convertedPath(tmpDir, url string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(url))
	return filepath.Join(tmpDir, id.String()+".dng")
}

// cacheLookup is the subset of cache.TextureCache[*hdrplus.Frame] that
// ConvertNonDNG needs, kept narrow so callers can pass a nil cache in
// tests without importing the cache package's generic type here.
type cacheLookup interface {
	Get(url string) (*hdrplus.Frame, bool)
}

// ConvertNonDNG invokes an external DNG converter for every input whose
// converted output is absent from both tc and tmpDir (or unconditionally
// if force is set), dispatching batches across
// min(0.75*cores, 0.5*N+1) workers, and returns the resulting DNG path
// for every input in urls, in order (DNG inputs pass through unchanged).
func ConvertNonDNG(urls []string, converterPath, tmpDir string, tc cacheLookup, force bool) ([]string, error) {
	out := make([]string, len(urls))
	pending := make([]int, 0, len(urls))

	for i, url := range urls {
		if isDNG(url) {
			out[i] = url
			continue
		}
		dst := convertedPath(tmpDir, url)
		out[i] = dst

		if force {
			pending = append(pending, i)
			continue
		}
		if tc != nil {
			if _, ok := tc.Get(url); ok {
				continue
			}
		}
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		pending = append(pending, i)
	}

	if len(pending) == 0 {
		return out, nil
	}

	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, hdrplus.NewError(hdrplus.KindConversionFailed, tmpDir, err)
	}

	workers := converterWorkerCount(len(pending))
	batches := splitBatches(pending, workers)

	logger := hdrplus.Logger()
	pool := parallel.NewWorkerPool(workers)
	defer pool.Close()

	errs := make([]error, len(batches))
	tasks := make([]func(), len(batches))
	for bi, batch := range batches {
		bi, batch := bi, batch
		tasks[bi] = func() {
			args := make([]string, 0, len(batch)*2)
			logArgs := make([]string, 0, len(batch)*2)
			for _, i := range batch {
				args = append(args, urls[i], out[i])
				logArgs = append(logArgs, shellescape.Quote(urls[i]), shellescape.Quote(out[i]))
			}
			logger.Info("loader: invoking external converter",
				"converter", converterPath, "argv", strings.Join(logArgs, " "))

			cmd := exec.Command(converterPath, args...)
			if err := cmd.Run(); err != nil {
				errs[bi] = hdrplus.NewError(hdrplus.KindConversionFailed, converterPath, err)
				return
			}
			for _, i := range batch {
				if _, statErr := os.Stat(out[i]); statErr != nil {
					errs[bi] = hdrplus.NewError(hdrplus.KindConversionFailed, out[i], statErr)
					return
				}
			}
		}
	}
	pool.ExecuteAll(tasks)

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// converterWorkerCount implements the spec's ~min(0.75*cores, 0.5*N+1)
// worker schedule.
func converterWorkerCount(n int) int {
	cores := runtime.GOMAXPROCS(0)
	byCores := int(0.75 * float64(cores))
	byN := n/2 + 1
	w := byCores
	if byN < w {
		w = byN
	}
	if w < 1 {
		w = 1
	}
	return w
}

// splitBatches spreads indices round-robin across workers batches,
// dropping any batch that ends up empty.
func splitBatches(indices []int, workers int) [][]int {
	if workers < 1 {
		workers = 1
	}
	batches := make([][]int, workers)
	for i, idx := range indices {
		b := i % workers
		batches[b] = append(batches[b], idx)
	}
	nonEmpty := make([][]int, 0, len(batches))
	for _, b := range batches {
		if len(b) > 0 {
			nonEmpty = append(nonEmpty, b)
		}
	}
	return nonEmpty
}
