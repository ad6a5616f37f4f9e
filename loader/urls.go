// Package loader turns a list of input URLs into a Burst: resolving
// directory expansion, dispatching decode work across a worker pool,
// caching decoded frames by URL, and invoking an external converter for
// non-DNG inputs.
package loader

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandURLs applies the input URL list semantics: if urls has exactly
// one element and it names a directory, expand it to that directory's
// immediate non-hidden children (not recursed); otherwise urls is used
// as-is.
func ExpandURLs(urls []string) ([]string, error) {
	if len(urls) != 1 {
		return urls, nil
	}

	info, err := os.Stat(urls[0])
	if err != nil || !info.IsDir() {
		return urls, nil
	}

	entries, err := os.ReadDir(urls[0])
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, filepath.Join(urls[0], e.Name()))
	}
	return out, nil
}
