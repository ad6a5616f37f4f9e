package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hdrplus/hdrplus"
)

// TrimDiskCache enumerates the regular files directly inside dir, orders
// them by insertion (modification) time, and deletes the oldest ones
// until the total size is at most maxSizeGB gigabytes. An already
// satisfied budget is a no-op; files with equal modification times are
// removed in no defined order. maxSizeGB uses the 1e9-byte gigabyte, not
// the binary gibibyte, matching how capture/storage tooling in this space
// typically reports "GB".
func TrimDiskCache(dir string, maxSizeGB float64) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return hdrplus.NewError(hdrplus.KindCache, dir, fmt.Errorf("read dir: %w", err))
	}

	type fileInfo struct {
		path    string
		size    int64
		modTime int64
	}
	files := make([]fileInfo, 0, len(entries))
	var total int64
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return hdrplus.NewError(hdrplus.KindCache, filepath.Join(dir, de.Name()), fmt.Errorf("stat: %w", err))
		}
		fi := fileInfo{
			path:    filepath.Join(dir, de.Name()),
			size:    info.Size(),
			modTime: info.ModTime().UnixNano(),
		}
		files = append(files, fi)
		total += fi.size
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime < files[j].modTime })

	maxBytes := int64(maxSizeGB * 1e9)
	for _, f := range files {
		if total <= maxBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			return hdrplus.NewError(hdrplus.KindCache, f.path, fmt.Errorf("remove: %w", err))
		}
		total -= f.size
	}
	return nil
}
