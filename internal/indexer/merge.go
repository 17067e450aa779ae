package indexer

import (
	"errors"
	"fmt"

	"github.com/dshills/exfor-index/pkg/types"
)

// ErrDuplicateKey is returned when two partial results claim the same
// pointer or file. Keys are unique per file, so this is always a bug.
var ErrDuplicateKey = errors.New("duplicate key in partial results")

// Merge combines partial results. Counts are summed; coupled, monitored and
// error entries are unioned and must not collide. Rows are concatenated in
// argument order. nil parts are skipped and no part is modified.
func Merge(parts ...*types.IndexData) (*types.IndexData, error) {
	merged := types.NewIndexData()
	for _, part := range parts {
		if part == nil {
			continue
		}
		if err := mergeInto(merged, part); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

func mergeInto(dst, src *types.IndexData) error {
	for key, keys := range src.Coupled {
		if _, ok := dst.Coupled[key]; ok {
			return fmt.Errorf("%w: coupled %s", ErrDuplicateKey, key)
		}
		dst.Coupled[key] = keys
	}
	for key, keys := range src.Monitored {
		if _, ok := dst.Monitored[key]; ok {
			return fmt.Errorf("%w: monitored %s", ErrDuplicateKey, key)
		}
		dst.Monitored[key] = keys
	}
	for path, rec := range src.Errors {
		if _, ok := dst.Errors[path]; ok {
			return fmt.Errorf("%w: error log %s", ErrDuplicateKey, path)
		}
		dst.Errors[path] = rec
	}
	for key, n := range src.Counts {
		dst.Counts[key] += n
	}
	dst.Rows = append(dst.Rows, src.Rows...)
	dst.Files += src.Files
	return nil
}
