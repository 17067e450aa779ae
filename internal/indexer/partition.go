package indexer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

const (
	// DefaultExtension is the extension of entry files
	DefaultExtension = ".x4"
	// DefaultChunkCap bounds the number of files per chunk
	DefaultChunkCap = 50
)

// ErrNoEntries is returned when the database root holds no entry files
var ErrNoEntries = errors.New("no entry files found")

// DiscoverEntries finds every file ending in ext below the root of fs.
// Paths are relative to the root, slash separated and sorted.
func DiscoverEntries(fs billy.Filesystem, ext string) ([]string, error) {
	if ext == "" {
		ext = DefaultExtension
	}

	var files []string
	err := util.Walk(fs, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// An empty filesystem has no root to walk
			if path == "/" && errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ext) {
			return nil
		}
		files = append(files, strings.TrimPrefix(filepath.ToSlash(path), "/"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover entries: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// ChunkSize returns the number of files per chunk: total/workers, capped at
// limit and never below one
func ChunkSize(total, workers, limit int) int {
	if workers < 1 {
		workers = 1
	}
	if limit < 1 {
		limit = DefaultChunkCap
	}
	return max(1, min(total/workers, limit))
}

// Partition splits files into consecutive chunks of ChunkSize files.
// The last chunk may be shorter.
func Partition(files []string, workers, limit int) ([][]string, error) {
	if len(files) == 0 {
		return nil, ErrNoEntries
	}

	size := ChunkSize(len(files), workers, limit)
	chunks := make([][]string, 0, (len(files)+size-1)/size)
	for i := 0; i < len(files); i += size {
		end := min(i+size, len(files))
		chunks = append(chunks, files[i:end])
	}
	return chunks, nil
}
