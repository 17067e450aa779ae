package unpack

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/exfor-index/internal/storage"
)

// DBDirName is the directory holding the entry files below the index directory
const DBDirName = "db"

// ErrExists is returned by Prepare when Root is already present and force is not set
var ErrExists = errors.New("unpack directory already present")

// Layout locates everything derived from one master archive.
// For /data/EXFOR-2024.zip:
//
//	/data/unpack_EXFOR-2024/              Root
//	/data/unpack_EXFOR-2024/X4-2024/      IndexDir, with the tag file X4-2024
//	/data/unpack_EXFOR-2024/X4-2024/db/   DB
type Layout struct {
	Root     string
	Tag      string
	IndexDir string
	DB       string
}

// NewLayout derives the layout of the master archive at masterPath
func NewLayout(masterPath string) (Layout, error) {
	abs, err := filepath.Abs(masterPath)
	if err != nil {
		return Layout{}, err
	}
	stem := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	tag := strings.ReplaceAll(stem, "EXFOR", "X4")
	root := filepath.Join(filepath.Dir(abs), "unpack_"+stem)
	indexDir := filepath.Join(root, tag)

	return Layout{
		Root:     root,
		Tag:      tag,
		IndexDir: indexDir,
		DB:       filepath.Join(indexDir, DBDirName),
	}, nil
}

// Index returns the storage layout of the index built from this archive
func (l Layout) Index() storage.Layout {
	return storage.DefaultLayout(l.IndexDir)
}

// Prepare creates the directories and touches the tag file. An existing Root
// is removed first when force is set.
func (l Layout) Prepare(force bool) error {
	_, err := os.Stat(l.Root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("failed to check %s: %w", l.Root, err)
	case !force:
		return fmt.Errorf("%w: %s (use --force)", ErrExists, l.Root)
	default:
		if err := os.RemoveAll(l.Root); err != nil {
			return fmt.Errorf("failed to remove %s: %w", l.Root, err)
		}
	}

	if err := os.MkdirAll(l.DB, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", l.DB, err)
	}
	tag := filepath.Join(l.IndexDir, l.Tag)
	f, err := os.OpenFile(tag, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create tag file: %w", err)
	}
	return f.Close()
}
