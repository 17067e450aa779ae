package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// Default artifact names within the output directory
const (
	DefaultIndexName     = "index.tbl"
	DefaultErrorLogName  = "error-entries.json"
	DefaultCoupledName   = "coupled-entries.json"
	DefaultMonitoredName = "monitored-entries.json"
	DefaultCountsName    = "reaction-count.json"
)

// Layout names the artifacts of one index directory
type Layout struct {
	Dir       string
	Index     string
	ErrorLog  string
	Coupled   string
	Monitored string
	Counts    string
}

// DefaultLayout returns the standard artifact names under dir
func DefaultLayout(dir string) Layout {
	return Layout{
		Dir:       dir,
		Index:     DefaultIndexName,
		ErrorLog:  DefaultErrorLogName,
		Coupled:   DefaultCoupledName,
		Monitored: DefaultMonitoredName,
		Counts:    DefaultCountsName,
	}
}

// Path returns the location of the artifact name
func (l Layout) Path(name string) string {
	return filepath.Join(l.Dir, name)
}

// Outputs lists the paths of every artifact a build writes
func (l Layout) Outputs() []string {
	return []string{
		l.Path(l.Index),
		l.Path(l.ErrorLog),
		l.Path(l.Coupled),
		l.Path(l.Monitored),
		l.Path(l.Counts),
	}
}

// FS returns the output directory as a filesystem for the archives
func (l Layout) FS() billy.Filesystem {
	return osfs.New(l.Dir)
}

// OpenIndex opens an existing index; it never creates one
func (l Layout) OpenIndex() (*SQLiteStorage, error) {
	path := l.Path(l.Index)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("index %s: %w", path, ErrNotFound)
		}
		return nil, err
	}
	return NewSQLiteStorage(path)
}
