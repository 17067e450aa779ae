// Package unpack splits an EXFOR master archive into one file per entry.
//
// A master archive is a zip holding a single backup (.bck) file with every
// entry of the library. Each ENTRY..ENDENTRY block is written to
// <first three chars>/<accession>.x4 below the database directory, which is
// the layout the index builder reads.
package unpack

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"
)

// PackageSize is the number of entries one writer goroutine handles at a time
const PackageSize = 30

var (
	// ErrNoBackup is returned when the archive has no backup member
	ErrNoBackup = errors.New("no .bck member in master archive")
)

const maxLineLength = 1 << 20

// Entry is one ENTRY..ENDENTRY block of a backup file
type Entry struct {
	Accession string
	Lines     []string
}

// Path returns where the entry is written below the database directory
func (e Entry) Path() string {
	return path.Join(e.Accession[:3], e.Accession+".x4")
}

// Unpacker writes the entries of master archives into a filesystem
type Unpacker struct {
	workers int
	logger  *slog.Logger
}

// New creates an Unpacker with the given writer concurrency
func New(workers int) *Unpacker {
	return &Unpacker{workers: max(1, workers), logger: slog.Default()}
}

// SetLogger sets the logger
func (u *Unpacker) SetLogger(logger *slog.Logger) {
	if logger != nil {
		u.logger = logger
	}
}

// Unpack extracts every entry of the master archive at zipPath into dest and
// returns the number of entry files written
func (u *Unpacker) Unpack(ctx context.Context, zipPath string, dest billy.Filesystem) (int, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open master archive: %w", err)
	}
	defer func() { _ = zr.Close() }()

	member, err := backupMember(zr.File)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", zipPath, err)
	}
	u.logger.Info("unpacking master archive",
		slog.String("archive", zipPath),
		slog.String("member", member.Name))

	rc, err := member.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", member.Name, err)
	}
	defer func() { _ = rc.Close() }()

	entries, err := SplitEntries(rc)
	if err != nil {
		return 0, err
	}
	return u.WriteEntries(ctx, entries, dest)
}

// backupMember picks the .bck member, or the only member of the archive
func backupMember(files []*zip.File) (*zip.File, error) {
	for _, f := range files {
		if strings.EqualFold(filepath.Ext(f.Name), ".bck") {
			return f, nil
		}
	}
	if len(files) == 1 {
		return files[0], nil
	}
	return nil, ErrNoBackup
}

// SplitEntries cuts a backup file into its entries. Lines outside an
// ENTRY..ENDENTRY block (request headers and trailers) are dropped.
func SplitEntries(r io.Reader) ([]Entry, error) {
	var (
		entries []Entry
		current *Entry
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimRight(scanner.Text(), "\r")
		keyword := keywordOf(line)

		switch {
		case keyword == "ENTRY":
			if current != nil {
				return nil, fmt.Errorf("line %d: ENTRY inside entry %s", n, current.Accession)
			}
			accession := accessionOf(line)
			if len(accession) < 3 {
				return nil, fmt.Errorf("line %d: malformed ENTRY line %q", n, line)
			}
			current = &Entry{Accession: accession}
		case current == nil:
			continue
		}

		current.Lines = append(current.Lines, line)
		if keyword == "ENDENTRY" {
			entries = append(entries, *current)
			current = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	if current != nil {
		return nil, fmt.Errorf("entry %s has no ENDENTRY", current.Accession)
	}
	return entries, nil
}

func keywordOf(line string) string {
	if len(line) > 10 {
		line = line[:10]
	}
	return strings.TrimSpace(line)
}

func accessionOf(line string) string {
	if len(line) < 17 {
		return ""
	}
	end := min(22, len(line))
	return strings.TrimSpace(line[17:end])
}

// WriteEntries writes entries into dest in packages of PackageSize, running up to
// the unpacker's worker count packages at once
func (u *Unpacker) WriteEntries(ctx context.Context, entries []Entry, dest billy.Filesystem) (int, error) {
	var written atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)

	for start := 0; start < len(entries); start += PackageSize {
		if gctx.Err() != nil {
			break
		}
		pkg := entries[start:min(start+PackageSize, len(entries))]

		g.Go(func() error {
			for _, e := range pkg {
				if err := gctx.Err(); err != nil {
					return err
				}
				content := strings.Join(e.Lines, "\n") + "\n"
				if err := util.WriteFile(dest, e.Path(), []byte(content), 0o644); err != nil {
					return fmt.Errorf("failed to write entry %s: %w", e.Accession, err)
				}
				written.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(written.Load()), err
	}
	if err := ctx.Err(); err != nil {
		return int(written.Load()), err
	}

	u.logger.Info("entries extracted", slog.Int64("files", written.Load()))
	return int(written.Load()), nil
}
