// Package doi loads the IAEA DOI cross reference file into the index.
//
// Each line of the file is fixed width:
//
//	columns  0-32  reference, prefixed "$REF="
//	columns 32-46  entry number, prefixed "$ENTRY="
//	columns 46-61  NSR key, prefixed "$NSR="
//	columns 61-    DOI, prefixed "$DOI="
package doi

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dshills/exfor-index/internal/storage"
)

const (
	refEnd   = 32
	entryEnd = 46
	nsrEnd   = 61
)

// Store receives the parsed records
type Store interface {
	ReplaceDOIs(ctx context.Context, records []storage.DOIRecord) error
}

// ParseFile reads DOI records from r. Blank lines are skipped.
func ParseFile(r io.Reader) ([]storage.DOIRecord, error) {
	var records []storage.DOIRecord

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, parseLine(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read DOI file: %w", err)
	}
	return records, nil
}

func parseLine(line string) storage.DOIRecord {
	return storage.DOIRecord{
		Reference: field(line, 0, refEnd, "$REF="),
		Entry:     field(line, refEnd, entryEnd, "$ENTRY="),
		NSR:       field(line, entryEnd, nsrEnd, "$NSR="),
		DOI:       field(line, nsrEnd, len(line), "$DOI="),
	}
}

// field returns line[from:to], clipped to the line, trimmed and without prefix
func field(line string, from, to int, prefix string) string {
	if from >= len(line) {
		return ""
	}
	to = min(to, len(line))
	return strings.ReplaceAll(strings.TrimSpace(line[from:to]), prefix, "")
}

// Load parses the DOI file at path and replaces the DOI table of store with it.
// It returns the number of records loaded.
func Load(ctx context.Context, store Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("DOI file: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := ParseFile(f)
	if err != nil {
		return 0, err
	}
	if err := store.ReplaceDOIs(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to store DOI records: %w", err)
	}
	return len(records), nil
}
