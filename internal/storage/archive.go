package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	billy "github.com/go-git/go-billy/v5"

	"github.com/dshills/exfor-index/pkg/types"
)

// EntryReactions is one record of the coupled or monitored archive
type EntryReactions struct {
	types.EntryKey
	Reactions []types.ReactionKey `json:"reactions"`
}

// ReactionCount is one record of the reaction count archive
type ReactionCount struct {
	types.ReactionKey
	Count int `json:"count"`
}

// WriteArchives writes the coupled, monitored, count and error archives named by
// layout into fs. Records are sorted by key and each file is replaced atomically.
func WriteArchives(fs billy.Filesystem, layout Layout, data *types.IndexData) error {
	staged, err := stageArchives(fs, layout, data)
	if err != nil {
		return err
	}
	return commitStaged(fs, staged)
}

// stagedFile is an output written under a temporary name, waiting to be
// renamed to final
type stagedFile struct {
	tmp   string
	final string
}

// stageArchives writes every archive under a temporary name next to its final one
func stageArchives(fs billy.Filesystem, layout Layout, data *types.IndexData) ([]stagedFile, error) {
	archives := []struct {
		name string
		v    any
	}{
		{layout.Coupled, entryRecords(data.Coupled)},
		{layout.Monitored, entryRecords(data.Monitored)},
		{layout.Counts, countRecords(data.Counts)},
		{layout.ErrorLog, errorRecords(data.Errors)},
	}

	staged := make([]stagedFile, 0, len(archives))
	for _, a := range archives {
		f, err := stageJSON(fs, a.name, a.v)
		if err != nil {
			discardStaged(fs, staged)
			return nil, err
		}
		staged = append(staged, f)
	}
	return staged, nil
}

// commitStaged renames every staged file into place. It does not stop early
// for cancellation: once the first rename happens the rest follow.
func commitStaged(fs billy.Filesystem, staged []stagedFile) error {
	for i, f := range staged {
		if err := fs.Rename(f.tmp, f.final); err != nil {
			discardStaged(fs, staged[i:])
			return fmt.Errorf("failed to move %s into place: %w", f.final, err)
		}
	}
	return nil
}

func discardStaged(fs billy.Filesystem, staged []stagedFile) {
	for _, f := range staged {
		_ = fs.Remove(f.tmp)
	}
}

func entryRecords(m map[types.EntryKey][]types.ReactionKey) []EntryReactions {
	records := make([]EntryReactions, 0, len(m))
	for k, v := range m {
		records = append(records, EntryReactions{EntryKey: k, Reactions: v})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].EntryKey.Less(records[j].EntryKey)
	})
	return records
}

func countRecords(m map[types.ReactionKey]int) []ReactionCount {
	records := make([]ReactionCount, 0, len(m))
	for k, n := range m {
		records = append(records, ReactionCount{ReactionKey: k, Count: n})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ReactionKey.Less(records[j].ReactionKey)
	})
	return records
}

func errorRecords(m map[string]types.ErrorRecord) []types.ErrorRecord {
	records := make([]types.ErrorRecord, 0, len(m))
	for _, rec := range m {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Path < records[j].Path
	})
	return records
}

// stageJSON writes v to a temporary file next to name
func stageJSON(fs billy.Filesystem, name string, v any) (staged stagedFile, err error) {
	tmp, err := fs.TempFile(filepath.Dir(name), "."+filepath.Base(name)+"-")
	if err != nil {
		return stagedFile{}, fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	defer func() {
		if err != nil {
			_ = fs.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		return stagedFile{}, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return stagedFile{}, fmt.Errorf("failed to close %s: %w", name, err)
	}
	return stagedFile{tmp: tmp.Name(), final: name}, nil
}

func readJSON(fs billy.Filesystem, name string, v any) error {
	f, err := fs.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read archive %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode archive %s: %w", name, err)
	}
	return nil
}

func loadEntryReactions(fs billy.Filesystem, name string) (map[types.EntryKey][]types.ReactionKey, error) {
	var records []EntryReactions
	if err := readJSON(fs, name, &records); err != nil {
		return nil, err
	}

	m := make(map[types.EntryKey][]types.ReactionKey, len(records))
	for _, r := range records {
		m[r.EntryKey] = r.Reactions
	}
	return m, nil
}

// LoadCoupled reads the coupled-reaction archive
func LoadCoupled(fs billy.Filesystem, layout Layout) (map[types.EntryKey][]types.ReactionKey, error) {
	return loadEntryReactions(fs, layout.Coupled)
}

// LoadMonitored reads the monitored-reaction archive
func LoadMonitored(fs billy.Filesystem, layout Layout) (map[types.EntryKey][]types.ReactionKey, error) {
	return loadEntryReactions(fs, layout.Monitored)
}

// LoadCounts reads the reaction count archive
func LoadCounts(fs billy.Filesystem, layout Layout) (map[types.ReactionKey]int, error) {
	var records []ReactionCount
	if err := readJSON(fs, layout.Counts, &records); err != nil {
		return nil, err
	}

	m := make(map[types.ReactionKey]int, len(records))
	for _, r := range records {
		m[r.ReactionKey] = r.Count
	}
	return m, nil
}

// LoadErrors reads the error log, ordered by entry path
func LoadErrors(fs billy.Filesystem, layout Layout) ([]types.ErrorRecord, error) {
	var records []types.ErrorRecord
	if err := readJSON(fs, layout.ErrorLog, &records); err != nil {
		return nil, err
	}
	return records, nil
}
