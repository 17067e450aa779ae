package types

import "time"

// IndexData holds what a set of entry files contributes to the index:
// the three cross-reference tables, the error log and the table rows.
// One value is built per file, per chunk and, after merging, per build.
type IndexData struct {
	Coupled   map[EntryKey][]ReactionKey // Pointers resolving to more than one reaction
	Monitored map[EntryKey][]ReactionKey // Pointers with a monitor
	Counts    map[ReactionKey]int
	Errors    map[string]ErrorRecord // Keyed by entry file path
	Rows      []Row

	Files int // Entry files processed, including failed ones
}

// NewIndexData creates an empty IndexData
func NewIndexData() *IndexData {
	return &IndexData{
		Coupled:   make(map[EntryKey][]ReactionKey),
		Monitored: make(map[EntryKey][]ReactionKey),
		Counts:    make(map[ReactionKey]int),
		Errors:    make(map[string]ErrorRecord),
	}
}

// TotalCount returns the sum of all reaction counts
func (d *IndexData) TotalCount() int {
	total := 0
	for _, n := range d.Counts {
		total += n
	}
	return total
}

// BuildSummary reports the totals of one build
type BuildSummary struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Workers   int           `json:"workers"`
	Chunks    int           `json:"chunks"`

	Files     int `json:"files"`
	Coupled   int `json:"coupled"`
	Monitored int `json:"monitored"`
	Reactions int `json:"reactions"` // Distinct reaction keys
	Rows      int `json:"rows"`
	Errors    int `json:"errors"`

	ErrorsByKind map[ErrorKind]int `json:"errors_by_kind,omitempty"`
}

// Summarize fills the totals of s from d
func (s *BuildSummary) Summarize(d *IndexData) {
	s.Files = d.Files
	s.Coupled = len(d.Coupled)
	s.Monitored = len(d.Monitored)
	s.Reactions = len(d.Counts)
	s.Rows = len(d.Rows)
	s.Errors = len(d.Errors)

	s.ErrorsByKind = make(map[ErrorKind]int)
	for _, rec := range d.Errors {
		s.ErrorsByKind[rec.Kind]++
	}
}
