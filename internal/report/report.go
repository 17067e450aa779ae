// Package report renders the error log and build summaries for people:
// a grouped terminal view, a CSV export and a totals table.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dshills/exfor-index/pkg/types"
)

// ExampleWidth is the longest message shown in the terminal view
const ExampleWidth = 70

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#20B9B4"))
	kindStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16858E"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Group is every failed entry of one error kind
type Group struct {
	Kind    types.ErrorKind
	Records []types.ErrorRecord
}

// GroupErrors groups records by kind. Known kinds come in types.ErrorKinds
// order, unknown ones after them by name; records are ordered by path.
func GroupErrors(records []types.ErrorRecord) []Group {
	byKind := make(map[types.ErrorKind][]types.ErrorRecord)
	for _, rec := range records {
		byKind[rec.Kind] = append(byKind[rec.Kind], rec)
	}

	rank := make(map[types.ErrorKind]int, len(types.ErrorKinds))
	for i, k := range types.ErrorKinds {
		rank[k] = i
	}

	groups := make([]Group, 0, len(byKind))
	for kind, recs := range byKind {
		sort.Slice(recs, func(i, j int) bool { return recs[i].Path < recs[j].Path })
		groups = append(groups, Group{Kind: kind, Records: recs})
	}
	sort.Slice(groups, func(i, j int) bool {
		ri, iKnown := rank[groups[i].Kind]
		rj, jKnown := rank[groups[j].Kind]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		default:
			return groups[i].Kind < groups[j].Kind
		}
	})
	return groups
}

// EntryName returns the entry shown for an error log path: the path without
// its extension, whatever extension the build scanned for
func EntryName(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return s[:width] + "..."
}

// View writes the grouped error table. Kind and count appear on the first row of each group.
func View(w io.Writer, groups []Group) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("Error", "Num.", "Example", "Entry").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle.Padding(0, 1)
			case col == 0:
				return kindStyle.Padding(0, 1)
			default:
				return cellStyle
			}
		})

	for _, g := range groups {
		for i, rec := range g.Records {
			kind, count := "", ""
			if i == 0 {
				kind, count = string(g.Kind), strconv.Itoa(len(g.Records))
			}
			t.Row(kind, count, truncate(rec.Message, ExampleWidth), EntryName(rec.Path))
		}
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// ExportCSV writes the full error report. Kind and count appear on the first row of each group.
func ExportCSV(w io.Writer, groups []Group) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Error", "Number Occurances", "Entry", "Full Message"}); err != nil {
		return err
	}

	for _, g := range groups {
		for i, rec := range g.Records {
			kind, count := " ", " "
			if i == 0 {
				kind, count = string(g.Kind), strconv.Itoa(len(g.Records))
			}
			if err := cw.Write([]string{kind, count, EntryName(rec.Path), rec.Message}); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// Summary writes the totals of a build
func Summary(w io.Writer, s *types.BuildSummary) error {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})

	t.Row("Run", s.RunID)
	t.Row("Duration", s.Duration.Round(time.Millisecond).String())
	t.Row("Workers", strconv.Itoa(s.Workers))
	t.Row("Chunks", strconv.Itoa(s.Chunks))
	t.Row("Entry files", strconv.Itoa(s.Files))
	t.Row("Reactions", strconv.Itoa(s.Reactions))
	t.Row("Coupled pointers", strconv.Itoa(s.Coupled))
	t.Row("Monitored pointers", strconv.Itoa(s.Monitored))
	t.Row("Index rows", strconv.Itoa(s.Rows))
	t.Row("Failed entries", strconv.Itoa(s.Errors))

	for _, kind := range types.ErrorKinds {
		if n := s.ErrorsByKind[kind]; n > 0 {
			t.Row("  "+string(kind), strconv.Itoa(n))
		}
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
