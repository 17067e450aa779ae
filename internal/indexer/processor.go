package indexer

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dshills/exfor-index/internal/normalizer"
	"github.com/dshills/exfor-index/pkg/types"
)

// EntryParser produces the structured record of one entry file
type EntryParser interface {
	ParseEntry(entryID, path string) (*types.EntryRecord, error)
}

// Processor turns one entry file into its index contribution
type Processor struct {
	parser EntryParser
	logger *slog.Logger
}

// NewProcessor creates a Processor using parser
func NewProcessor(parser EntryParser, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{parser: parser, logger: logger}
}

// EntryID returns the entry id of a file: its base name without extension
func EntryID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Process parses the file at path and returns everything it contributes.
// A file either contributes completely or not at all: on error the
// returned data is nil. Panics are reported as UnexpectedError.
func (p *Processor) Process(path string) (data *types.IndexData, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = types.NewEntryError(types.UnexpectedError, path, "panic while processing entry: %v", r)
		}
	}()

	rec, err := p.parser.ParseEntry(EntryID(path), path)
	if err != nil {
		return nil, err
	}

	data = types.NewIndexData()
	if err := p.processEntry(rec, path, data); err != nil {
		return nil, err
	}
	data.Files = 1
	return data, nil
}

func (p *Processor) processEntry(rec *types.EntryRecord, path string, data *types.IndexData) error {
	doc := rec.Document()
	if doc == nil {
		return types.NewEntryError(types.EntryStructureError, path, "entry %s has no document subentry", rec.Accession)
	}

	var (
		authors     []string
		institutes  []string
		docReaction *types.ReactionField
		docMonitor  *types.ReactionField
	)
	if doc.BIB != nil {
		authors = doc.BIB.Authors
		institutes = doc.BIB.Institutes
		docReaction = doc.BIB.Reaction
		docMonitor = doc.BIB.Monitor
	}

	p.logger.Debug("processing entry",
		slog.String("entry", rec.Accession),
		slog.Int("authors", len(authors)),
		slog.Int("institutes", len(institutes)))
	if doc.BIB == nil || !doc.BIB.HasAuthor {
		// Without authors no rows are written; the reactions still count
		p.logger.Debug("entry has no AUTHOR field", slog.String("entry", rec.Accession))
	}
	if doc.BIB != nil && !doc.BIB.HasInstitute {
		p.logger.Debug("entry has no INSTITUTE field", slog.String("entry", rec.Accession))
	}

	for _, sub := range rec.DataSubentries() {
		reaction, monitor := docReaction, docMonitor
		if sub.BIB != nil {
			if sub.BIB.Reaction != nil {
				reaction = sub.BIB.Reaction
			}
			if sub.BIB.Monitor != nil {
				monitor = sub.BIB.Monitor
			}
		}
		if reaction.Empty() {
			continue
		}

		for _, pointer := range reaction.Pointers {
			key := types.EntryKey{Accession: rec.Accession, Subentry: sub.Number, Pointer: pointer}
			if err := p.processPointer(key, path, reaction, monitor, authors, data); err != nil {
				return err
			}
		}
	}
	return nil
}

// processPointer records one REACTION pointer and its monitors
func (p *Processor) processPointer(key types.EntryKey, path string, reaction, monitor *types.ReactionField,
	authors []string, data *types.IndexData) error {

	measurements := reaction.Measurements[key.Pointer]
	if len(measurements) == 0 {
		return types.NewEntryError(types.EntryStructureError, path, "%s has no reaction", key)
	}
	primary := measurements[0]
	if !isReaction(primary.Kind) {
		return types.NewEntryError(types.EntryStructureError, path, "%s resolves to %s", key, primary.Kind)
	}

	isCombo := len(primary.Reactions) > 1
	isMonitored := monitor.Has(key.Pointer)

	if isMonitored {
		for _, m := range monitor.Measurements[key.Pointer] {
			if m.Kind == types.MeasurementAbsent {
				continue
			}
			if !isReaction(m.Kind) {
				return types.NewEntryError(types.EntryStructureError, path, "monitor of %s resolves to %s", key, m.Kind)
			}
			for _, mon := range m.Reactions {
				// An unspecified monitor quantity is the quantity of the reaction
				if len(mon.Quantity) == 0 {
					mon.Quantity = primary.Quantity()
				}
				sr := normalizer.Normalize(mon)
				data.Monitored[key] = append(data.Monitored[key], sr.Key)
				data.Counts[sr.Key]++

				p.logger.Debug("monitor", slog.String("pointer", key.String()), slog.String("reaction", sr.Key.String()))
			}
		}
	}

	for _, sr := range normalizer.NormalizeAll(primary.Reactions) {
		for _, author := range authors {
			data.Rows = append(data.Rows, types.Row{
				Entry:       key.Accession,
				Subentry:    key.Subentry,
				Pointer:     key.Pointer,
				Author:      author,
				Reaction:    sr.Text,
				Projectile:  sr.Projectile,
				Target:      sr.Target,
				Quantity:    sr.Quantity,
				Combination: isCombo,
				Monitored:   isMonitored,
			})
		}
		data.Counts[sr.Key]++

		if isCombo {
			data.Coupled[key] = append(data.Coupled[key], sr.Key)
		}
		if isMonitored {
			data.Monitored[key] = append(data.Monitored[key], sr.Key)
		}

		p.logger.Debug("reaction",
			slog.String("pointer", key.String()),
			slog.String("reaction", sr.Key.String()),
			slog.Bool("combination", isCombo))
	}
	return nil
}

func isReaction(kind types.MeasurementKind) bool {
	switch kind {
	case types.MeasurementSingle, types.MeasurementCombination, types.MeasurementIsomerCombination:
		return true
	default:
		return false
	}
}
