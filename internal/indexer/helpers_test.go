package indexer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dshills/exfor-index/pkg/types"
)

// fakeParser serves prepared records keyed by path
type fakeParser struct {
	records map[string]*types.EntryRecord
	errs    map[string]error
	panics  map[string]bool
}

func newFakeParser() *fakeParser {
	return &fakeParser{
		records: make(map[string]*types.EntryRecord),
		errs:    make(map[string]error),
		panics:  make(map[string]bool),
	}
}

func (f *fakeParser) ParseEntry(entryID, path string) (*types.EntryRecord, error) {
	if f.panics[path] {
		panic("corrupt entry " + entryID)
	}
	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	rec, ok := f.records[path]
	if !ok {
		return nil, fmt.Errorf("no record for %s", path)
	}
	return rec, nil
}

func reaction(target, projectile, products, residual string, quantity ...string) types.Reaction {
	return types.Reaction{
		Projectile: projectile,
		Target:     target,
		Products:   strings.Split(products, "+"),
		Residual:   residual,
		Quantity:   quantity,
	}
}

func single(r types.Reaction) types.Measurement {
	return types.Measurement{Kind: types.MeasurementSingle, Reactions: []types.Reaction{r}}
}

func combination(rs ...types.Reaction) types.Measurement {
	return types.Measurement{Kind: types.MeasurementCombination, Reactions: rs}
}

func field(pointer string, ms ...types.Measurement) *types.ReactionField {
	rf := types.NewReactionField()
	for _, m := range ms {
		rf.Add(pointer, m)
	}
	return rf
}

func document(authors ...string) types.Subentry {
	return types.Subentry{
		Number: types.DocumentSubentry,
		BIB:    &types.BIB{Authors: authors, HasAuthor: len(authors) > 0},
	}
}

func dataSubentry(number string, rxn, mon *types.ReactionField) types.Subentry {
	return types.Subentry{Number: number, BIB: &types.BIB{Reaction: rxn, Monitor: mon}}
}

func record(accession string, subentries ...types.Subentry) *types.EntryRecord {
	return &types.EntryRecord{Accession: accession, Subentries: subentries}
}

// entryText lays out an entry with the fixed EXFOR columns. Each subentry is
// given as BIB lines of the form "KEYWORD|P|text".
func entryText(accession string, subentries ...[]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-17s%-5s\n", "ENTRY", accession)
	for i, bib := range subentries {
		fmt.Fprintf(&b, "%-14s%s%03d\n", "SUBENT", accession, i+1)
		if bib != nil {
			fmt.Fprintf(&b, "%-10s%11d\n", "BIB", len(bib))
			for _, l := range bib {
				parts := strings.SplitN(l, "|", 3)
				fmt.Fprintf(&b, "%-10s%1s%s\n", parts[0], parts[1], parts[2])
			}
			fmt.Fprintf(&b, "%-10s%11d\n", "ENDBIB", len(bib))
		}
		fmt.Fprintf(&b, "%-10s\n", "ENDSUBENT")
	}
	fmt.Fprintf(&b, "%-10s\n", "ENDENTRY")
	return b.String()
}

// memPersister keeps what it is asked to persist
type memPersister struct {
	outputs []string

	mu      sync.Mutex
	calls   int
	data    *types.IndexData
	summary *types.BuildSummary

	entered chan struct{} // Closed when Persist is entered, if set
	release chan struct{} // Persist waits on it, if set
}

func (p *memPersister) Outputs() []string { return p.outputs }

func (p *memPersister) Persist(ctx context.Context, data *types.IndexData, summary *types.BuildSummary) error {
	if p.entered != nil {
		close(p.entered)
	}
	if p.release != nil {
		<-p.release
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.data = data
	p.summary = summary
	return nil
}
