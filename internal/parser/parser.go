package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	billy "github.com/go-git/go-billy/v5"

	"github.com/dshills/exfor-index/pkg/types"
)

// Record layout of an EXFOR line (0-based, end exclusive)
const (
	keywordEnd = 10 // cols 1-10
	pointerCol = 10 // col 11
	textEnd    = 66 // cols 12-66

	accessionStart = 17 // ENTRY cols 18-22
	accessionEnd   = 22
	subentryStart  = 14 // SUBENT cols 15-22
	subentryEnd    = 22
)

// Parser reads entry files from a filesystem rooted at the database root
type Parser struct {
	fs     billy.Filesystem
	logger *slog.Logger
}

// New creates a Parser over fs
func New(fs billy.Filesystem) *Parser {
	return &Parser{fs: fs, logger: slog.Default()}
}

// SetLogger sets the logger used for per-entry debug output
func (p *Parser) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// ParseEntry reads and parses the entry file at path.
// Malformed content is reported as a *types.EntryError carrying path.
func (p *Parser) ParseEntry(entryID, path string) (*types.EntryRecord, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open entry: %w", err)
	}
	defer f.Close()

	rec, err := Parse(f, entryID, path)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("parsed entry",
		slog.String("entry", rec.Accession),
		slog.Int("subentries", len(rec.Subentries)))

	return rec, nil
}

// Parse parses one entry from r. entryID, when not empty, must match the
// accession number on the ENTRY record.
func Parse(r io.Reader, entryID, path string) (*types.EntryRecord, error) {
	ep := &entryParser{expectID: entryID}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 128), 1024*1024)
	for scanner.Scan() {
		ep.lineNum++
		if err := ep.feed(splitLine(scanner.Text())); err != nil {
			return nil, withPath(err, path, ep.lineNum)
		}
		if ep.done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entry: %w", err)
	}

	rec, err := ep.finish()
	if err != nil {
		return nil, withPath(err, path, ep.lineNum)
	}
	return rec, nil
}

// line is one record split into its fixed columns
type line struct {
	keyword string
	pointer string
	text    string
	raw     string
}

func splitLine(raw string) line {
	raw = strings.TrimRight(raw, " \r")
	return line{
		keyword: strings.TrimSpace(column(raw, 0, keywordEnd)),
		pointer: column(raw, pointerCol, pointerCol+1),
		text:    strings.TrimRight(column(raw, pointerCol+1, textEnd), " "),
		raw:     raw,
	}
}

// column returns s[from:to] clipped to the length of s
func column(s string, from, to int) string {
	if from >= len(s) {
		return ""
	}
	if to > len(s) {
		to = len(s)
	}
	return s[from:to]
}

// field is one BIB keyword together with its continuation lines
type field struct {
	keyword string
	lines   []line
}

// entryParser is the line-driven state of one Parse call
type entryParser struct {
	expectID string
	lineNum  int

	rec     *types.EntryRecord
	current *types.Subentry
	inBIB   bool
	fields  []field
	done    bool
}

func (ep *entryParser) feed(l line) error {
	if l.raw == "" {
		return nil
	}

	if ep.rec == nil {
		if l.keyword != "ENTRY" {
			return structureError("expected ENTRY record, found %q", l.keyword)
		}
		return ep.startEntry(l)
	}

	if ep.inBIB {
		switch l.keyword {
		case "ENDBIB":
			ep.inBIB = false
			return ep.closeBIB()
		case "":
			if len(ep.fields) == 0 {
				return structureError("continuation line before any BIB keyword")
			}
			last := &ep.fields[len(ep.fields)-1]
			last.lines = append(last.lines, l)
		default:
			ep.fields = append(ep.fields, field{keyword: l.keyword, lines: []line{l}})
		}
		return nil
	}

	switch l.keyword {
	case "SUBENT":
		return ep.startSubentry(l)
	case "BIB":
		if ep.current == nil {
			return structureError("BIB outside of a subentry")
		}
		ep.inBIB = true
		ep.fields = ep.fields[:0]
	case "ENDSUBENT":
		ep.current = nil
	case "ENDENTRY":
		ep.done = true
	}
	// NOSUBENT, NOBIB, COMMON and DATA sections carry nothing we index
	return nil
}

func (ep *entryParser) startEntry(l line) error {
	accession := strings.TrimSpace(column(l.raw, accessionStart, accessionEnd))
	if accession == "" {
		return structureError("ENTRY record without accession number")
	}
	if ep.expectID != "" && !strings.EqualFold(accession, ep.expectID) {
		return structureError("accession %s does not match entry %s", accession, ep.expectID)
	}
	ep.rec = &types.EntryRecord{Accession: accession}
	return nil
}

func (ep *entryParser) startSubentry(l line) error {
	code := strings.TrimSpace(column(l.raw, subentryStart, subentryEnd))
	if len(code) < 4 {
		return structureError("SUBENT record with short number %q", code)
	}
	if !strings.EqualFold(code[:len(code)-3], ep.rec.Accession) {
		return structureError("subentry %s does not belong to entry %s", code, ep.rec.Accession)
	}
	number := code[len(code)-3:]
	if !isDigits(number) {
		return numberError("subentry number %q is not numeric", number)
	}

	ep.rec.Subentries = append(ep.rec.Subentries, types.Subentry{Number: number})
	ep.current = &ep.rec.Subentries[len(ep.rec.Subentries)-1]
	return nil
}

func (ep *entryParser) closeBIB() error {
	bib := &types.BIB{}
	for _, f := range ep.fields {
		var err error
		switch f.keyword {
		case "REACTION":
			bib.Reaction, err = parseReactionField(f.lines, false)
		case "MONITOR":
			bib.Monitor, err = parseReactionField(f.lines, true)
		case "AUTHOR":
			bib.HasAuthor = true
			bib.Authors, err = parseAuthors(f.lines)
		case "INSTITUTE":
			bib.HasInstitute = true
			bib.Institutes, err = parseInstitutes(f.lines)
		case "REFERENCE":
			err = checkReferences(f.lines)
		}
		if err != nil {
			return err
		}
	}
	ep.current.BIB = bib
	return nil
}

func (ep *entryParser) finish() (*types.EntryRecord, error) {
	if ep.rec == nil {
		return nil, structureError("no ENTRY record")
	}
	if ep.inBIB {
		return nil, structureError("BIB section without ENDBIB")
	}
	if len(ep.rec.Subentries) == 0 || ep.rec.Subentries[0].Number != types.DocumentSubentry {
		return nil, structureError("missing document subentry %s", types.DocumentSubentry)
	}
	return ep.rec, nil
}

// withPath fills in the file path of an entry error
func withPath(err error, path string, lineNum int) error {
	var entryErr *types.EntryError
	if errors.As(err, &entryErr) && entryErr.Path == "" {
		entryErr.Path = path
		entryErr.Message = fmt.Sprintf("line %d: %s", lineNum, entryErr.Message)
	}
	return err
}

func structureError(format string, args ...any) error {
	return types.NewEntryError(types.EntryStructureError, "", format, args...)
}

func numberError(format string, args ...any) error {
	return types.NewEntryError(types.BrokenNumberError, "", format, args...)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
