package types

// DocumentSubentry is the number of the document-level subentry of every entry
const DocumentSubentry = "001"

// BlankPointer is the pointer used when a field line carries no pointer
const BlankPointer = " "

// EntryRecord represents one parsed EXFOR entry file
type EntryRecord struct {
	Accession  string
	Subentries []Subentry // Ordered; the first one is the document subentry
}

// Subentry represents a numbered sub-record of an entry
type Subentry struct {
	Number string // Three-character subentry number, e.g. "002"
	BIB    *BIB   // Nullable - subentries without a BIB section
}

// BIB holds the bibliographic fields the index cares about
type BIB struct {
	Reaction   *ReactionField // Nullable
	Monitor    *ReactionField // Nullable
	Authors    []string       // Family names, in order
	Institutes []string

	HasAuthor    bool
	HasInstitute bool
}

// Document returns the document subentry, or nil when the record has none
func (e *EntryRecord) Document() *Subentry {
	if len(e.Subentries) == 0 {
		return nil
	}
	return &e.Subentries[0]
}

// DataSubentries returns every subentry after the document subentry
func (e *EntryRecord) DataSubentries() []Subentry {
	if len(e.Subentries) < 2 {
		return nil
	}
	return e.Subentries[1:]
}

// ReactionField is a REACTION or MONITOR field keyed by pointer
type ReactionField struct {
	Pointers     []string // Pointers in order of first appearance
	Measurements map[string][]Measurement
}

// NewReactionField creates an empty field
func NewReactionField() *ReactionField {
	return &ReactionField{Measurements: make(map[string][]Measurement)}
}

// Add appends a measurement under the given pointer
func (f *ReactionField) Add(pointer string, m Measurement) {
	if _, ok := f.Measurements[pointer]; !ok {
		f.Pointers = append(f.Pointers, pointer)
	}
	f.Measurements[pointer] = append(f.Measurements[pointer], m)
}

// Has reports whether the field defines the pointer
func (f *ReactionField) Has(pointer string) bool {
	if f == nil {
		return false
	}
	_, ok := f.Measurements[pointer]
	return ok
}

// Empty reports whether the field has no pointers at all
func (f *ReactionField) Empty() bool {
	return f == nil || len(f.Pointers) == 0
}
