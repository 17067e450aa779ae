package types

import "fmt"

// MeasurementKind tags the Measurement variant
type MeasurementKind int

const (
	MeasurementInvalid MeasurementKind = iota
	MeasurementSingle
	MeasurementCombination
	MeasurementIsomerCombination
	MeasurementAbsent
)

// String returns the variant name
func (k MeasurementKind) String() string {
	switch k {
	case MeasurementSingle:
		return "single"
	case MeasurementCombination:
		return "combination"
	case MeasurementIsomerCombination:
		return "isomer_combination"
	case MeasurementAbsent:
		return "absent"
	default:
		return fmt.Sprintf("invalid(%d)", int(k))
	}
}

// Measurement is what a REACTION or MONITOR pointer resolves to
type Measurement struct {
	Kind       MeasurementKind
	Reactions  []Reaction // Constituents; exactly one for MeasurementSingle
	Expression string     // Raw code text, without the outer parentheses
}

// Quantity returns the quantity list of the first constituent reaction
func (m Measurement) Quantity() []string {
	if len(m.Reactions) == 0 {
		return nil
	}
	return m.Reactions[0].Quantity
}

// Reaction is one simple nuclear reaction as coded in EXFOR
type Reaction struct {
	Projectile string   // SF2, e.g. "N"
	Target     string   // SF1, e.g. "26-FE-56"
	Products   []string // SF3 split on "+", e.g. ["P"]
	Residual   string   // SF4, e.g. "25-MN-56" or "27-CO-60-M"
	Quantity   []string // Non-empty codes of SF5..SF8, e.g. ["CUM", "FY"]
}

// ReactionKey identifies a measured observable across entries
type ReactionKey struct {
	Equation string `json:"equation"` // e.g. "AL-27(N,A)" or "CO-59(N,G)27-CO-60-M"
	Quantity string `json:"quantity"` // Canonical quantity, e.g. "SIG"
}

// String renders the key as "equation|quantity"
func (k ReactionKey) String() string {
	return k.Equation + "|" + k.Quantity
}

// Less orders keys by equation, then quantity
func (k ReactionKey) Less(o ReactionKey) bool {
	if k.Equation != o.Equation {
		return k.Equation < o.Equation
	}
	return k.Quantity < o.Quantity
}

// SimpleReaction is the canonical, simplified form of a Reaction
type SimpleReaction struct {
	Projectile string
	Target     string // Target without its charge number, e.g. "FE-56"
	Product    string // Products joined by "+"
	Text       string // Upper-cased "projectile,products"
	Quantity   string
	Key        ReactionKey
}

// EntryKey identifies one pointer of one subentry of one entry
type EntryKey struct {
	Accession string `json:"entry"`
	Subentry  string `json:"subentry"`
	Pointer   string `json:"pointer"`
}

// String renders the key as "accession.subentry[pointer]"
func (k EntryKey) String() string {
	return fmt.Sprintf("%s.%s[%s]", k.Accession, k.Subentry, k.Pointer)
}

// Less orders keys by accession, subentry, then pointer
func (k EntryKey) Less(o EntryKey) bool {
	if k.Accession != o.Accession {
		return k.Accession < o.Accession
	}
	if k.Subentry != o.Subentry {
		return k.Subentry < o.Subentry
	}
	return k.Pointer < o.Pointer
}
