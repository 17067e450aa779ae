// Package parser reads EXFOR entry files into structured entry records.
//
// Only the parts of an entry that the index needs are interpreted: the
// ENTRY and SUBENT record numbers and, inside each BIB section, the
// REACTION, MONITOR, AUTHOR, INSTITUTE and REFERENCE keywords. COMMON and
// DATA sections are skipped.
//
// # Basic Usage
//
//	p := parser.New(osfs.New("/data/X4-2024/db"))
//	rec, err := p.ParseEntry("12345", "123/12345.x4")
//	if err != nil {
//	    var entryErr *types.EntryError
//	    if errors.As(err, &entryErr) {
//	        fmt.Println(entryErr.Kind) // e.g. ReactionParsingError
//	    }
//	}
//
// # Record Layout
//
// Every line is read with the fixed EXFOR columns:
//
//	cols  1-10  keyword (blank on continuation lines)
//	col     11  pointer
//	cols 12-66  text
//
// The accession number is taken from columns 18-22 of the ENTRY record and
// the subentry number from the last three characters of columns 15-22 of the
// SUBENT record. The first subentry must be 001, the document subentry.
//
// # Reaction Codes
//
// A REACTION or MONITOR code has the form
//
//	SF1(SF2,SF3)SF4,SF5,SF6,SF7,SF8,SF9
//
// and resolves to one of the measurement variants in pkg/types:
//
//	(26-FE-56(N,P)25-MN-56,,SIG)                  single
//	((26-FE-54(N,P)25-MN-54,,SIG)/(13-AL-27(N,A)11-NA-24,,SIG))
//	                                              combination
//	(27-CO-59(N,G)27-CO-60-M+G,,SIG)              isomer combination
//	()                                            absent
//
// The quantity of a reaction is the list of non-empty SF5 to SF8 codes.
// Data headings in front of monitor codes, as in ((MONIT1)...), are dropped.
//
// # Errors
//
// Malformed content is returned as a *types.EntryError whose Kind names the
// failing part, and whose Message carries the line number.
package parser
