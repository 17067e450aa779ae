// Package types provides shared type definitions for the EXFOR index builder.
//
// This package defines domain types used across multiple components, including
// parsed entry records, reactions, simplified reaction keys, index rows and the
// per-file error classification.
//
// # Entry Records
//
// EntryRecord is the structured form of one EXFOR entry file as produced by the
// parser. Subentry 001 is the document record; its BIB section supplies the
// fallback REACTION, MONITOR and AUTHOR fields for the data subentries:
//
//	rec := &types.EntryRecord{
//	    Accession: "12345",
//	    Subentries: []types.Subentry{
//	        {Number: "001", BIB: &types.BIB{Authors: []string{"Smith"}}},
//	        {Number: "002", BIB: &types.BIB{Reaction: field}},
//	    },
//	}
//
// # Measurements
//
// A REACTION or MONITOR pointer resolves to a Measurement, a closed variant with
// four cases (single reaction, reaction combination, isomer combination, absent).
// Callers switch on Measurement.Kind instead of inspecting concrete types:
//
//	switch m.Kind {
//	case types.MeasurementSingle, types.MeasurementCombination, types.MeasurementIsomerCombination:
//	    use(m.Reactions)
//	case types.MeasurementAbsent:
//	    // skipped
//	default:
//	    return types.NewEntryError(types.EntryStructureError, path, "unexpected measurement")
//	}
//
// # Reaction Keys
//
// ReactionKey is the identity of a measured observable, for example
// {Equation: "FE-56(N,P)", Quantity: "SIG"}. It is the key for reaction counts
// and the element type of the coupled and monitored cross-reference lists.
//
// # Error Kinds
//
// Per-file failures are data, not panics. EntryError carries an ErrorKind so that
// the error log and its report can group failures:
//
//	var entryErr *types.EntryError
//	if errors.As(err, &entryErr) && entryErr.Kind == types.ReactionParsingError {
//	    ...
//	}
package types
