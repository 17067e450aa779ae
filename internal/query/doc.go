// Package query answers questions about a built EXFOR index.
//
// A Service combines the SQLite index with the JSON archives written next to it:
//
//	store, err := layout.OpenIndex()
//	if err != nil {
//	    return err
//	}
//	svc := query.NewService(store, layout.FS(), layout)
//
//	// Rows of theworks
//	resp, err := svc.Search(ctx, query.SearchRequest{
//	    Filter:   storage.RowFilter{Target: "FE-56", Quantity: "SIG"},
//	    UseCache: true,
//	})
//
//	// Entries sharing a reaction with 12345, from the reaction bitmaps
//	related, err := svc.RelatedEntries(ctx, "12345")
//
//	// JSONPath over an archive
//	paths, err := svc.ArchiveQuery(query.ArchiveErrors, "$[?(@.kind == 'AuthorParsingError')].path")
//
// # Caching
//
// Search results are kept in an LRU cache keyed by a SHA-256 of the filter and
// limit. Entries expire after CacheTTL (default one hour); copies are returned so
// callers cannot modify cached rows. The index is immutable once built, so the
// cache is only cleared explicitly (ClearCache).
package query
