// Package storage persists a built EXFOR index and reads it back.
//
// An index directory holds five artifacts, named by a Layout:
//   - index.tbl: SQLite database with the theworks table, build metadata,
//     the DOI cross reference and per-reaction entry bitmaps
//   - coupled-entries.json: pointers whose reaction resolves to several reactions
//   - monitored-entries.json: pointers measured against a monitor
//   - reaction-count.json: number of pointers measuring each reaction
//   - error-entries.json: entry files that failed, with kind and message
//
// # Database Schema
//
// Tables:
//   - theworks: one row per (reaction, author) of every indexed pointer
//   - index_meta: run id, build time, schema version, JSON build summary
//   - doiXref: entry, NSR key, DOI and reference, loaded from the IAEA DOI file
//   - entry_ids: dense ids for entry numbers
//   - reaction_entries: roaring bitmap of entry ids for each "TARGET(REACTION)|QUANTITY"
//
// Schema changes are versioned migrations (see AllMigrations) applied on open.
//
// # Writing
//
// Writer implements the build's persistence step:
//
//	w := storage.NewWriter(storage.DefaultLayout("out"))
//	if err := w.Persist(ctx, merged, summary); err != nil {
//	    return err
//	}
//
// The index is built under a temporary name and renamed into place once
// closed; each archive is written the same way, so a failed or cancelled
// build never leaves a partial file behind.
//
// # Reading
//
//	store, err := storage.DefaultLayout("out").OpenIndex()
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	rows, err := store.SearchRows(ctx, storage.RowFilter{Target: "FE-56"}, 100)
//
// # Drivers
//
// The default build uses modernc.org/sqlite. Building with -tags sqlite_cgo
// switches to github.com/mattn/go-sqlite3.
package storage
