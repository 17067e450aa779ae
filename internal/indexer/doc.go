// Package indexer builds the EXFOR reaction index from a directory of entry files.
//
// The builder walks the database root, splits the entry files into chunks,
// processes the chunks on a bounded worker pool, merges the per-chunk results
// and hands the merged result to a Persister.
//
// # Basic Usage
//
//	db := osfs.New("/data/X4-2024/db")
//	b := indexer.NewBuilder(db, parser.New(db), storage.NewWriter(layout))
//
//	summary, err := b.Build(ctx, indexer.Options{Workers: 8})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Indexed %d files, %d errors\n", summary.Files, summary.Errors)
//
// # Build Pipeline
//
//  1. Output check: existing outputs fail the build with ErrRefuseOverwrite
//     unless Options.Force is set, in which case Persist replaces them
//  2. Discovery: every *.x4 file below the root, sorted lexicographically
//  3. Partition: chunks of min(files/workers, 50) files, at least one
//  4. Process: one goroutine per chunk, at most Workers at a time
//  5. Merge: reaction counts are summed, everything else is unioned
//  6. Persist: the index and archives are staged under temporary names and
//     renamed over the previous outputs together
//
// Only a build that gets through every step persists anything.
//
// # Per-entry Processing
//
// For each data subentry (every subentry after 001) the processor takes the
// subentry's REACTION and MONITOR fields, falling back to those of the
// document subentry, and for each REACTION pointer:
//
//   - normalizes each reaction of the first measurement and emits one row per
//     document author
//   - counts every reaction and monitor by its reaction key
//   - records the keys under coupled when the pointer holds a combination
//   - records monitor and reaction keys under monitored when MONITOR has the
//     pointer; a monitor without quantity takes the reaction's quantity
//
// # Error Handling
//
// A failing entry file is recorded in the error log and contributes nothing
// else:
//
//	summary, err := b.Build(ctx, opts)
//	// err only for precondition, cancellation and persistence failures
//
//	fmt.Println(summary.ErrorsByKind[types.ReactionParsingError])
//
// Parser errors keep their kind. Any other error, including a panic inside
// the processor, is recorded as UnexpectedError.
//
// # Concurrency
//
// Workers never share state. Each chunk fills a result of its own, stored
// in a slice slot owned by that chunk; the builder merges the slots after
// the pool drains. Merge is order independent, so counts are identical for
// any worker count. Calling Build while a build is running returns
// ErrBuildInProgress.
package indexer
