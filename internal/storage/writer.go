package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dshills/exfor-index/pkg/types"
)

// Writer persists a merged build into a Layout: the SQLite index plus the JSON archives
type Writer struct {
	layout Layout
	logger *slog.Logger
}

// NewWriter creates a Writer for layout
func NewWriter(layout Layout) *Writer {
	return &Writer{layout: layout, logger: slog.Default()}
}

// SetLogger sets the logger
func (w *Writer) SetLogger(logger *slog.Logger) {
	if logger != nil {
		w.logger = logger
	}
}

// Layout returns the layout the writer persists into
func (w *Writer) Layout() Layout {
	return w.layout
}

// Outputs lists every file Persist creates
func (w *Writer) Outputs() []string {
	return w.layout.Outputs()
}

// Persist stages the index and the archives under temporary names, then
// renames all of them over any previous outputs. Cancellation is honoured up
// to the renames; a cancelled Persist leaves the previous outputs untouched.
func (w *Writer) Persist(ctx context.Context, data *types.IndexData, summary *types.BuildSummary) error {
	if err := os.MkdirAll(w.layout.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	fs := w.layout.FS()

	start := time.Now()
	index, err := w.stageIndex(ctx, data, summary)
	if err != nil {
		return err
	}
	w.logger.Debug("index staged",
		slog.String("path", w.layout.Path(index.tmp)),
		slog.Int("rows", len(data.Rows)),
		slog.Duration("duration", time.Since(start)))

	archives, err := stageArchives(fs, w.layout, data)
	if err != nil {
		discardStaged(fs, []stagedFile{index})
		return err
	}
	staged := append([]stagedFile{index}, archives...)

	if err := ctx.Err(); err != nil {
		discardStaged(fs, staged)
		return err
	}

	if err := commitStaged(fs, staged); err != nil {
		return err
	}
	w.logger.Debug("outputs written", slog.String("dir", w.layout.Dir))
	return nil
}

// stageIndex builds the SQLite index under a temporary name next to the final one
func (w *Writer) stageIndex(ctx context.Context, data *types.IndexData, summary *types.BuildSummary) (staged stagedFile, err error) {
	staged = stagedFile{tmp: w.layout.Index + ".tmp-" + summary.RunID, final: w.layout.Index}
	path := w.layout.Path(staged.tmp)
	_ = os.Remove(path)

	store, err := NewSQLiteStorage(path)
	if err != nil {
		return stagedFile{}, err
	}
	defer func() {
		if err != nil {
			_ = store.Close()
			_ = os.Remove(path)
		}
	}()

	if err := store.InsertRows(ctx, data.Rows); err != nil {
		return stagedFile{}, err
	}
	if err := store.WriteReactionEntries(ctx, data.Rows); err != nil {
		return stagedFile{}, err
	}

	encoded, err := json.Marshal(summary)
	if err != nil {
		return stagedFile{}, fmt.Errorf("failed to encode summary: %w", err)
	}
	err = store.PutMeta(ctx, map[string]string{
		MetaRunID:         summary.RunID,
		MetaBuiltAt:       summary.StartedAt.UTC().Format(time.RFC3339),
		MetaSummary:       string(encoded),
		MetaSchemaVersion: CurrentSchemaVersion,
	})
	if err != nil {
		return stagedFile{}, err
	}

	if err := store.Close(); err != nil {
		_ = os.Remove(path)
		return stagedFile{}, fmt.Errorf("failed to close index: %w", err)
	}
	return staged, nil
}
