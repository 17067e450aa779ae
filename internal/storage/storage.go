package storage

import (
	"context"

	"github.com/RoaringBitmap/roaring"

	"github.com/dshills/exfor-index/pkg/types"
)

// Storage defines the interface for persisting and querying the relational index
type Storage interface {
	// Row operations
	InsertRows(ctx context.Context, rows []types.Row) error
	SearchRows(ctx context.Context, filter RowFilter, limit int) ([]types.Row, error)
	CountRows(ctx context.Context) (int, error)

	// Reaction bitmap operations
	WriteReactionEntries(ctx context.Context, rows []types.Row) error
	EntriesForReaction(ctx context.Context, reaction string) ([]string, error)
	ReactionBitmaps(ctx context.Context) (map[string]*roaring.Bitmap, error)
	EntryID(ctx context.Context, entry string) (uint32, error)
	EntryNames(ctx context.Context, bm *roaring.Bitmap) ([]string, error)

	// Metadata operations
	PutMeta(ctx context.Context, values map[string]string) error
	GetMeta(ctx context.Context, key string) (string, error)

	// DOI operations
	ReplaceDOIs(ctx context.Context, records []DOIRecord) error
	DOIsForEntry(ctx context.Context, entry string) ([]DOIRecord, error)

	// Database operations
	Close() error
}

// RowFilter selects theworks rows; empty fields match anything
type RowFilter struct {
	Entry      string `json:"entry,omitempty"`
	Author     string `json:"author,omitempty"`
	Reaction   string `json:"reaction,omitempty"`
	Projectile string `json:"projectile,omitempty"`
	Target     string `json:"target,omitempty"`
	Quantity   string `json:"quantity,omitempty"`

	Monitored   *bool `json:"monitored,omitempty"`
	Combination *bool `json:"combination,omitempty"`
}

// DOIRecord is one row of the DOI cross reference table
type DOIRecord struct {
	Entry     string `json:"entry"`
	NSR       string `json:"nsr"`
	DOI       string `json:"doi"`
	Reference string `json:"reference"`
}

// Meta keys written by a build
const (
	MetaRunID         = "run_id"
	MetaBuiltAt       = "built_at"
	MetaSummary       = "summary"
	MetaSchemaVersion = "schema_version"
)

// ReactionOf returns the bitmap key of a row: "TARGET(REACTION)|QUANTITY"
func ReactionOf(r types.Row) string {
	return r.Target + "(" + r.Reaction + ")|" + r.Quantity
}
