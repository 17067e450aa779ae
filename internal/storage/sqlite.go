package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/dshills/exfor-index/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Rollback journal: after Close the index file is self-contained and can be renamed
	if _, err := db.Exec("PRAGMA journal_mode=DELETE"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStorage opens (or creates) the index at dbPath and applies pending migrations
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// withTx runs fn in one transaction, committing only if fn succeeds
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Row operations

const rowColumns = `entry, subent, pointer, author, reaction, projectile, target, quantity, rxncombo, monitored`

// InsertRows bulk-loads rows into theworks in a single transaction, then builds its indices
func (s *SQLiteStorage) InsertRows(ctx context.Context, rows []types.Row) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO theworks (`+rowColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare row insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, row := range rows {
			if _, err := stmt.ExecContext(ctx, row.Values()...); err != nil {
				return fmt.Errorf("failed to insert row %d (%s): %w", i, row.Entry, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	indices := `
		CREATE INDEX IF NOT EXISTS idx_theworks_entry ON theworks(entry, subent, pointer);
		CREATE INDEX IF NOT EXISTS idx_theworks_target ON theworks(target, reaction, quantity);
		CREATE INDEX IF NOT EXISTS idx_theworks_author ON theworks(author);
	`
	if _, err := s.db.ExecContext(ctx, indices); err != nil {
		return fmt.Errorf("failed to create theworks indices: %w", err)
	}
	return nil
}

// SearchRows returns up to limit rows matching filter; limit <= 0 means no limit
func (s *SQLiteStorage) SearchRows(ctx context.Context, filter RowFilter, limit int) ([]types.Row, error) {
	var (
		conds []string
		args  []any
	)
	match := func(column, value string) {
		if value != "" {
			conds = append(conds, column+" = ?")
			args = append(args, value)
		}
	}
	match("entry", strings.ToUpper(filter.Entry))
	match("author", filter.Author)
	match("reaction", strings.ToUpper(filter.Reaction))
	match("projectile", strings.ToUpper(filter.Projectile))
	match("target", strings.ToUpper(filter.Target))
	match("quantity", strings.ToUpper(filter.Quantity))
	if filter.Monitored != nil {
		conds = append(conds, "monitored = ?")
		args = append(args, *filter.Monitored)
	}
	if filter.Combination != nil {
		conds = append(conds, "rxncombo = ?")
		args = append(args, *filter.Combination)
	}

	query := `SELECT ` + rowColumns + ` FROM theworks`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY entry, subent, pointer, rowid"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]types.Row, 0)
	for rows.Next() {
		var r types.Row
		err := rows.Scan(
			&r.Entry, &r.Subentry, &r.Pointer, &r.Author, &r.Reaction,
			&r.Projectile, &r.Target, &r.Quantity, &r.Combination, &r.Monitored,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CountRows returns the number of rows in theworks
func (s *SQLiteStorage) CountRows(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM theworks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

// Reaction bitmap operations

// WriteReactionEntries replaces the entry id table and the per-reaction bitmaps with
// those derived from rows. Entry ids follow the sorted order of entry numbers.
func (s *SQLiteStorage) WriteReactionEntries(ctx context.Context, rows []types.Row) error {
	var entries []string
	seen := make(map[string]bool)
	for _, r := range rows {
		if !seen[r.Entry] {
			seen[r.Entry] = true
			entries = append(entries, r.Entry)
		}
	}
	sort.Strings(entries)

	ids := make(map[string]uint32, len(entries))
	for i, e := range entries {
		ids[e] = uint32(i)
	}

	bitmaps := make(map[string]*roaring.Bitmap)
	for _, r := range rows {
		key := ReactionOf(r)
		bm, ok := bitmaps[key]
		if !ok {
			bm = roaring.New()
			bitmaps[key] = bm
		}
		bm.Add(ids[r.Entry])
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM reaction_entries; DELETE FROM entry_ids;"); err != nil {
			return fmt.Errorf("failed to clear reaction entries: %w", err)
		}

		idStmt, err := tx.PrepareContext(ctx, "INSERT INTO entry_ids (id, entry) VALUES (?, ?)")
		if err != nil {
			return fmt.Errorf("prepare entry_ids insert: %w", err)
		}
		defer func() { _ = idStmt.Close() }()

		for _, e := range entries {
			if _, err := idStmt.ExecContext(ctx, ids[e], e); err != nil {
				return fmt.Errorf("insert entry id %s: %w", e, err)
			}
		}

		bmStmt, err := tx.PrepareContext(ctx, "INSERT INTO reaction_entries (reaction, bitmap) VALUES (?, ?)")
		if err != nil {
			return fmt.Errorf("prepare reaction_entries insert: %w", err)
		}
		defer func() { _ = bmStmt.Close() }()

		var buf bytes.Buffer
		for key, bm := range bitmaps {
			buf.Reset()
			if _, err := bm.WriteTo(&buf); err != nil {
				return fmt.Errorf("serialize bitmap for %s: %w", key, err)
			}
			if _, err := bmStmt.ExecContext(ctx, key, buf.Bytes()); err != nil {
				return fmt.Errorf("insert bitmap %s: %w", key, err)
			}
		}
		return nil
	})
}

func decodeBitmap(blob []byte) (*roaring.Bitmap, error) {
	bm := roaring.New()
	if err := bm.UnmarshalBinary(blob); err != nil {
		return nil, fmt.Errorf("decode bitmap: %w", err)
	}
	return bm, nil
}

// EntriesForReaction returns the sorted entries measuring reaction
func (s *SQLiteStorage) EntriesForReaction(ctx context.Context, reaction string) ([]string, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, "SELECT bitmap FROM reaction_entries WHERE reaction = ?", reaction).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	bm, err := decodeBitmap(blob)
	if err != nil {
		return nil, err
	}
	return s.EntryNames(ctx, bm)
}

// ReactionBitmaps loads every reaction bitmap
func (s *SQLiteStorage) ReactionBitmaps(ctx context.Context) (map[string]*roaring.Bitmap, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT reaction, bitmap FROM reaction_entries")
	if err != nil {
		return nil, fmt.Errorf("failed to load bitmaps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bitmaps := make(map[string]*roaring.Bitmap)
	for rows.Next() {
		var (
			key  string
			blob []byte
		)
		if err := rows.Scan(&key, &blob); err != nil {
			return nil, err
		}
		bm, err := decodeBitmap(blob)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		bitmaps[key] = bm
	}
	return bitmaps, rows.Err()
}

// EntryID returns the bitmap id of entry
func (s *SQLiteStorage) EntryID(ctx context.Context, entry string) (uint32, error) {
	var id uint32
	err := s.db.QueryRowContext(ctx, "SELECT id FROM entry_ids WHERE entry = ?", strings.ToUpper(entry)).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// EntryNames resolves the ids in bm to entry numbers, in id order
func (s *SQLiteStorage) EntryNames(ctx context.Context, bm *roaring.Bitmap) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, entry FROM entry_ids ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to load entry ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names := make([]string, 0, bm.GetCardinality())
	for rows.Next() {
		var (
			id    uint32
			entry string
		)
		if err := rows.Scan(&id, &entry); err != nil {
			return nil, err
		}
		if bm.Contains(id) {
			names = append(names, entry)
		}
	}
	return names, rows.Err()
}

// Metadata operations

// PutMeta upserts values into index_meta
func (s *SQLiteStorage) PutMeta(ctx context.Context, values map[string]string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO index_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`)
		if err != nil {
			return fmt.Errorf("prepare meta upsert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for k, v := range values {
			if _, err := stmt.ExecContext(ctx, k, v); err != nil {
				return fmt.Errorf("failed to put meta %s: %w", k, err)
			}
		}
		return nil
	})
}

// GetMeta returns the value stored under key
func (s *SQLiteStorage) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// DOI operations

// ReplaceDOIs drops the current DOI table contents and loads records, atomically
func (s *SQLiteStorage) ReplaceDOIs(ctx context.Context, records []DOIRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM doiXref"); err != nil {
			return fmt.Errorf("failed to clear doiXref: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, "INSERT INTO doiXref (entry, nsr, doi, reference) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("prepare doiXref insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, r.Entry, r.NSR, r.DOI, r.Reference); err != nil {
				return fmt.Errorf("failed to insert DOI for %s: %w", r.Entry, err)
			}
		}
		return nil
	})
}

// DOIsForEntry returns the DOI records of entry in load order
func (s *SQLiteStorage) DOIsForEntry(ctx context.Context, entry string) ([]DOIRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT entry, nsr, doi, reference FROM doiXref WHERE entry = ? ORDER BY rowid",
		strings.ToUpper(entry))
	if err != nil {
		return nil, fmt.Errorf("failed to query DOIs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]DOIRecord, 0)
	for rows.Next() {
		var r DOIRecord
		if err := rows.Scan(&r.Entry, &r.NSR, &r.DOI, &r.Reference); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
