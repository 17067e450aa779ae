package query

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring"
	billy "github.com/go-git/go-billy/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/dshills/exfor-index/internal/storage"
	"github.com/dshills/exfor-index/pkg/types"
)

const (
	// DefaultLimit applies when a search asks for no limit
	DefaultLimit = 100
	// MaxLimit caps the rows one search returns
	MaxLimit = 10000

	defaultCacheTTL  = time.Hour
	defaultCacheSize = 1000
)

// Archive names accepted by ArchiveQuery
const (
	ArchiveCoupled   = "coupled"
	ArchiveMonitored = "monitored"
	ArchiveCounts    = "counts"
	ArchiveErrors    = "errors"
)

var (
	// ErrUnknownArchive is returned for an archive name ArchiveQuery does not know
	ErrUnknownArchive = errors.New("unknown archive")
	// ErrInvalidRequest is returned when a request fails validation
	ErrInvalidRequest = errors.New("invalid request")
)

// SearchRequest contains parameters for a row search
type SearchRequest struct {
	Filter   storage.RowFilter
	Limit    int
	UseCache bool // Whether to use the result cache
	CacheTTL time.Duration
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Rows     []types.Row   `json:"rows"`
	Total    int           `json:"total"`
	Duration time.Duration `json:"duration"`
	CacheHit bool          `json:"cache_hit"`
}

// Related lists the entries sharing at least one reaction with an entry
type Related struct {
	Entry     string              `json:"entry"`
	Reactions []string            `json:"reactions"`
	Entries   []string            `json:"entries"`
	DOIs      []storage.DOIRecord `json:"dois"`
}

// Status describes a built index
type Status struct {
	IndexDir      string              `json:"index_dir"`
	RunID         string              `json:"run_id"`
	BuiltAt       string              `json:"built_at"`
	SchemaVersion string              `json:"schema_version"`
	Driver        string              `json:"driver"`
	Rows          int                 `json:"rows"`
	Summary       *types.BuildSummary `json:"summary,omitempty"`
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Service answers questions about a built index: row searches over the
// SQLite index and JSONPath queries over the archives
type Service struct {
	store   storage.Storage
	fs      billy.Filesystem
	layout  storage.Layout
	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// NewService creates a Service. fs holds the archives named by layout.
func NewService(store storage.Storage, fs billy.Filesystem, layout storage.Layout) *Service {
	cache, err := lru.New[[32]byte, *cacheEntry](defaultCacheSize)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Service{
		store:  store,
		fs:     fs,
		layout: layout,
		cache:  cache,
	}
}

// Search returns the rows matching the request filter
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	if req.UseCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	rows, err := s.store.SearchRows(ctx, req.Filter, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	response := &SearchResponse{
		Rows:     rows,
		Total:    len(rows),
		Duration: time.Since(startTime),
	}

	if req.UseCache {
		s.storeInCache(req, response)
	}
	return response, nil
}

func validateRequest(req *SearchRequest) error {
	if req.Limit < 0 {
		return fmt.Errorf("%w: limit must be positive", ErrInvalidRequest)
	}
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		return fmt.Errorf("%w: limit exceeds maximum of %d", ErrInvalidRequest, MaxLimit)
	}
	if req.CacheTTL == 0 {
		req.CacheTTL = defaultCacheTTL
	}
	return nil
}

// computeQueryHash keys the cache by filter and limit
func computeQueryHash(req SearchRequest) [32]byte {
	encoded, _ := json.Marshal(struct {
		Filter storage.RowFilter
		Limit  int
	}{req.Filter, req.Limit})
	return sha256.Sum256(encoded)
}

// checkCache returns a copy of a live cached response, or nil
func (s *Service) checkCache(req SearchRequest) *SearchResponse {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}

	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()
	return response
}

func (s *Service) storeInCache(req SearchRequest, response *SearchResponse) {
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

func copySearchResponse(src *SearchResponse) *SearchResponse {
	dst := *src
	dst.Rows = append([]types.Row(nil), src.Rows...)
	return &dst
}

// ClearCache drops every cached search
func (s *Service) ClearCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// EntriesForReaction returns the entries measuring reaction, keyed "TARGET(REACTION)|QUANTITY"
func (s *Service) EntriesForReaction(ctx context.Context, reaction string) ([]string, error) {
	return s.store.EntriesForReaction(ctx, strings.ToUpper(reaction))
}

// RelatedEntries returns the reactions of entry and every other entry measuring one of them
func (s *Service) RelatedEntries(ctx context.Context, entry string) (*Related, error) {
	entry = strings.ToUpper(strings.TrimSpace(entry))

	id, err := s.store.EntryID(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", entry, err)
	}

	bitmaps, err := s.store.ReactionBitmaps(ctx)
	if err != nil {
		return nil, err
	}

	related := &Related{Entry: entry, Reactions: []string{}}
	union := roaring.New()
	for reaction, bm := range bitmaps {
		if bm.Contains(id) {
			related.Reactions = append(related.Reactions, reaction)
			union.Or(bm)
		}
	}
	sort.Strings(related.Reactions)
	union.Remove(id)

	if related.Entries, err = s.store.EntryNames(ctx, union); err != nil {
		return nil, err
	}
	if related.DOIs, err = s.store.DOIsForEntry(ctx, entry); err != nil {
		return nil, err
	}
	return related, nil
}

// ArchiveQuery evaluates a JSONPath expression against one archive
func (s *Service) ArchiveQuery(name, expr string) ([]any, error) {
	file, err := s.archiveFile(name)
	if err != nil {
		return nil, err
	}

	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid jsonpath '%s': %v", ErrInvalidRequest, expr, err)
	}

	f, err := s.fs.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", file, err)
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", file, err)
	}
	doc, err := oj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse archive %s: %w", file, err)
	}

	results := x.Get(doc)
	if results == nil {
		results = []any{}
	}
	return results, nil
}

func (s *Service) archiveFile(name string) (string, error) {
	switch strings.ToLower(name) {
	case ArchiveCoupled:
		return s.layout.Coupled, nil
	case ArchiveMonitored:
		return s.layout.Monitored, nil
	case ArchiveCounts:
		return s.layout.Counts, nil
	case ArchiveErrors:
		return s.layout.ErrorLog, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownArchive, name)
	}
}

// Errors returns the error log, optionally restricted to one kind
func (s *Service) Errors(kind types.ErrorKind) ([]types.ErrorRecord, error) {
	records, err := storage.LoadErrors(s.fs, s.layout)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		return records, nil
	}

	filtered := make([]types.ErrorRecord, 0)
	for _, rec := range records {
		if rec.Kind == kind {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// Status reports the metadata of the index
func (s *Service) Status(ctx context.Context) (*Status, error) {
	status := &Status{
		IndexDir: s.layout.Dir,
		Driver:   storage.BuildMode,
	}

	var err error
	if status.Rows, err = s.store.CountRows(ctx); err != nil {
		return nil, err
	}

	meta := map[string]*string{
		storage.MetaRunID:         &status.RunID,
		storage.MetaBuiltAt:       &status.BuiltAt,
		storage.MetaSchemaVersion: &status.SchemaVersion,
	}
	for key, dst := range meta {
		v, err := s.store.GetMeta(ctx, key)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		*dst = v
	}

	raw, err := s.store.GetMeta(ctx, storage.MetaSummary)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		var summary types.BuildSummary
		if err := json.Unmarshal([]byte(raw), &summary); err != nil {
			return nil, fmt.Errorf("failed to decode build summary: %w", err)
		}
		status.Summary = &summary
	}
	return status, nil
}
