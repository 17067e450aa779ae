package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/exfor-index/internal/storage"
	"github.com/dshills/exfor-index/pkg/types"
)

func row(entry, author, target, reaction string) types.Row {
	return types.Row{
		Entry: entry, Subentry: "002", Pointer: " ", Author: author,
		Reaction: reaction, Projectile: reaction[:1], Target: target, Quantity: "SIG",
	}
}

func setupService(t *testing.T) *Service {
	t.Helper()
	layout := storage.DefaultLayout(t.TempDir())

	data := types.NewIndexData()
	data.Rows = []types.Row{
		row("12345", "Smith", "FE-56", "N,EL"),
		row("12345", "Smith", "FE-56", "N,INL"),
		row("20002", "Lee", "FE-56", "N,EL"),
		row("30003", "Kim", "FE-56", "N,INL"),
		row("40004", "Kim", "CU-63", "P,N"),
	}
	el := types.ReactionKey{Equation: "FE-56(N,EL)", Quantity: "SIG"}
	inl := types.ReactionKey{Equation: "FE-56(N,INL)", Quantity: "SIG"}
	data.Coupled[types.EntryKey{Accession: "12345", Subentry: "002", Pointer: " "}] = []types.ReactionKey{el, inl}
	data.Counts[el] = 2
	data.Counts[inl] = 2
	data.Errors["999/99999.x4"] = types.ErrorRecord{Path: "999/99999.x4", Kind: types.ReactionParsingError, Message: "missing )"}
	data.Errors["100/10009.x4"] = types.ErrorRecord{Path: "100/10009.x4", Kind: types.AuthorParsingError, Message: "no family name"}
	data.Files = 7

	summary := &types.BuildSummary{RunID: "run-42", StartedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	summary.Summarize(data)
	require.NoError(t, storage.NewWriter(layout).Persist(context.Background(), data, summary))

	store, err := layout.OpenIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.ReplaceDOIs(context.Background(), []storage.DOIRecord{
		{Entry: "12345", NSR: "1990SM01", DOI: "10.1000/a", Reference: "J,PR,1,1"},
	}))

	return NewService(store, layout.FS(), layout)
}

func TestSearch(t *testing.T) {
	svc := setupService(t)

	resp, err := svc.Search(context.Background(), SearchRequest{Filter: storage.RowFilter{Target: "FE-56", Reaction: "N,EL"}})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.False(t, resp.CacheHit)
	assert.Equal(t, "12345", resp.Rows[0].Entry)
	assert.Equal(t, "20002", resp.Rows[1].Entry)
}

func TestSearch_Cache(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	req := SearchRequest{Filter: storage.RowFilter{Author: "Kim"}, UseCache: true}

	first, err := svc.Search(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	// Cached copies are independent of what callers do with results
	first.Rows[0].Entry = "changed"

	second, err := svc.Search(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, "30003", second.Rows[0].Entry)

	svc.ClearCache()
	third, err := svc.Search(ctx, req)
	require.NoError(t, err)
	assert.False(t, third.CacheHit)
}

func TestSearch_CacheExpires(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	req := SearchRequest{Filter: storage.RowFilter{Author: "Kim"}, UseCache: true, CacheTTL: time.Nanosecond}

	_, err := svc.Search(ctx, req)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	resp, err := svc.Search(ctx, req)
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)
}

func TestSearch_Validation(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Search(ctx, SearchRequest{Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Search(ctx, SearchRequest{Limit: MaxLimit + 1})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	resp, err := svc.Search(ctx, SearchRequest{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
}

func TestRelatedEntries(t *testing.T) {
	svc := setupService(t)

	related, err := svc.RelatedEntries(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, []string{"FE-56(N,EL)|SIG", "FE-56(N,INL)|SIG"}, related.Reactions)
	assert.Equal(t, []string{"20002", "30003"}, related.Entries)
	require.Len(t, related.DOIs, 1)
	assert.Equal(t, "10.1000/a", related.DOIs[0].DOI)

	related, err = svc.RelatedEntries(context.Background(), "40004")
	require.NoError(t, err)
	assert.Empty(t, related.Entries)

	_, err = svc.RelatedEntries(context.Background(), "55555")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEntriesForReaction(t *testing.T) {
	svc := setupService(t)

	entries, err := svc.EntriesForReaction(context.Background(), "fe-56(n,inl)|sig")
	require.NoError(t, err)
	assert.Equal(t, []string{"12345", "30003"}, entries)
}

func TestArchiveQuery(t *testing.T) {
	svc := setupService(t)

	tests := []struct {
		name    string
		archive string
		expr    string
		want    []any
	}{
		{"error paths by kind", ArchiveErrors, "$[?(@.kind == 'AuthorParsingError')].path", []any{"100/10009.x4"}},
		{"count of a reaction", ArchiveCounts, "$[?(@.equation == 'FE-56(N,EL)')].count", []any{int64(2)}},
		{"coupled entries", ArchiveCoupled, "$[*].entry", []any{"12345"}},
		{"empty archive", ArchiveMonitored, "$[*].entry", []any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ArchiveQuery(tt.archive, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArchiveQuery_Errors(t *testing.T) {
	svc := setupService(t)

	_, err := svc.ArchiveQuery("pickles", "$")
	assert.ErrorIs(t, err, ErrUnknownArchive)

	_, err = svc.ArchiveQuery(ArchiveCounts, "$[?(")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestErrors(t *testing.T) {
	svc := setupService(t)

	all, err := svc.Errors("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	author, err := svc.Errors(types.AuthorParsingError)
	require.NoError(t, err)
	require.Len(t, author, 1)
	assert.Equal(t, "100/10009.x4", author[0].Path)
}

func TestStatus(t *testing.T) {
	svc := setupService(t)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-42", status.RunID)
	assert.Equal(t, "2024-05-01T00:00:00Z", status.BuiltAt)
	assert.Equal(t, storage.CurrentSchemaVersion, status.SchemaVersion)
	assert.Equal(t, storage.BuildMode, status.Driver)
	assert.Equal(t, 5, status.Rows)
	require.NotNil(t, status.Summary)
	assert.Equal(t, 7, status.Summary.Files)
	assert.Equal(t, 2, status.Summary.Errors)
}
