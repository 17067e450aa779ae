package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/exfor-index/pkg/types"
)

var (
	keyEL  = types.ReactionKey{Equation: "FE-56(N,EL)", Quantity: "SIG"}
	keyINL = types.ReactionKey{Equation: "FE-56(N,INL)", Quantity: "DA"}
	keyAL  = types.ReactionKey{Equation: "AL-27(N,A)", Quantity: "SIG"}
)

func chunkResults() []*types.IndexData {
	a := types.NewIndexData()
	a.Coupled[types.EntryKey{Accession: "10001", Subentry: "002", Pointer: " "}] = []types.ReactionKey{keyEL, keyINL}
	a.Counts[keyEL] = 1
	a.Counts[keyINL] = 1
	a.Rows = []types.Row{{Entry: "10001"}}
	a.Files = 1

	b := types.NewIndexData()
	b.Monitored[types.EntryKey{Accession: "10002", Subentry: "002", Pointer: "1"}] = []types.ReactionKey{keyAL, keyEL}
	b.Counts[keyEL] = 2
	b.Counts[keyAL] = 1
	b.Rows = []types.Row{{Entry: "10002"}, {Entry: "10002"}}
	b.Files = 2

	c := types.NewIndexData()
	c.Errors["100/10003.x4"] = types.ErrorRecord{Path: "100/10003.x4", Kind: types.AuthorParsingError, Message: "bad"}
	c.Counts[keyAL] = 4
	c.Files = 1

	return []*types.IndexData{a, b, c}
}

func TestMerge(t *testing.T) {
	merged, err := Merge(chunkResults()...)
	require.NoError(t, err)

	assert.Equal(t, map[types.ReactionKey]int{keyEL: 3, keyINL: 1, keyAL: 5}, merged.Counts)
	assert.Len(t, merged.Coupled, 1)
	assert.Len(t, merged.Monitored, 1)
	assert.Len(t, merged.Errors, 1)
	assert.Len(t, merged.Rows, 3)
	assert.Equal(t, 4, merged.Files)
	assert.Equal(t, "10001", merged.Rows[0].Entry)
}

func TestMerge_PermutationInvariant(t *testing.T) {
	orders := [][]int{
		{0, 1, 2},
		{2, 1, 0},
		{1, 2, 0},
	}

	var first *types.IndexData
	for _, order := range orders {
		parts := chunkResults()
		permuted := make([]*types.IndexData, len(order))
		for i, idx := range order {
			permuted[i] = parts[idx]
		}

		merged, err := Merge(permuted...)
		require.NoError(t, err)

		if first == nil {
			first = merged
			continue
		}
		assert.Equal(t, first.Counts, merged.Counts)
		assert.Equal(t, first.Coupled, merged.Coupled)
		assert.Equal(t, first.Monitored, merged.Monitored)
		assert.Equal(t, first.Errors, merged.Errors)
		assert.ElementsMatch(t, first.Rows, merged.Rows)
	}
}

func TestMerge_Associative(t *testing.T) {
	parts := chunkResults()
	ab, err := Merge(parts[0], parts[1])
	require.NoError(t, err)
	left, err := Merge(ab, parts[2])
	require.NoError(t, err)

	parts = chunkResults()
	bc, err := Merge(parts[1], parts[2])
	require.NoError(t, err)
	right, err := Merge(parts[0], bc)
	require.NoError(t, err)

	assert.Equal(t, left.Counts, right.Counts)
	assert.Equal(t, left.Coupled, right.Coupled)
	assert.Equal(t, left.Monitored, right.Monitored)
	assert.Equal(t, left.Rows, right.Rows)
}

func TestMerge_DoesNotModifyParts(t *testing.T) {
	parts := chunkResults()
	_, err := Merge(parts...)
	require.NoError(t, err)

	assert.Equal(t, 1, parts[0].Counts[keyEL])
	assert.Len(t, parts[0].Rows, 1)
}

func TestMerge_DuplicateKeys(t *testing.T) {
	key := types.EntryKey{Accession: "10001", Subentry: "002", Pointer: " "}

	tests := []struct {
		name string
		set  func(d *types.IndexData)
	}{
		{"coupled", func(d *types.IndexData) { d.Coupled[key] = []types.ReactionKey{keyEL, keyINL} }},
		{"monitored", func(d *types.IndexData) { d.Monitored[key] = []types.ReactionKey{keyAL} }},
		{"errors", func(d *types.IndexData) { d.Errors["a.x4"] = types.ErrorRecord{Path: "a.x4"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := types.NewIndexData(), types.NewIndexData()
			tt.set(a)
			tt.set(b)

			_, err := Merge(a, b)
			assert.ErrorIs(t, err, ErrDuplicateKey)
		})
	}
}

func TestMerge_SkipsNil(t *testing.T) {
	merged, err := Merge(nil, chunkResults()[0], nil)
	require.NoError(t, err)
	assert.Equal(t, 2, merged.TotalCount())
}
