package storage

import (
	"encoding/json"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/exfor-index/pkg/types"
)

func testIndexData() *types.IndexData {
	el := types.ReactionKey{Equation: "FE-56(N,EL)", Quantity: "SIG"}
	inl := types.ReactionKey{Equation: "FE-56(N,INL)", Quantity: "DA"}
	al := types.ReactionKey{Equation: "AL-27(N,A)", Quantity: "SIG"}
	au := types.ReactionKey{Equation: "AU-197(N,G)", Quantity: "SIG"}

	d := types.NewIndexData()
	d.Coupled[types.EntryKey{Accession: "12345", Subentry: "002", Pointer: " "}] = []types.ReactionKey{el, inl}
	d.Coupled[types.EntryKey{Accession: "10001", Subentry: "003", Pointer: "1"}] = []types.ReactionKey{inl, el}
	d.Monitored[types.EntryKey{Accession: "10001", Subentry: "002", Pointer: "1"}] = []types.ReactionKey{au, al}
	d.Counts[el] = 2
	d.Counts[inl] = 2
	d.Counts[al] = 1
	d.Counts[au] = 1
	d.Errors["999/99999.x4"] = types.ErrorRecord{Path: "999/99999.x4", Kind: types.ReactionParsingError, Message: "missing )"}
	d.Errors["100/10009.x4"] = types.ErrorRecord{Path: "100/10009.x4", Kind: types.AuthorParsingError, Message: "no family name"}
	d.Rows = testRows()
	d.Files = 5
	return d
}

func TestArchives_RoundTrip(t *testing.T) {
	fs := memfs.New()
	layout := DefaultLayout("")
	data := testIndexData()

	require.NoError(t, WriteArchives(fs, layout, data))

	coupled, err := LoadCoupled(fs, layout)
	require.NoError(t, err)
	assert.Equal(t, data.Coupled, coupled)

	monitored, err := LoadMonitored(fs, layout)
	require.NoError(t, err)
	assert.Equal(t, data.Monitored, monitored)

	counts, err := LoadCounts(fs, layout)
	require.NoError(t, err)
	assert.Equal(t, data.Counts, counts)

	errs, err := LoadErrors(fs, layout)
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "100/10009.x4", errs[0].Path)
	assert.Equal(t, data.Errors["999/99999.x4"], errs[1])
}

func TestArchives_SortedAndDeterministic(t *testing.T) {
	layout := DefaultLayout("")

	var outputs [][]byte
	for i := 0; i < 3; i++ {
		fs := memfs.New()
		require.NoError(t, WriteArchives(fs, layout, testIndexData()))
		raw, err := util.ReadFile(fs, layout.Coupled)
		require.NoError(t, err)
		outputs = append(outputs, raw)
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[0], outputs[2])

	var records []EntryReactions
	require.NoError(t, json.Unmarshal(outputs[0], &records))
	require.Len(t, records, 2)
	assert.Equal(t, "10001", records[0].Accession)
	assert.Equal(t, "12345", records[1].Accession)

	// Reaction order within a pointer is kept
	assert.Equal(t, "FE-56(N,INL)", records[0].Reactions[0].Equation)
}

func TestArchives_EmptyData(t *testing.T) {
	fs := memfs.New()
	layout := DefaultLayout("")
	require.NoError(t, WriteArchives(fs, layout, types.NewIndexData()))

	raw, err := util.ReadFile(fs, layout.ErrorLog)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))

	counts, err := LoadCounts(fs, layout)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestArchives_NoTempFilesLeft(t *testing.T) {
	fs := memfs.New()
	layout := DefaultLayout("")
	require.NoError(t, WriteArchives(fs, layout, testIndexData()))

	infos, err := fs.ReadDir(".")
	require.NoError(t, err)

	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	assert.ElementsMatch(t, []string{
		DefaultErrorLogName, DefaultCoupledName, DefaultMonitoredName, DefaultCountsName,
	}, names)
}

func TestLoadArchive_Missing(t *testing.T) {
	_, err := LoadCounts(memfs.New(), DefaultLayout(""))
	assert.Error(t, err)
}
