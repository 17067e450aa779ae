package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/exfor-index/pkg/types"
)

func testRecords() []types.ErrorRecord {
	return []types.ErrorRecord{
		{Path: "999/99999.x4", Kind: types.ReactionParsingError, Message: "line 12: missing )"},
		{Path: "100/10009.x4", Kind: types.AuthorParsingError, Message: "no family name"},
		{Path: "123/12345.x4", Kind: types.ReactionParsingError, Message: strings.Repeat("x", 90)},
		{Path: "200/20001.x4", Kind: types.ErrorKind("CustomError"), Message: "odd"},
	}
}

func TestGroupErrors(t *testing.T) {
	groups := GroupErrors(testRecords())
	require.Len(t, groups, 3)

	assert.Equal(t, types.AuthorParsingError, groups[0].Kind)
	assert.Equal(t, types.ReactionParsingError, groups[1].Kind)
	assert.Equal(t, types.ErrorKind("CustomError"), groups[2].Kind)

	require.Len(t, groups[1].Records, 2)
	assert.Equal(t, "123/12345.x4", groups[1].Records[0].Path)
	assert.Equal(t, "999/99999.x4", groups[1].Records[1].Path)
}

func TestGroupErrors_Empty(t *testing.T) {
	assert.Empty(t, GroupErrors(nil))
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, GroupErrors(testRecords())))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, []string{"Error", "Number Occurances", "Entry", "Full Message"}, rows[0])
	assert.Equal(t, []string{"AuthorParsingError", "1", "100/10009", "no family name"}, rows[1])
	assert.Equal(t, "ReactionParsingError", rows[2][0])
	assert.Equal(t, "2", rows[2][1])
	assert.Equal(t, strings.Repeat("x", 90), rows[2][3])
	assert.Equal(t, []string{" ", " ", "999/99999", "line 12: missing )"}, rows[3])
}

func TestView(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, View(&buf, GroupErrors(testRecords())))

	out := buf.String()
	assert.Contains(t, out, "ReactionParsingError")
	assert.Contains(t, out, "100/10009")
	assert.Contains(t, out, strings.Repeat("x", ExampleWidth)+"...")
	assert.NotContains(t, out, strings.Repeat("x", ExampleWidth+1))
}

func TestEntryName(t *testing.T) {
	assert.Equal(t, "999/99999", EntryName("999/99999.x4"))
	assert.Equal(t, "123/12345", EntryName("123/12345.txt"))
	assert.Equal(t, "A00/A0001", EntryName("A00/A0001"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
}

func TestSummary(t *testing.T) {
	s := &types.BuildSummary{
		RunID:        "run-1",
		Duration:     1500 * time.Millisecond,
		Workers:      6,
		Chunks:       3,
		Files:        120,
		Reactions:    40,
		Rows:         300,
		Errors:       2,
		ErrorsByKind: map[types.ErrorKind]int{types.AuthorParsingError: 2},
	}

	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, s))

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "AuthorParsingError")
	assert.NotContains(t, out, "ReactionParsingError")
}
