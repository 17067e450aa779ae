package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/exfor-index/internal/config"
	"github.com/dshills/exfor-index/internal/indexer"
	"github.com/dshills/exfor-index/internal/storage"
	"github.com/dshills/exfor-index/internal/unpack"
)

// entryText lays out an entry with a document subentry and one data subentry
func entryText(accession, reaction string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-17s%-5s%11s\n", "ENTRY", accession, "20240101")

	bibs := [][]string{
		{"AUTHOR     (A.B.Smith,C.Jones)", "INSTITUTE  (1USAORL)", "REFERENCE  (J,PR,89,1271,1953)"},
		{"REACTION   " + reaction},
	}
	for i, bib := range bibs {
		fmt.Fprintf(&b, "%-14s%s%03d%11s\n", "SUBENT", accession, i+1, "20240101")
		fmt.Fprintf(&b, "%-10s%11d%11d\n", "BIB", len(bib), len(bib))
		for _, l := range bib {
			fmt.Fprintln(&b, l)
		}
		fmt.Fprintf(&b, "%-10s%11d\n", "ENDBIB", len(bib))
		fmt.Fprintf(&b, "%-10s%11d\n", "NOCOMMON", 0)
		fmt.Fprintf(&b, "%-10s%11d\n", "ENDSUBENT", 0)
	}
	fmt.Fprintf(&b, "%-10s%11d\n", "ENDENTRY", len(bibs))
	return b.String()
}

func writeEntry(t *testing.T, db, accession, reaction string) {
	t.Helper()
	dir := filepath.Join(db, accession[:3])
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, accession+".x4"), []byte(entryText(accession, reaction)), 0o644))
}

// workspace moves the test into an empty directory with a clean environment
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{
		config.EnvConfig, config.EnvWorkers, config.EnvChunkCap, config.EnvOut, config.EnvDB,
		config.EnvExtension, config.EnvLogLevel, config.EnvLogFormat, config.EnvMetricsAddr, config.EnvForce,
	} {
		t.Setenv(k, "")
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBuildCommand(t *testing.T) {
	dir := workspace(t)
	db := filepath.Join(dir, "db")
	writeEntry(t, db, "12345", "(26-FE-56(N,EL),,SIG)")
	writeEntry(t, db, "20002", "(26-FE-56(N,INL),,SIG)")
	writeEntry(t, db, "30003", "(26-FE-56(N,EL")

	out, err := run(t, "build", "--db", "db", "--out", "index", "--workers", "2", "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "Index rows")
	assert.NotContains(t, out, "DOI records", "missing default DOI table is skipped")

	layout := storage.DefaultLayout(filepath.Join(dir, "index"))
	for _, p := range layout.Outputs() {
		assert.FileExists(t, p)
	}

	t.Run("refuses to overwrite", func(t *testing.T) {
		_, err := run(t, "build", "--db", "db", "--out", "index")
		assert.ErrorIs(t, err, indexer.ErrRefuseOverwrite)
	})

	t.Run("force overwrites", func(t *testing.T) {
		_, err := run(t, "build", "-f", "--db", "db", "--out", "index")
		require.NoError(t, err)
	})

	t.Run("explicit missing DOI table fails", func(t *testing.T) {
		_, err := run(t, "build", "-f", "--db", "db", "--out", "index", "--doi", "nope.txt")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("errors view", func(t *testing.T) {
		out, err := run(t, "errors", "view", "--out", "index")
		require.NoError(t, err)
		assert.Contains(t, out, "30003")
	})

	t.Run("errors export", func(t *testing.T) {
		_, err := run(t, "errors", "export", "errors.csv", "--out", "index")
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, "errors.csv"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "Error,Number Occurances,Entry,Full Message"))

		_, err = run(t, "errors", "export", "errors.csv", "--out", "index")
		assert.ErrorIs(t, err, indexer.ErrRefuseOverwrite)
	})

	t.Run("doi", func(t *testing.T) {
		line := fmt.Sprintf("%-32s%-14s%-15s%s\n", "$REF=J,PR,89,1271,1953", "$ENTRY=12345", "$NSR=1953SM01", "$DOI=10.1103/PhysRev.89.1271")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "dois.txt"), []byte(line), 0o644))

		out, err := run(t, "doi", "dois.txt", "--out", "index")
		require.NoError(t, err)
		assert.Contains(t, out, "Inserted 1 DOI records")

		store, err := layout.OpenIndex()
		require.NoError(t, err)
		defer store.Close()
		records, err := store.DOIsForEntry(context.Background(), "12345")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "1953SM01", records[0].NSR)
	})
}

func TestBuildCommand_Preconditions(t *testing.T) {
	dir := workspace(t)

	_, err := run(t, "build", "--db", "missing", "--out", "index")
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o755))
	_, err = run(t, "build", "--db", "empty", "--out", "index")
	assert.ErrorIs(t, err, indexer.ErrNoEntries)

	_, err = run(t, "build", "--db", "empty", "--workers", "0")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestUnpackCommand(t *testing.T) {
	dir := workspace(t)

	master := filepath.Join(dir, "EXFOR-2024.zip")
	f, err := os.Create(master)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("EXFOR-2024.bck")
	require.NoError(t, err)
	_, err = w.Write([]byte(entryText("12345", "(26-FE-56(N,EL),,SIG)") + entryText("A0001", "(29-CU-63(P,N)30-ZN-63,,SIG)")))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	layout, err := unpack.NewLayout(master)
	require.NoError(t, err)

	out, err := run(t, "unpack", master, "--just-unpack")
	require.NoError(t, err)
	assert.Contains(t, out, "In total 2 entries")
	assert.FileExists(t, filepath.Join(layout.DB, "A00", "A0001.x4"))
	assert.NoFileExists(t, layout.Index().Path(layout.Index().Index))

	_, err = run(t, "unpack", master)
	assert.ErrorIs(t, err, unpack.ErrExists)

	out, err = run(t, "unpack", "-f", master)
	require.NoError(t, err)
	assert.Contains(t, out, "Index rows")
	assert.FileExists(t, layout.Index().Path(layout.Index().Index))
}

func TestServeCommand_NotIndexed(t *testing.T) {
	workspace(t)

	_, err := run(t, "serve", "--out", ".")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	workspace(t)

	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "x4index dev")
	assert.Contains(t, out, storage.BuildMode)
}
