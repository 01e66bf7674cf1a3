package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAppendAndExport(t *testing.T) {
	log := NewLog("20250301T120000Z-abcd")
	log.Append("remove_orphans", "delete_vector", "vec-1", "", StatusOK, "")
	log.Append("backfill", "upsert_vector", "vec-2", "document_chunk:email:7:0", StatusDryRun, "would backfill")
	require.Equal(t, 2, log.Len())

	dir := t.TempDir()
	path, err := log.Export(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reconcile_20250301T120000Z-abcd.jsonl"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, sc.Err())
	require.Len(t, entries, 2)

	assert.Equal(t, "20250301T120000Z-abcd", entries[0].RunID)
	assert.Equal(t, "remove_orphans", entries[0].Phase)
	assert.Equal(t, "delete_vector", entries[0].Action)
	assert.Equal(t, "vec-1", entries[0].VectorID)
	assert.Equal(t, StatusOK, entries[0].Status)
	assert.NotEmpty(t, entries[0].Timestamp)

	assert.Equal(t, StatusDryRun, entries[1].Status)
	assert.Equal(t, "would backfill", entries[1].Detail)
}

func TestExportEmptyLogStillWritesFile(t *testing.T) {
	log := NewLog("empty-run")
	path, err := log.Export(t.TempDir())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestEntriesReturnsCopy(t *testing.T) {
	log := NewLog("copy-run")
	log.Append("analyze", "count", "", "", StatusOK, "")

	entries := log.Entries()
	entries[0].Phase = "mutated"
	assert.Equal(t, "analyze", log.Entries()[0].Phase)
}
