package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KIMAHUI/NGS-Barcode-Count/internal/aggregate"
)

func readCSV(t *testing.T, path string, compressed bool) [][]string {
	t.Helper()
	fid, err := os.Open(path)
	require.NoError(t, err)
	defer fid.Close()

	var r *csv.Reader
	if compressed {
		r = csv.NewReader(snappy.NewReader(fid))
	} else {
		r = csv.NewReader(fid)
	}
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteCountsSinglePerSampleFile(t *testing.T) {
	store := aggregate.New(1)
	store.AddCount("AAAA", "CCCC")
	store.AddCount("AAAA", "CCCC")
	store.AddCount("GGGG", "TTTT")

	sampleDict := map[string]string{"AAAA": "sample-1", "GGGG": "sample-2"}
	bbDicts := []map[string]string{{"CCCC": "bb-C", "TTTT": "bb-T"}}

	dir := t.TempDir()
	require.NoError(t, WriteCounts(store, sampleDict, bbDicts, 1, dir, "run", false))

	rows1 := readCSV(t, filepath.Join(dir, "run_sample-1_counts.csv"), false)
	assert.Equal(t, []string{"BB_1", "Count"}, rows1[0])
	assert.Equal(t, []string{"bb-C", "2"}, rows1[1])

	rows2 := readCSV(t, filepath.Join(dir, "run_sample-2_counts.csv"), false)
	assert.Equal(t, []string{"bb-T", "1"}, rows2[1])
}

func TestWriteCountsNoSampleDictWritesSingleFile(t *testing.T) {
	store := aggregate.New(1)
	store.AddCount("", "AAAA")

	bbDicts := []map[string]string{{"AAAA": "bb-A"}}
	dir := t.TempDir()
	require.NoError(t, WriteCounts(store, nil, bbDicts, 1, dir, "run", false))

	rows := readCSV(t, filepath.Join(dir, "run_counts.csv"), false)
	assert.Equal(t, []string{"bb-A", "1"}, rows[1])
}

func TestWriteCountsCompressed(t *testing.T) {
	store := aggregate.New(1)
	store.AddCount("AAAA", "CCCC")

	sampleDict := map[string]string{"AAAA": "sample-1"}
	bbDicts := []map[string]string{{"CCCC": "bb-C"}}

	dir := t.TempDir()
	require.NoError(t, WriteCounts(store, sampleDict, bbDicts, 1, dir, "run", true))

	path := filepath.Join(dir, "run_sample-1_counts.csv.sz")
	require.FileExists(t, path)
	rows := readCSV(t, path, true)
	assert.Equal(t, []string{"bb-C", "1"}, rows[1])
}

func TestWriteCountsMultiPositionTuple(t *testing.T) {
	store := aggregate.New(1)
	store.AddCount("AAAA", "CCCC,GGGG")

	sampleDict := map[string]string{"AAAA": "sample-1"}
	bbDicts := []map[string]string{
		{"CCCC": "bb-C1"},
		{"GGGG": "bb-G2"},
	}

	dir := t.TempDir()
	require.NoError(t, WriteCounts(store, sampleDict, bbDicts, 2, dir, "run", false))

	rows := readCSV(t, filepath.Join(dir, "run_sample-1_counts.csv"), false)
	assert.Equal(t, []string{"BB_1", "BB_2", "Count"}, rows[0])
	assert.Equal(t, []string{"bb-C1", "bb-G2", "1"}, rows[1])
}

func TestWriteCountsUnrecognizedSampleKeyErrors(t *testing.T) {
	store := aggregate.New(1)
	store.AddCount("TTTT", "CCCC")

	sampleDict := map[string]string{"AAAA": "sample-1"}
	bbDicts := []map[string]string{{"CCCC": "bb-C"}}

	dir := t.TempDir()
	err := WriteCounts(store, sampleDict, bbDicts, 1, dir, "run", false)
	assert.Error(t, err)
}
