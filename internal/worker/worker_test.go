package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KIMAHUI/NGS-Barcode-Count/internal/aggregate"
	"github.com/KIMAHUI/NGS-Barcode-Count/internal/format"
	"github.com/KIMAHUI/NGS-Barcode-Count/internal/metrics"
)

// newTestParser builds a descriptor SSSSAA BBBB NN GGG (sample,
// constant anchor, one barcode window, one random window, constant
// tail), with a two-entry sample dictionary and a four-entry
// single-position barcode dictionary.
func newTestParser(t *testing.T, maxConstant, maxSample int, maxBarcode []int) (*Parser, *aggregate.Store, *metrics.Counters) {
	t.Helper()
	d, err := format.Compile("SSSSAABBBBNNGGG")
	require.NoError(t, err)

	sampleDict := map[string]string{
		"AAAA": "sample-1",
		"CCCC": "sample-2",
	}
	barcodeDicts := []map[string]string{
		{
			"AAAA": "bb-A",
			"CCCC": "bb-C",
			"GGGG": "bb-G",
			"TTTT": "bb-T",
		},
	}

	store := aggregate.New(1)
	counters := &metrics.Counters{}
	p := NewParser(d, store, counters, sampleDict, barcodeDicts, maxConstant, maxSample, maxBarcode)
	return p, store, counters
}

func TestProcessReadExactMatch(t *testing.T) {
	p, store, counters := newTestParser(t, 2, 1, []int{1})
	read := "AAAA" + "AA" + "AAAA" + "TT" + "GGG"
	require.NoError(t, p.ProcessRead(read))

	snap := counters.Load()
	assert.Equal(t, uint64(1), snap.Correct)
	assert.Equal(t, uint64(0), snap.ConstantRegionError)

	rows := store.Drain()["AAAA"]
	require.Len(t, rows, 1)
	assert.Equal(t, "AAAA", rows[0].Tuple)
	assert.Equal(t, uint64(1), rows[0].Count)
}

func TestProcessReadSampleOneMismatchRescued(t *testing.T) {
	p, store, counters := newTestParser(t, 2, 1, []int{1})
	// AAAA -> AAAT: one mismatch, unique nearest neighbor within budget 1.
	read := "AAAT" + "AA" + "AAAA" + "TT" + "GGG"
	require.NoError(t, p.ProcessRead(read))

	snap := counters.Load()
	assert.Equal(t, uint64(1), snap.Correct)

	rows := store.Drain()["AAAA"]
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(1), rows[0].Count)
}

func TestProcessReadSampleAmbiguousRejected(t *testing.T) {
	// AACC is equidistant (distance 2) from both AAAA and CCCC; a
	// budget of 2 admits either candidate, so the tie must reject the
	// read rather than guess.
	p, _, counters := newTestParser(t, 2, 2, []int{1})
	read := "AACC" + "AA" + "AAAA" + "TT" + "GGG"
	require.NoError(t, p.ProcessRead(read))

	snap := counters.Load()
	assert.Equal(t, uint64(1), snap.SampleBarcodeError)
	assert.Equal(t, uint64(0), snap.Correct)
}

func TestProcessReadConstantRegionRepaired(t *testing.T) {
	p, store, counters := newTestParser(t, 2, 1, []int{1})
	// Corrupt one base of the "AA" constant anchor (-> "AT"); the
	// verbatim regex match fails but the skeleton has a unique
	// within-budget alignment at offset 0, and the repaired read's
	// variable windows are taken verbatim from the original read.
	read := "AAAA" + "AT" + "AAAA" + "TT" + "GGG"
	require.NoError(t, p.ProcessRead(read))

	snap := counters.Load()
	assert.Equal(t, uint64(1), snap.Correct)
	assert.Equal(t, uint64(0), snap.ConstantRegionError)

	rows := store.Drain()["AAAA"]
	require.Len(t, rows, 1)
	assert.Equal(t, "AAAA", rows[0].Tuple)
}

func TestProcessReadConstantRegionUnrecoverable(t *testing.T) {
	p, _, counters := newTestParser(t, 0, 1, []int{1})
	read := "AAAA" + "TT" + "AAAA" + "TT" + "GGG"
	require.NoError(t, p.ProcessRead(read))

	snap := counters.Load()
	assert.Equal(t, uint64(1), snap.ConstantRegionError)
	assert.Equal(t, uint64(0), snap.Correct)
}

func TestProcessReadUMIDeduplication(t *testing.T) {
	p, store, counters := newTestParser(t, 2, 1, []int{1})
	read := "AAAA" + "AA" + "AAAA" + "TT" + "GGG"

	require.NoError(t, p.ProcessRead(read))
	require.NoError(t, p.ProcessRead(read)) // identical UMI "TT" -> duplicate

	snap := counters.Load()
	assert.Equal(t, uint64(1), snap.Correct)
	assert.Equal(t, uint64(1), snap.Duplicated)

	rows := store.Drain()["AAAA"]
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(1), rows[0].Count)
}

func TestProcessReadUMIDistinctBothCount(t *testing.T) {
	p, store, counters := newTestParser(t, 2, 1, []int{1})
	read1 := "AAAA" + "AA" + "AAAA" + "TT" + "GGG"
	read2 := "AAAA" + "AA" + "AAAA" + "GG" + "GGG"

	require.NoError(t, p.ProcessRead(read1))
	require.NoError(t, p.ProcessRead(read2))

	snap := counters.Load()
	assert.Equal(t, uint64(2), snap.Correct)
	assert.Equal(t, uint64(0), snap.Duplicated)

	rows := store.Drain()["AAAA"]
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(2), rows[0].Count)
}

func TestProcessReadCountedBarcodeFailureShortCircuits(t *testing.T) {
	p, _, counters := newTestParser(t, 2, 1, []int{0})
	// Barcode window "ACGT" is distance >= 1 from every dictionary
	// entry under a zero-mismatch budget.
	read := "AAAA" + "AA" + "ACGT" + "TT" + "GGG"
	require.NoError(t, p.ProcessRead(read))

	snap := counters.Load()
	assert.Equal(t, uint64(1), snap.BarcodeError)
	assert.Equal(t, uint64(0), snap.Correct)
}

func TestProcessReadBarcodeVerbatimWithoutDictionary(t *testing.T) {
	d, err := format.Compile("BBBB")
	require.NoError(t, err)
	store := aggregate.New(1)
	counters := &metrics.Counters{}
	p := NewParser(d, store, counters, nil, []map[string]string{nil}, 2, 1, []int{1})

	require.NoError(t, p.ProcessRead("ACGT"))

	rows := store.Drain()[""]
	require.Len(t, rows, 1)
	assert.Equal(t, "ACGT", rows[0].Tuple)
}
