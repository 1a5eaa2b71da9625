// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package output writes the final per-sample hit-count tables (§6).
// Every row stored by the aggregate store keys on raw (corrected)
// nucleotide strings; this package performs the one dictionary
// translation pass, from nucleotide key to sample name and
// building-block ID, at drain time. Output is optionally
// snappy-compressed, the same way the teacher's stream tools choose
// between a plain os.Create handle and a snappy.Writer over it.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/KIMAHUI/NGS-Barcode-Count/internal/aggregate"
)

// WriteCounts drains store and writes one CSV file per sample into
// outDir, named "<prefix>_<sample>_counts.csv", or a single
// "<prefix>_counts.csv" when sampleDict is nil (no sample dictionary
// was supplied). Each row's counted-barcode tuple is translated through
// bbDicts from nucleotide key to building-block ID; barcodeCount is
// the descriptor's N, used for the BB_1..BB_N header even when no
// counted-barcode dictionary was supplied. If compress is true, files
// are written through a snappy.Writer with a ".sz" name suffix.
func WriteCounts(store *aggregate.Store, sampleDict map[string]string, bbDicts []map[string]string, barcodeCount int, outDir, prefix string, compress bool) error {
	drained := store.Drain()

	if sampleDict == nil {
		fname := filepath.Join(outDir, prefix+"_counts.csv")
		return writeSampleFile(fname, drained[""], bbDicts, barcodeCount, compress)
	}

	for sampleKey, rows := range drained {
		name, ok := sampleDict[sampleKey]
		if !ok {
			return errors.Errorf("aggregate store holds unrecognized sample key %q", sampleKey)
		}
		fname := filepath.Join(outDir, fmt.Sprintf("%s_%s_counts.csv", prefix, sanitize(name)))
		if err := writeSampleFile(fname, rows, bbDicts, barcodeCount, compress); err != nil {
			return err
		}
	}
	return nil
}

// sanitize keeps sample names usable as file name components.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '\t':
			return '_'
		}
		return r
	}, s)
}

func writeSampleFile(fname string, rows []aggregate.TupleCount, bbDicts []map[string]string, barcodeCount int, compress bool) error {
	if compress {
		fname += ".sz"
	}
	fid, err := os.Create(fname)
	if err != nil {
		return errors.Wrapf(err, "creating output file %s", fname)
	}
	defer fid.Close()

	var w io.Writer = fid
	if compress {
		sw := snappy.NewWriter(fid)
		defer sw.Close()
		w = sw
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header(barcodeCount)); err != nil {
		return errors.Wrapf(err, "writing header to %s", fname)
	}
	for _, row := range rows {
		record, err := translateTuple(row.Tuple, bbDicts)
		if err != nil {
			return errors.Wrapf(err, "writing row to %s", fname)
		}
		record = append(record, strconv.FormatUint(row.Count, 10))
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "writing row to %s", fname)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrapf(err, "flushing %s", fname)
	}
	return nil
}

func header(n int) []string {
	h := make([]string, 0, n+1)
	for k := 1; k <= n; k++ {
		h = append(h, fmt.Sprintf("BB_%d", k))
	}
	return append(h, "Count")
}

// translateTuple splits a comma-joined nucleotide-key tuple into its
// positional fields and translates each through the matching
// building-block dictionary. A position with no dictionary (the
// counted-barcode file was not supplied for it) is passed through
// verbatim.
func translateTuple(tuple string, bbDicts []map[string]string) ([]string, error) {
	if tuple == "" {
		return nil, nil
	}
	fields := strings.Split(tuple, ",")
	out := make([]string, len(fields))
	for i, key := range fields {
		if i >= len(bbDicts) || bbDicts[i] == nil {
			out[i] = key
			continue
		}
		id, ok := bbDicts[i][key]
		if !ok {
			return nil, errors.Errorf("position %d: no building-block ID for key %q", i+1, key)
		}
		out[i] = id
	}
	return out, nil
}
