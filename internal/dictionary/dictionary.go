// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package dictionary loads the sample-barcode and counted-barcode
// lookup tables from their tab-separated file formats (§6).
package dictionary

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// LoadSampleDict parses a two-column tab-separated file (nucleotide
// string, sample name) into a map. All nucleotide strings must have
// the same length.
func LoadSampleDict(path string) (map[string]string, error) {
	fid, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening sample-barcode file %s", path)
	}
	defer fid.Close()

	dict := make(map[string]string)
	keyLen := -1

	scanner := bufio.NewScanner(fid)
	for lnum := 1; scanner.Scan(); lnum++ {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			return nil, errors.Errorf("sample-barcode file %s line %d: expected 2 tab-separated columns, got %d", path, lnum, len(fields))
		}
		seq, name := fields[0], fields[1]
		if keyLen == -1 {
			keyLen = len(seq)
		} else if len(seq) != keyLen {
			return nil, errors.Errorf("sample-barcode file %s line %d: nucleotide string length %d does not match earlier length %d", path, lnum, len(seq), keyLen)
		}
		dict[seq] = name
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading sample-barcode file %s", path)
	}

	return dict, nil
}

// LoadCountedBarcodeDict parses a three-column tab-separated file
// (1-indexed position, nucleotide string, building-block ID) into an
// ordered slice of maps, one per position, and returns the inferred
// barcode count N. Per-position key lengths must be uniform within
// that position but may differ across positions.
func LoadCountedBarcodeDict(path string) ([]map[string]string, int, error) {
	fid, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "opening counted-barcode file %s", path)
	}
	defer fid.Close()

	var dicts []map[string]string
	keyLens := make(map[int]int)

	scanner := bufio.NewScanner(fid)
	for lnum := 1; scanner.Scan(); lnum++ {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, 0, errors.Errorf("counted-barcode file %s line %d: expected 3 tab-separated columns, got %d", path, lnum, len(fields))
		}
		posStr, seq, bbID := fields[0], fields[1], fields[2]
		pos, err := strconv.Atoi(posStr)
		if err != nil || pos < 1 {
			return nil, 0, errors.Errorf("counted-barcode file %s line %d: invalid position %q", path, lnum, posStr)
		}

		if prev, ok := keyLens[pos]; ok {
			if len(seq) != prev {
				return nil, 0, errors.Errorf("counted-barcode file %s line %d: nucleotide string length %d at position %d does not match earlier length %d", path, lnum, len(seq), pos, prev)
			}
		} else {
			keyLens[pos] = len(seq)
		}

		for len(dicts) < pos {
			dicts = append(dicts, make(map[string]string))
		}
		dicts[pos-1][seq] = bbID
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, errors.Wrapf(err, "reading counted-barcode file %s", path)
	}

	if len(dicts) == 0 {
		return nil, 0, errors.Errorf("counted-barcode file %s has no rows", path)
	}
	for k, d := range dicts {
		if len(d) == 0 {
			return nil, 0, errors.Errorf("counted-barcode file %s has no entries for position %d", path, k+1)
		}
	}

	return dicts, len(dicts), nil
}
