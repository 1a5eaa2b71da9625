// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package metrics holds the process-wide, per-read rejection-cause
// counters. All five counters are independent atomics; no
// cross-counter consistency is required beyond their sum equaling the
// total number of reads consumed.
package metrics

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Counters tracks the outcome of every read processed by the worker
// pool. The zero value is ready to use.
type Counters struct {
	correct             uint64
	constantRegionError uint64
	sampleBarcodeError  uint64
	countedBarcodeError uint64
	duplicated          uint64
}

// CorrectMatch records a fully corrected, counted (or newly
// deduplicated) read.
func (c *Counters) CorrectMatch() { atomic.AddUint64(&c.correct, 1) }

// ConstantRegionError records a read whose constant region could not
// be located within budget.
func (c *Counters) ConstantRegionError() { atomic.AddUint64(&c.constantRegionError, 1) }

// SampleBarcodeError records a read whose sample window had no unique
// near neighbor.
func (c *Counters) SampleBarcodeError() { atomic.AddUint64(&c.sampleBarcodeError, 1) }

// BarcodeError records a read whose counted-barcode window had no
// unique near neighbor.
func (c *Counters) BarcodeError() { atomic.AddUint64(&c.countedBarcodeError, 1) }

// Duplicated records a read whose UMI had already been observed for
// its (sample, tuple) key.
func (c *Counters) Duplicated() { atomic.AddUint64(&c.duplicated, 1) }

// Snapshot is a point-in-time, non-atomic copy of the counters,
// convenient for display and for the conservation invariant check.
type Snapshot struct {
	Correct             uint64
	ConstantRegionError uint64
	SampleBarcodeError  uint64
	BarcodeError        uint64
	Duplicated          uint64
}

// Total returns the sum of all five counters, which must equal the
// number of reads consumed.
func (s Snapshot) Total() uint64 {
	return s.Correct + s.ConstantRegionError + s.SampleBarcodeError + s.BarcodeError + s.Duplicated
}

// Load takes a consistent-enough snapshot of the counters for
// reporting purposes. Individual fields may be read at slightly
// different instants relative to one another; this is acceptable
// since cross-counter consistency is not contractual mid-run.
func (c *Counters) Load() Snapshot {
	return Snapshot{
		Correct:             atomic.LoadUint64(&c.correct),
		ConstantRegionError: atomic.LoadUint64(&c.constantRegionError),
		SampleBarcodeError:  atomic.LoadUint64(&c.sampleBarcodeError),
		BarcodeError:        atomic.LoadUint64(&c.countedBarcodeError),
		Duplicated:          atomic.LoadUint64(&c.duplicated),
	}
}

// Display writes all five counters and their percentage of the
// running total to w. Safe to call mid-run as a progress ticker as
// well as once at the end.
func (c *Counters) Display(w io.Writer) {
	s := c.Load()
	total := s.Total()
	pct := func(n uint64) float64 {
		if total == 0 {
			return 0
		}
		return 100 * float64(n) / float64(total)
	}
	fmt.Fprintf(w, "correct_match:          %10d  (%5.1f%%)\n", s.Correct, pct(s.Correct))
	fmt.Fprintf(w, "constant_region_error:  %10d  (%5.1f%%)\n", s.ConstantRegionError, pct(s.ConstantRegionError))
	fmt.Fprintf(w, "sample_barcode_error:   %10d  (%5.1f%%)\n", s.SampleBarcodeError, pct(s.SampleBarcodeError))
	fmt.Fprintf(w, "barcode_error:          %10d  (%5.1f%%)\n", s.BarcodeError, pct(s.BarcodeError))
	fmt.Fprintf(w, "duplicated:             %10d  (%5.1f%%)\n", s.Duplicated, pct(s.Duplicated))
	fmt.Fprintf(w, "total:                  %10d\n", total)
}
