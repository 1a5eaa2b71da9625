// Copyright 2017, Kerby Shedden and the Muscato contributors.

package worker

import (
	"github.com/KIMAHUI/NGS-Barcode-Count/internal/corrector"
)

// candidateOffsets returns every offset in [0, lengthDiff] at which the
// skeleton might align with read, per spec.md §4.3 step 2. A prior
// revision narrowed this list with a rolling-hash anchor prefilter for
// large lengthDiff; it was removed because an exact-hash shortlist can
// exclude the true best offset whenever the anchor region itself
// carries a mismatch that is still within budget, silently repairing
// against the wrong window instead of the one corrector.Correct would
// have chosen from the full offset range. Exhaustive is the only
// option that is always correct, so that's what this returns.
func candidateOffsets(lengthDiff int) []int {
	offs := make([]int, lengthDiff+1)
	for i := range offs {
		offs[i] = i
	}
	return offs
}

// FixConstantRegion attempts to locate the compiled skeleton within
// read, allowing up to budget mismatches against the skeleton's
// literal (non-wildcard) positions. On success it returns a repaired
// read of the same length as skeleton, with every literal position
// forced to skeleton's own character and every wildcard position
// taken from the chosen offset window of read (spec.md §4.3 step 4).
// On failure it returns ("", false).
func FixConstantRegion(read, skeleton string, budget int) (string, bool) {
	lengthDiff := len(read) - len(skeleton)
	if lengthDiff < 0 {
		return "", false
	}

	offsets := candidateOffsets(lengthDiff)
	windows := make([]string, len(offsets))
	for i, off := range offsets {
		windows[i] = read[off : off+len(skeleton)]
	}

	best, ok := corrector.Correct(skeleton, windows, budget)
	if !ok {
		return "", false
	}

	repaired := make([]byte, len(skeleton))
	for i := 0; i < len(skeleton); i++ {
		if skeleton[i] == '*' {
			repaired[i] = best[i]
		} else {
			repaired[i] = skeleton[i]
		}
	}
	return string(repaired), true
}
