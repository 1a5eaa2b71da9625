// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package corrector implements bounded-Hamming-distance nearest-neighbor
// correction of a query string against a set of candidate strings, with
// 'N' treated as a wildcard on either side of the comparison.
package corrector

// isWildcard reports whether c matches any character at its position:
// 'N' for an undetermined sequencer call, '*' for a format skeleton's
// variable-window placeholder.
func isWildcard(c byte) bool {
	return c == 'N' || c == '*'
}

// Hamming returns the number of mismatched positions between a and b,
// treating 'N' or '*' in either string as a match at that position. a
// and b must be the same length.
func Hamming(a, b string) int {
	var n int
	for i := 0; i < len(a); i++ {
		x, y := a[i], b[i]
		if x != y && !isWildcard(x) && !isWildcard(y) {
			n++
		}
	}
	return n
}

// hammingBounded is like Hamming but stops counting as soon as the
// running mismatch total strictly exceeds limit, returning a value
// greater than limit (not necessarily the exact count) in that case.
func hammingBounded(a, b string, limit int) int {
	var n int
	for i := 0; i < len(a); i++ {
		x, y := a[i], b[i]
		if x != y && !isWildcard(x) && !isWildcard(y) {
			n++
			if n > limit {
				return n
			}
		}
	}
	return n
}

// Correct returns the unique candidate c in candidates such that
// Hamming(query, c) <= budget and Hamming(query, c) is strictly less
// than the Hamming distance of every other candidate within budget.
// It returns ("", false) if no candidate is within budget, or if two
// or more candidates tie for the best distance (including a tie at
// the budget boundary itself).
//
// All candidates must be the same length as query; candidates of a
// different length are skipped (never returned and never considered
// for the tie check), matching the contract that callers only ever
// present same-length windows.
func Correct(query string, candidates []string, budget int) (string, bool) {
	best := budget + 1
	var bestCand string
	tie := false

	for _, c := range candidates {
		if len(c) != len(query) {
			continue
		}
		d := hammingBounded(query, c, best)
		if d > best {
			continue
		}
		if d < best {
			best = d
			bestCand = c
			tie = false
		} else {
			// d == best: either a genuine tie at the new best,
			// or a tie at the boundary we started with.
			tie = true
		}
	}

	if tie || best > budget {
		return "", false
	}
	return bestCand, true
}

// CorrectSet is Correct over a set of candidates rather than a slice,
// avoiding the need for callers holding a dictionary (map[string]T)
// to materialize a parallel slice of its keys on every call.
func CorrectSet(query string, candidates map[string]struct{}, budget int) (string, bool) {
	best := budget + 1
	var bestCand string
	tie := false

	for c := range candidates {
		if len(c) != len(query) {
			continue
		}
		d := hammingBounded(query, c, best)
		if d > best {
			continue
		}
		if d < best {
			best = d
			bestCand = c
			tie = false
		} else {
			tie = true
		}
	}

	if tie || best > budget {
		return "", false
	}
	return bestCand, true
}
