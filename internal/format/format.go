// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package format compiles a user-supplied sequence-format template into
// a Descriptor: a named-group regular expression that captures each
// variable window of a read, plus a wildcard skeleton string used by
// the constant-region locator to recover the template's position
// within a read that does not match the regex verbatim.
package format

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	sampleChar  byte = 'S'
	barcodeChar byte = 'B'
	randomChar  byte = 'N'
	skeletonAny byte = '*'
)

// Descriptor is the immutable, compiled form of a sequence-format
// template. It is constructed once at startup and shared read-only by
// every worker.
type Descriptor struct {
	// Template is the raw template string (whitespace stripped),
	// constant nucleotides literal, variable windows marked with
	// their placeholder runs.
	Template string

	// Skeleton is Template with every variable-window character
	// replaced by '*'. Constant-region characters are verbatim.
	Skeleton string

	// FormatRegex captures each variable window by name: "sample",
	// "barcode1".."barcodeN", "random".
	FormatRegex *regexp.Regexp

	// BarcodeCount is N, the number of counted-barcode windows.
	BarcodeCount int

	// HasSample is true if the template contains a sample window.
	HasSample bool

	// HasRandom is true if the template contains a random window.
	HasRandom bool
}

// BarcodeGroup returns the regex group name for counted-barcode
// position k (1-indexed).
func BarcodeGroup(k int) string {
	return "barcode" + strconv.Itoa(k)
}

type tokenKind int

const (
	tokConst tokenKind = iota
	tokSample
	tokBarcode
	tokRandom
)

type token struct {
	kind tokenKind
	text string // literal text for tokConst, placeholder run otherwise
}

// tokenize splits template into maximal runs of identical characters.
func tokenize(template string) []token {
	var toks []token
	i := 0
	for i < len(template) {
		j := i + 1
		for j < len(template) && template[j] == template[i] {
			j++
		}
		run := template[i:j]
		var kind tokenKind
		switch template[i] {
		case sampleChar:
			kind = tokSample
		case barcodeChar:
			kind = tokBarcode
		case randomChar:
			kind = tokRandom
		default:
			kind = tokConst
		}
		toks = append(toks, token{kind: kind, text: run})
		i = j
	}
	return toks
}

// Compile builds a Descriptor from a whitespace-free template string.
// At most one sample run and at most one random run are permitted; at
// least one barcode run is required.
func Compile(template string) (*Descriptor, error) {
	if template == "" {
		return nil, errors.New("empty sequence-format template")
	}
	for i := 0; i < len(template); i++ {
		switch template[i] {
		case 'A', 'C', 'G', 'T', sampleChar, barcodeChar, randomChar:
		default:
			return nil, errors.Errorf("invalid character %q in sequence-format template", template[i])
		}
	}

	toks := tokenize(template)

	var pat strings.Builder
	var skel strings.Builder
	pat.WriteString("^")

	nSample, nRandom, nBarcode := 0, 0, 0
	group := func(name string, width int) string {
		return "(?P<" + name + ">.{" + strconv.Itoa(width) + "})"
	}
	for _, tok := range toks {
		switch tok.kind {
		case tokConst:
			pat.WriteString(regexp.QuoteMeta(tok.text))
			skel.WriteString(tok.text)
		case tokSample:
			nSample++
			if nSample > 1 {
				return nil, errors.New("sequence-format template has more than one sample window")
			}
			pat.WriteString(group("sample", len(tok.text)))
			skel.WriteString(strings.Repeat(string(skeletonAny), len(tok.text)))
		case tokRandom:
			nRandom++
			if nRandom > 1 {
				return nil, errors.New("sequence-format template has more than one random window")
			}
			pat.WriteString(group("random", len(tok.text)))
			skel.WriteString(strings.Repeat(string(skeletonAny), len(tok.text)))
		case tokBarcode:
			nBarcode++
			pat.WriteString(group(BarcodeGroup(nBarcode), len(tok.text)))
			skel.WriteString(strings.Repeat(string(skeletonAny), len(tok.text)))
		}
	}
	pat.WriteString("$")

	if nBarcode == 0 {
		return nil, errors.New("sequence-format template has no counted-barcode window")
	}

	re, err := regexp.Compile(pat.String())
	if err != nil {
		return nil, errors.Wrap(err, "compiling sequence-format regex")
	}

	return &Descriptor{
		Template:     template,
		Skeleton:     skel.String(),
		FormatRegex:  re,
		BarcodeCount: nBarcode,
		HasSample:    nSample == 1,
		HasRandom:    nRandom == 1,
	}, nil
}

// ParseFile reads a sequence-format template file, stripping all
// whitespace and newlines, and compiles it.
func ParseFile(path string) (*Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sequence-format file %s", path)
	}
	var sb strings.Builder
	for _, r := range string(raw) {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		}
		sb.WriteRune(r)
	}
	d, err := Compile(sb.String())
	if err != nil {
		return nil, errors.Wrapf(err, "parsing sequence-format file %s", path)
	}
	return d, nil
}
