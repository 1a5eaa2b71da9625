// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package worker implements the per-read parsing pipeline: locating
// and repairing the sequence-format template within a read, resolving
// its sample and counted-barcode windows against their dictionaries
// with bounded mismatch correction, and dispatching the result to the
// aggregate store. One Parser is built once and shared read-only by
// every worker goroutine; all of its mutable state lives in the
// aggregate.Store and metrics.Counters it was given.
package worker

import (
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"github.com/KIMAHUI/NGS-Barcode-Count/internal/aggregate"
	"github.com/KIMAHUI/NGS-Barcode-Count/internal/corrector"
	"github.com/KIMAHUI/NGS-Barcode-Count/internal/format"
	"github.com/KIMAHUI/NGS-Barcode-Count/internal/metrics"
	"github.com/KIMAHUI/NGS-Barcode-Count/internal/queue"
)

// Parser holds everything a read needs to be scored, immutable once
// constructed.
type Parser struct {
	descriptor *format.Descriptor
	store      *aggregate.Store
	counters   *metrics.Counters

	sampleDict map[string]string // nil: no sample dictionary, accept verbatim
	sampleSet  map[string]struct{}

	barcodeDicts []map[string]string // per position; nil entry: accept verbatim at that position
	barcodeSets  []map[string]struct{}

	maxConstantErrors int
	maxSampleErrors   int
	maxBarcodeErrors  []int
}

// NewParser builds a Parser. sampleDict and barcodeDicts may be nil
// (or contain nil entries) to mean "no dictionary for this window,
// accept the observed sequence verbatim," per spec.md §9.
func NewParser(d *format.Descriptor, store *aggregate.Store, counters *metrics.Counters,
	sampleDict map[string]string, barcodeDicts []map[string]string,
	maxConstantErrors, maxSampleErrors int, maxBarcodeErrors []int) *Parser {

	p := &Parser{
		descriptor:        d,
		store:             store,
		counters:          counters,
		sampleDict:        sampleDict,
		barcodeDicts:      barcodeDicts,
		maxConstantErrors: maxConstantErrors,
		maxSampleErrors:   maxSampleErrors,
		maxBarcodeErrors:  maxBarcodeErrors,
	}
	if sampleDict != nil {
		p.sampleSet = keySet(sampleDict)
	}
	p.barcodeSets = make([]map[string]struct{}, len(barcodeDicts))
	for i, bd := range barcodeDicts {
		if bd != nil {
			p.barcodeSets[i] = keySet(bd)
		}
	}
	return p
}

func keySet(m map[string]string) map[string]struct{} {
	s := make(map[string]struct{}, len(m))
	for k := range m {
		s[k] = struct{}{}
	}
	return s
}

// ProcessRead runs the full per-read pipeline against one raw read
// sequence. A non-nil error is thread-fatal (a structural problem
// with the compiled descriptor, not an ordinary per-read rejection);
// ordinary rejections are recorded in the counters and never returned
// as errors.
func (p *Parser) ProcessRead(read string) error {
	groups, ok := p.matchRead(read)
	if !ok {
		p.counters.ConstantRegionError()
		return nil
	}

	// sampleKey and the tuple's building-block fields stay as
	// (corrected) nucleotide strings here; translating them to their
	// dictionary values is deferred to drain time (output.WriteCounts)
	// so the hot path never takes a second dictionary lookup per read.
	var sampleKey string
	if p.descriptor.HasSample && p.sampleDict != nil {
		corrected, ok := corrector.CorrectSet(groups["sample"], p.sampleSet, p.maxSampleErrors)
		if !ok {
			p.counters.SampleBarcodeError()
			return nil
		}
		sampleKey = corrected
	}

	bbKeys := make([]string, p.descriptor.BarcodeCount)
	for k := 1; k <= p.descriptor.BarcodeCount; k++ {
		name := format.BarcodeGroup(k)
		raw, present := groups[name]
		if !present {
			return errors.Errorf("compiled format has no capture group %q", name)
		}

		idx := k - 1
		bbKeys[idx] = raw
		if idx < len(p.barcodeSets) && p.barcodeSets[idx] != nil {
			budget := 1
			if idx < len(p.maxBarcodeErrors) {
				budget = p.maxBarcodeErrors[idx]
			}
			corrected, ok := corrector.CorrectSet(raw, p.barcodeSets[idx], budget)
			if !ok {
				p.counters.BarcodeError()
				return nil
			}
			bbKeys[idx] = corrected
		}
	}
	tuple := strings.Join(bbKeys, ",")

	if p.descriptor.HasRandom {
		random := groups["random"]
		if isNew := p.store.AddRandom(sampleKey, random, tuple); !isNew {
			p.counters.Duplicated()
			return nil
		}
	} else {
		p.store.AddCount(sampleKey, tuple)
	}
	p.counters.CorrectMatch()
	return nil
}

// matchRead locates the compiled template within read, repairing its
// constant region first if a verbatim regex match fails, and returns
// the named capture groups. ok is false if no alignment within the
// constant-region mismatch budget could be found.
func (p *Parser) matchRead(read string) (map[string]string, bool) {
	if m := p.descriptor.FormatRegex.FindStringSubmatch(read); m != nil {
		return namedGroups(p.descriptor.FormatRegex, m), true
	}

	repaired, ok := FixConstantRegion(read, p.descriptor.Skeleton, p.maxConstantErrors)
	if !ok {
		return nil, false
	}
	m := p.descriptor.FormatRegex.FindStringSubmatch(repaired)
	if m == nil {
		return nil, false
	}
	return namedGroups(p.descriptor.FormatRegex, m), true
}

func namedGroups(re interface {
	SubexpNames() []string
}, m []string) map[string]string {
	names := re.SubexpNames()
	out := make(map[string]string, len(names))
	for i, name := range names {
		if name == "" {
			continue
		}
		out[name] = m[i]
	}
	return out
}

// Run pops reads from q and scores each through p until the queue is
// both empty and marked finished, or until onFatal reports an error
// from ProcessRead (which stops this worker but lets its siblings
// drain the remainder). It never returns an error itself; fatal
// conditions are reported through onFatal so the caller can decide
// whether to cancel the whole run.
func Run(p *Parser, q *queue.Queue, onFatal func(error)) {
	for {
		seq, ok := q.Pop()
		if !ok {
			if !q.Finished() {
				runtime.Gosched()
				continue
			}
			// The last push may have landed between the empty Pop and
			// the Finished check; pop once more before stopping.
			if seq, ok = q.Pop(); !ok {
				return
			}
		}
		if err := p.ProcessRead(seq); err != nil {
			onFatal(err)
			return
		}
	}
}
