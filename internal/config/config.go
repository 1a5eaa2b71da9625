// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package config holds the run configuration, generalizing the
// teacher's utils.Config/ReadConfig shape to this tool's CLI surface
// (§6). A Config may be loaded from a JSON file and then overridden by
// command-line flags, matching the teacher's handleArgs precedence.
package config

import (
	"encoding/json"
	"os"
	"runtime"

	"github.com/pkg/errors"
)

// Config is the full set of run parameters: required inputs, optional
// dictionary files, and the implementation-choice knobs spec.md §9
// leaves open (mismatch budgets, queue capacity, shard count).
type Config struct {
	// Required.
	ReadFileName   string
	FormatFileName string

	// Optional collaborators; absent means "accept verbatim" / "no
	// translation" per spec.md §9.
	SampleBarcodeFileName  string
	CountedBarcodeFileName string

	// Output.
	OutputDir string
	Prefix    string
	Compress  bool

	// Concurrency.
	Threads int

	// Mismatch budgets (§3 "Mismatch budgets").
	MaxConstantErrors int
	MaxSampleErrors   int
	MaxBarcodeErrors  []int // per counted-barcode position; Validate replicates a single shared value to every position

	// Implementation-choice resource knobs (§5, §9).
	QueueSoftCap int
	NumShards    int

	// Diagnostics.
	CPUProfile bool
}

// Default returns a Config with every non-required field set to its
// documented default.
func Default() *Config {
	return &Config{
		OutputDir:         ".",
		Threads:           runtime.NumCPU(),
		MaxConstantErrors: 2,
		MaxSampleErrors:   1,
		QueueSoftCap:      100000,
		NumShards:         1,
	}
}

// Load reads a JSON configuration file into a new Config seeded with
// defaults.
func Load(path string) (*Config, error) {
	fid, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening config file %s", path)
	}
	defer fid.Close()

	c := Default()
	dec := json.NewDecoder(fid)
	if err := dec.Decode(c); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %s", path)
	}
	return c, nil
}

// Validate checks that every required field is present and that
// per-window budgets are internally consistent. barcodeCount is the N
// inferred from the compiled sequence format; it is used to expand a
// single shared MaxBarcodeErrors value to one per position, or to
// confirm an explicit per-position list has the right length.
func (c *Config) Validate(barcodeCount int) error {
	if c.ReadFileName == "" {
		return errors.New("ReadFileName is required")
	}
	if c.FormatFileName == "" {
		return errors.New("FormatFileName is required")
	}
	if c.Threads < 1 {
		c.Threads = runtime.NumCPU()
	}
	if c.NumShards < 1 {
		c.NumShards = 1
	}
	switch len(c.MaxBarcodeErrors) {
	case 0:
		budgets := make([]int, barcodeCount)
		for i := range budgets {
			budgets[i] = 1
		}
		c.MaxBarcodeErrors = budgets
	case 1:
		v := c.MaxBarcodeErrors[0]
		budgets := make([]int, barcodeCount)
		for i := range budgets {
			budgets[i] = v
		}
		c.MaxBarcodeErrors = budgets
	default:
		if len(c.MaxBarcodeErrors) != barcodeCount {
			return errors.Errorf("MaxBarcodeErrors has %d entries, expected 1 or %d", len(c.MaxBarcodeErrors), barcodeCount)
		}
	}
	return nil
}
