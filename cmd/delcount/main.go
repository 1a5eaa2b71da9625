// Copyright 2017, Kerby Shedden and the Muscato contributors.

// delcount counts DNA-Encoded Library hits from a FASTQ file of
// sequencing reads against a user-supplied sequence-format template
// and barcode dictionaries.
//
// delcount can be invoked either using a configuration file in JSON
// format, or using command-line flags; flags given a non-zero value
// override values loaded from the configuration file. A typical
// invocation using flags is:
//
// delcount --ReadFileName=reads.fastq --FormatFileName=format.txt
//    --SampleBarcodeFileName=samples.txt --CountedBarcodeFileName=bb.txt
//    --OutputDir=results --Threads=8
//
// To use a JSON config file instead:
//
// delcount --ConfigFileName=config.json
//
// See internal/config.Config for the full set of configuration
// parameters.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/profile"

	"github.com/KIMAHUI/NGS-Barcode-Count/internal/aggregate"
	"github.com/KIMAHUI/NGS-Barcode-Count/internal/config"
	"github.com/KIMAHUI/NGS-Barcode-Count/internal/dictionary"
	"github.com/KIMAHUI/NGS-Barcode-Count/internal/format"
	"github.com/KIMAHUI/NGS-Barcode-Count/internal/metrics"
	"github.com/KIMAHUI/NGS-Barcode-Count/internal/output"
	"github.com/KIMAHUI/NGS-Barcode-Count/internal/queue"
	"github.com/KIMAHUI/NGS-Barcode-Count/internal/reader"
	"github.com/KIMAHUI/NGS-Barcode-Count/internal/worker"
)

func handleArgs() *config.Config {
	ConfigFileName := flag.String("ConfigFileName", "", "JSON file containing configuration parameters")
	ReadFileName := flag.String("ReadFileName", "", "Sequencing read file (fastq format)")
	FormatFileName := flag.String("FormatFileName", "", "Sequence-format template file")
	SampleBarcodeFileName := flag.String("SampleBarcodeFileName", "", "Sample-barcode dictionary file")
	CountedBarcodeFileName := flag.String("CountedBarcodeFileName", "", "Counted-barcode dictionary file")
	OutputDir := flag.String("OutputDir", "", "Directory for output files")
	Prefix := flag.String("Prefix", "", "Filename prefix for output files (default: today's date)")
	Compress := flag.Bool("Compress", false, "Snappy-compress output files")
	Threads := flag.Int("Threads", 0, "Number of threads: one reader plus Threads-1 workers, at least one worker (default: logical CPU count)")
	MaxConstantErrors := flag.Int("MaxConstantErrors", 0, "Mismatch budget for the constant-region skeleton")
	MaxSampleErrors := flag.Int("MaxSampleErrors", 0, "Mismatch budget for the sample window")
	MaxBarcodeErrors := flag.String("MaxBarcodeErrors", "", "Comma-separated per-position mismatch budget for counted-barcode windows (a single value applies to every position)")
	QueueSoftCap := flag.Int("QueueSoftCap", 0, "Soft capacity of the shared read queue")
	NumShards := flag.Int("NumShards", 0, "Number of aggregate-store shards")
	CPUProfile := flag.Bool("CPUProfile", false, "Capture CPU profile data")

	flag.Parse()

	var cfg *config.Config
	if *ConfigFileName != "" {
		var err error
		cfg, err = config.Load(*ConfigFileName)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		cfg = config.Default()
	}

	if *ReadFileName != "" {
		cfg.ReadFileName = *ReadFileName
	}
	if *FormatFileName != "" {
		cfg.FormatFileName = *FormatFileName
	}
	if *SampleBarcodeFileName != "" {
		cfg.SampleBarcodeFileName = *SampleBarcodeFileName
	}
	if *CountedBarcodeFileName != "" {
		cfg.CountedBarcodeFileName = *CountedBarcodeFileName
	}
	if *OutputDir != "" {
		cfg.OutputDir = *OutputDir
	}
	if *Prefix != "" {
		cfg.Prefix = *Prefix
	}
	if *Compress {
		cfg.Compress = true
	}
	if *Threads != 0 {
		cfg.Threads = *Threads
	}
	if *MaxConstantErrors != 0 {
		cfg.MaxConstantErrors = *MaxConstantErrors
	}
	if *MaxSampleErrors != 0 {
		cfg.MaxSampleErrors = *MaxSampleErrors
	}
	if *MaxBarcodeErrors != "" {
		budgets, err := parseIntList(*MaxBarcodeErrors)
		if err != nil {
			log.Fatal(err)
		}
		cfg.MaxBarcodeErrors = budgets
	}
	if *QueueSoftCap != 0 {
		cfg.QueueSoftCap = *QueueSoftCap
	}
	if *NumShards != 0 {
		cfg.NumShards = *NumShards
	}
	if *CPUProfile {
		cfg.CPUProfile = true
	}

	if cfg.Prefix == "" {
		cfg.Prefix = time.Now().Format("2006-01-02")
	}
	if cfg.Threads == 0 {
		cfg.Threads = runtime.NumCPU()
	}

	return cfg
}

func parseIntList(s string) ([]int, error) {
	fields := strings.Split(s, ",")
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("invalid MaxBarcodeErrors entry %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}

func main() {
	cfg := handleArgs()

	if cfg.CPUProfile {
		p := profile.Start(profile.ProfilePath("."))
		defer p.Stop()
	}

	runID, err := uuid.NewUUID()
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("starting run %s", runID)

	descriptor, err := format.ParseFile(cfg.FormatFileName)
	if err != nil {
		log.Fatal(err)
	}

	if err := cfg.Validate(descriptor.BarcodeCount); err != nil {
		log.Fatal(err)
	}

	var sampleDict map[string]string
	if cfg.SampleBarcodeFileName != "" {
		sampleDict, err = dictionary.LoadSampleDict(cfg.SampleBarcodeFileName)
		if err != nil {
			log.Fatal(err)
		}
	}

	var barcodeDicts []map[string]string
	if cfg.CountedBarcodeFileName != "" {
		barcodeDicts, _, err = dictionary.LoadCountedBarcodeDict(cfg.CountedBarcodeFileName)
		if err != nil {
			log.Fatal(err)
		}
	}

	store := aggregate.New(cfg.NumShards)
	counters := &metrics.Counters{}
	parser := worker.NewParser(descriptor, store, counters, sampleDict, barcodeDicts,
		cfg.MaxConstantErrors, cfg.MaxSampleErrors, cfg.MaxBarcodeErrors)

	fastq, err := reader.Open(cfg.ReadFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer fastq.Close()

	q := queue.New(cfg.QueueSoftCap)

	var exit atomic.Bool
	var fatalMu sync.Mutex
	var fatalErr error

	onFatal := func(err error) {
		fatalMu.Lock()
		if fatalErr == nil {
			fatalErr = err
		}
		fatalMu.Unlock()
		exit.Store(true)
	}

	// One thread is the reader (this goroutine); the rest are workers.
	workers := cfg.Threads - 1
	if workers < 1 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(parser, q, onFatal)
		}()
	}

	readerErr := reader.Run(fastq, q, exit.Load)
	wg.Wait()

	if readerErr != nil {
		log.Fatal(readerErr)
	}
	if fatalErr != nil {
		fmt.Fprintln(os.Stderr, fatalErr)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0770); err != nil {
		log.Fatal(err)
	}
	if err := output.WriteCounts(store, sampleDict, barcodeDicts, descriptor.BarcodeCount, cfg.OutputDir, cfg.Prefix, cfg.Compress); err != nil {
		log.Fatal(err)
	}

	counters.Display(os.Stdout)
}
