// Copyright 2017, Kerby Shedden and the Muscato contributors.

// Package reader implements the FASTQ collaborator: a line-oriented
// decoder that unwraps the four-line-per-record FASTQ envelope and
// pushes only the sequence line into the shared read queue.
package reader

import (
	"bufio"
	"os"

	"github.com/pkg/errors"

	"github.com/KIMAHUI/NGS-Barcode-Count/internal/queue"
)

// FastqReader scans a FASTQ file four lines at a time, adapting the
// teacher's own ReadInSeq cycle (name/sequence/plus/quality).
type FastqReader struct {
	file    *os.File
	scanner *bufio.Scanner
	Seq     string
}

// Open opens fastqPath for reading.
func Open(fastqPath string) (*FastqReader, error) {
	fid, err := os.Open(fastqPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening reads file %s", fastqPath)
	}
	scanner := bufio.NewScanner(fid)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	return &FastqReader{file: fid, scanner: scanner}, nil
}

// Close releases the underlying file.
func (r *FastqReader) Close() error {
	return r.file.Close()
}

// Next advances to the next record's sequence line, storing it in
// r.Seq. It returns false at EOF; a malformed (truncated, not a
// multiple of 4 lines) file surfaces as a thread-fatal error.
func (r *FastqReader) Next() (bool, error) {
	for j := 0; j < 4; j++ {
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return false, errors.Wrap(err, "reading FASTQ record")
			}
			if j == 0 {
				return false, nil
			}
			return false, errors.New("truncated FASTQ record at end of file")
		}
		if j == 1 {
			r.Seq = r.scanner.Text()
		}
	}
	return true, nil
}

// Run drains the FASTQ file into q, pushing one sequence per record
// until EOF or until exit() reports true (a worker hit a fatal
// condition). It sets q's finished flag exactly once, after its last
// push, regardless of how the loop terminated.
func Run(r *FastqReader, q *queue.Queue, exit func() bool) error {
	defer q.SetFinished()
	for {
		if exit() {
			return nil
		}
		ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		q.Push(r.Seq)
	}
}
