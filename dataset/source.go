package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source yields raw records lazily, one per call. Next returns io.EOF
// after the last record; any other error aborts the preparation run.
type Source interface {
	Next() ([]string, error)
}

// ReaderSource streams comma-delimited records from UTF-8 text, one
// record per line. Blank lines are not records and are passed over.
type ReaderSource struct {
	scanner *bufio.Scanner
}

// NewReaderSource wraps r in a line-oriented record source.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{scanner: bufio.NewScanner(r)}
}

// Next returns the fields of the next non-blank line.
func (s *ReaderSource) Next() ([]string, error) {
	for s.scanner.Scan() {
		line := strings.TrimSuffix(s.scanner.Text(), "\r")
		if line == "" {
			continue
		}
		return strings.Split(line, ","), nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// FileSource is a ReaderSource over a dataset file on disk.
type FileSource struct {
	ReaderSource
	file *os.File
}

// OpenFile opens the CSV dataset at path for streaming.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	return &FileSource{
		ReaderSource: ReaderSource{scanner: bufio.NewScanner(f)},
		file:         f,
	}, nil
}

// Close releases the underlying file.
func (s *FileSource) Close() error {
	return s.file.Close()
}

// SliceSource serves pre-split records from memory.
type SliceSource struct {
	records [][]string
	pos     int
}

// NewSliceSource returns a source over the given records.
func NewSliceSource(records [][]string) *SliceSource {
	return &SliceSource{records: records}
}

// Next returns the next record or io.EOF.
func (s *SliceSource) Next() ([]string, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}
