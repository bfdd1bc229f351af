package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultReadBufferSize is the internal buffered-reader size for the
// streaming parser. Bounds buffered bytes regardless of file size.
const DefaultReadBufferSize = 1 << 20 // 1 MiB

// DefaultResumeOverlapBytes is the byte window replayed before a resume
// checkpoint to let the parser relocate a row boundary and the marker.
const DefaultResumeOverlapBytes = 1 << 20 // 1 MiB

// Record is one parsed, trimmed CSV row keyed by its original header cell.
type Record map[string]string

// Parser streams a CSV file from an arbitrary byte offset, exposing the
// cumulative absolute byte offset consumed after each record. It is
// forward-only and single-use: call NewParser once per read pass.
type Parser struct {
	file       *os.File
	reader     *csv.Reader
	countingR  *countingReader
	startBytes int64
	header     []string
}

// countingReader wraps an io.Reader and tracks the cumulative number of
// bytes it has yielded to its consumer.
type countingReader struct {
	r     io.Reader
	count int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.count += int64(n)
	return n, err
}

// NewParser opens path for reading starting at startBytes. If startBytes
// is 0, the first row is consumed as the header. If startBytes is
// non-zero, header must be supplied by the caller (column names are
// assumed stable for the life of a job). bufSize is the read-ahead
// buffer in bytes (IMPORT_HIGH_WATER_MARK); 0 means the 1 MiB default.
func NewParser(path string, startBytes int64, header []string, bufSize int) (*Parser, error) {
	if bufSize <= 0 {
		bufSize = DefaultReadBufferSize
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open source file: %w", err)
	}
	if startBytes > 0 {
		if _, err := f.Seek(startBytes, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("ingest: seek to resume offset: %w", err)
		}
	}

	cr := &countingReader{r: bufio.NewReaderSize(f, bufSize)}
	r := csv.NewReader(cr)
	r.FieldsPerRecord = -1 // tolerate varying column counts
	r.LazyQuotes = true
	r.ReuseRecord = true

	p := &Parser{
		file:       f,
		reader:     r,
		countingR:  cr,
		startBytes: startBytes,
		header:     header,
	}

	if startBytes == 0 {
		hdr, err := r.Read()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("ingest: read header row: %w", err)
		}
		p.header = trimAll(hdr)
	}
	return p, nil
}

// Header returns the column names in effect for this parse, either read
// from offset 0 or supplied by the caller.
func (p *Parser) Header() []string {
	return p.header
}

// Next returns the next record, or io.EOF when the stream is exhausted.
// Empty lines are skipped transparently. Extra columns beyond the header
// are dropped; missing trailing columns are filled with empty string.
func (p *Parser) Next() (Record, error) {
	for {
		row, err := p.reader.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: %w: %v", ErrParseFailed, err)
		}
		if isBlankRow(row) {
			continue
		}
		rec := make(Record, len(p.header))
		for i, col := range p.header {
			if i < len(row) {
				rec[col] = strings.TrimSpace(row[i])
			} else {
				rec[col] = ""
			}
		}
		return rec, nil
	}
}

// BytesRead returns the cumulative absolute byte offset into the file
// consumed so far: the opening offset plus everything read in this run.
func (p *Parser) BytesRead() int64 {
	return p.startBytes + p.countingR.count
}

// Close releases the underlying file handle.
func (p *Parser) Close() error {
	return p.file.Close()
}

func trimAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
