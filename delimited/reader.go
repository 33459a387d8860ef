// Package delimited reads CSV-like files with an optional header and an auto-detected
// delimiter, row by row or in fixed-size batches, optionally projected onto a subset of
// columns. The underlying stream must be seekable so the reader can rewind.
package delimited

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrFormat is matched by every ProjectionError.
var ErrFormat = errors.New("wrong data format")

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// candidateDelimiters are tried in this order; ties keep the earlier one.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// Options configures a Reader. Zero values select auto-detection, a double-quote
// enclosure, a header row and UTF-8 input.
type Options struct {
	// Delimiter is the field separator; zero detects it from the first line.
	Delimiter rune
	// Enclosure is the quote character; zero means '"'.
	Enclosure rune
	// NoHeader marks the first line as data instead of column names.
	NoHeader bool
	// Encoding names the source character set, e.g. "windows-1250"; empty means UTF-8.
	Encoding string
}

// ProjectionError is returned when a row lacks one of the requested column indices.
type ProjectionError struct {
	Indices []int
	Row     []string
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("wrong data format: columns %v requested from row %q", e.Indices, e.Row)
}

func (e *ProjectionError) Is(target error) bool {
	return target == ErrFormat
}

// Reader is a forward-only cursor over a delimited file. It is not safe for concurrent use.
type Reader struct {
	source    io.ReadSeeker
	delimiter rune
	enclosure rune
	hasHeader bool
	encoding  string
	fields    []string
	csv       *csv.Reader
}

// NewReader detects the delimiter if needed, reads the header and positions the reader
// at the first data row.
func NewReader(source io.ReadSeeker, opt Options) (*Reader, error) {
	r := &Reader{
		source:    source,
		delimiter: opt.Delimiter,
		enclosure: opt.Enclosure,
		hasHeader: !opt.NoHeader,
		encoding:  opt.Encoding,
	}
	if r.enclosure == 0 {
		r.enclosure = '"'
	}
	if err := ValidateEncoding(r.encoding); err != nil {
		return nil, err
	}
	if r.enclosure == r.delimiter {
		return nil, fmt.Errorf("enclosure and delimiter are both %q", r.enclosure)
	}
	if r.delimiter == 0 {
		if err := r.rewind(); err != nil {
			return nil, err
		}
		firstLine, err := bufio.NewReader(r.decoded()).ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read first line: %w", err)
		}
		r.delimiter = DetectDelimiter(firstLine)
	}
	if err := r.rewind(); err != nil {
		return nil, err
	}
	if r.hasHeader {
		header, err := r.csv.Read()
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read header: %w", err)
		}
		header = r.restore(header)
		if len(header) > 0 {
			header[0] = strings.TrimPrefix(header[0], utf8BOM)
		}
		r.fields = header
	}
	return r, nil
}

// DetectDelimiter picks the candidate that splits line into the most fields. Ties keep
// the earlier of ',', ';', '\t', '|'; a line without any of them yields ','.
func DetectDelimiter(line string) rune {
	detected := ','
	maxCount := 0
	for _, delimiter := range candidateDelimiters {
		if !strings.ContainsRune(line, delimiter) {
			continue
		}
		if count := len(strings.Split(line, string(delimiter))); count > maxCount {
			maxCount = count
			detected = delimiter
		}
	}
	return detected
}

// Fields returns the header row, or nil when the reader has no header.
func (r *Reader) Fields() []string {
	return r.fields
}

// Delimiter returns the configured or detected delimiter.
func (r *Reader) Delimiter() rune {
	return r.delimiter
}

// Enclosure returns the quote character.
func (r *Reader) Enclosure() rune {
	return r.enclosure
}

// HasHeader reports whether the first line is treated as a header.
func (r *Reader) HasHeader() bool {
	return r.hasHeader
}

// ResetPointer rewinds to the first data row.
func (r *Reader) ResetPointer() error {
	if err := r.rewind(); err != nil {
		return err
	}
	if r.hasHeader {
		if _, err := r.csv.Read(); err != nil && err != io.EOF {
			return fmt.Errorf("skip header: %w", err)
		}
	}
	return nil
}

// FetchRow returns the next row projected onto columnIndices, or io.EOF at the end.
func (r *Reader) FetchRow(columnIndices ...int) ([]string, error) {
	row, err := r.csv.Read()
	if err != nil {
		return nil, err
	}
	return project(r.restore(row), columnIndices)
}

// FetchRows returns up to chunkSize rows projected onto columnIndices. Blank lines are
// skipped without counting against chunkSize. Fewer than chunkSize rows, possibly none,
// means the end of the file was reached.
func (r *Reader) FetchRows(chunkSize int, columnIndices ...int) ([][]string, error) {
	rows := make([][]string, 0)
	for len(rows) < chunkSize {
		row, err := r.csv.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		projected, err := project(r.restore(row), columnIndices)
		if err != nil {
			return nil, err
		}
		rows = append(rows, projected)
	}
	return rows, nil
}

func project(row []string, columnIndices []int) ([]string, error) {
	if len(columnIndices) == 0 {
		return row, nil
	}
	projected := make([]string, 0, len(columnIndices))
	for _, index := range columnIndices {
		if index < 0 || index >= len(row) {
			return nil, &ProjectionError{Indices: columnIndices, Row: row}
		}
		projected = append(projected, row[index])
	}
	return projected, nil
}

func (r *Reader) rewind() error {
	if _, err := r.source.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind: %w", err)
	}
	cr := csv.NewReader(r.swapEnclosure(r.decoded()))
	if r.delimiter != 0 {
		cr.Comma = r.delimiter
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false
	r.csv = cr
	return nil
}
