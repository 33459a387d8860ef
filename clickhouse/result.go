package clickhouse

import (
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// DefaultRowLimit bounds Get when no explicit limit is given.
const DefaultRowLimit = 9999

// ResultFormat is the response format requested through X-ClickHouse-Format.
type ResultFormat string

const (
	// FormatTabSeparated is the default decodable format: names, types, then rows.
	FormatTabSeparated ResultFormat = "TabSeparatedWithNamesAndTypes"
	// FormatArrowStream streams Apache Arrow IPC record batches.
	FormatArrowStream ResultFormat = "ArrowStream"
	// formatPlainText is used for DDL and other statements without a result set.
	formatPlainText ResultFormat = "TabSeparated"
)

// ColumnDescriptor describes one column of a result set.
type ColumnDescriptor struct {
	Name        string      `json:"name"`
	NativeType  string      `json:"nativeType"`
	GenericType GenericType `json:"type"`
}

// Row maps column names to decoded values. A value is either a string or nil.
type Row map[string]interface{}

// rowSource produces positional rows for a ResultStream.
type rowSource interface {
	columns() []ColumnDescriptor
	// next returns io.EOF once no rows are left.
	next() ([]interface{}, error)
	close() error
}

// ResultStream is a forward-only cursor over a query response. It owns the response body
// and closes it once the rows are exhausted, on a decode error, or on Close.
type ResultStream struct {
	source   rowSource
	columns  []ColumnDescriptor
	values   []interface{}
	rowLimit int
	err      error
	closed   bool
}

func newResultStream(source rowSource, rowLimit int) *ResultStream {
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}
	return &ResultStream{
		source:   source,
		columns:  source.columns(),
		rowLimit: rowLimit,
	}
}

// Columns returns the column descriptors decoded from the response header.
func (s *ResultStream) Columns() []ColumnDescriptor {
	return s.columns
}

// Next advances to the next row. It returns false at the end of the stream or on error;
// check Err afterwards.
func (s *ResultStream) Next() bool {
	if s.closed || s.err != nil {
		return false
	}
	values, err := s.source.next()
	if err == io.EOF {
		s.release()
		return false
	}
	if err != nil {
		s.err = err
		s.release()
		return false
	}
	s.values = values
	return true
}

// Values returns the current row in column order.
func (s *ResultStream) Values() []interface{} {
	return s.values
}

// Row returns the current row keyed by column name.
func (s *ResultStream) Row() Row {
	row := make(Row, len(s.columns))
	for i, column := range s.columns {
		if i < len(s.values) {
			row[column.Name] = s.values[i]
		}
	}
	return row
}

// Err returns the error that stopped iteration, if any.
func (s *ResultStream) Err() error {
	return s.err
}

// Get reads up to limit further rows. A limit of zero or less uses the stream's row limit.
func (s *ResultStream) Get(limit int) ([]Row, error) {
	if limit <= 0 {
		limit = s.rowLimit
	}
	rows := make([]Row, 0)
	for len(rows) < limit && s.Next() {
		rows = append(rows, s.Row())
	}
	return rows, s.err
}

// All reads every remaining row.
func (s *ResultStream) All() ([]Row, error) {
	rows := make([]Row, 0)
	for s.Next() {
		rows = append(rows, s.Row())
	}
	return rows, s.err
}

// First returns the next row, or an empty Row when the stream yields nothing.
func (s *ResultStream) First() (Row, error) {
	if s.Next() {
		return s.Row(), nil
	}
	return Row{}, s.err
}

// Close releases the response body. It is safe to call more than once.
func (s *ResultStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.source.close()
}

func (s *ResultStream) release() {
	if err := s.Close(); err != nil {
		log.Error("Unable to close response body. ", err)
	}
}

// tsvSource decodes TabSeparatedWithNamesAndTypes.
type tsvSource struct {
	body   io.ReadCloser
	reader *tsvReader
	cols   []ColumnDescriptor
}

func newTSVSource(body io.ReadCloser, types *TypeMapper) (*tsvSource, error) {
	reader := newTSVReader(body)
	names, err := reader.readRecord()
	if err != nil {
		if err == io.EOF {
			return nil, newFormatError("response has no column header")
		}
		return nil, &TransportError{Err: err}
	}
	nativeTypes, err := reader.readRecord()
	if err != nil {
		if err == io.EOF {
			return nil, newFormatError("response has no column types")
		}
		return nil, &TransportError{Err: err}
	}
	if len(names) != len(nativeTypes) {
		return nil, headerError(names, nativeTypes)
	}
	columns := make([]ColumnDescriptor, len(names))
	for i := range names {
		nativeType := unescapeTSV(nativeTypes[i])
		columns[i] = ColumnDescriptor{
			Name:        unescapeTSV(names[i]),
			NativeType:  nativeType,
			GenericType: types.Generic(nativeType),
		}
	}
	return &tsvSource{body: body, reader: reader, cols: columns}, nil
}

func (t *tsvSource) columns() []ColumnDescriptor {
	return t.cols
}

func (t *tsvSource) next() ([]interface{}, error) {
	record, err := t.reader.readRecord()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if len(record) != len(t.cols) {
		return nil, recordError(record, len(t.cols))
	}
	values := make([]interface{}, len(record))
	for i, raw := range record {
		values[i] = decodeTSVCell(raw)
	}
	return values, nil
}

func (t *tsvSource) close() error {
	return t.body.Close()
}

// headerError reports a malformed header, surfacing server exceptions written into the body.
func headerError(names, nativeTypes []string) error {
	line := strings.Join(nativeTypes, "\t")
	if isServerException(line) {
		return &TransportError{StatusCode: 200, Body: line}
	}
	return newFormatError("%d column names but %d column types", len(names), len(nativeTypes))
}

// recordError reports a row whose width does not match the header. ClickHouse writes an
// exception into the body when a query fails after the response has started streaming.
func recordError(record []string, width int) error {
	line := strings.Join(record, "\t")
	if isServerException(line) {
		return &TransportError{StatusCode: 200, Body: line}
	}
	return newFormatError("expected %d cells, got %d: %q", width, len(record), line)
}

func isServerException(line string) bool {
	return strings.Contains(line, "DB::Exception")
}
