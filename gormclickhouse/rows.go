package gormclickhouse

import (
	"database/sql/driver"
	"io"
	"strconv"
	"time"

	"github.com/thanhdai917/clickhouse/clickhouse"
)

var dateTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02",
}

type streamRows struct {
	stream  *clickhouse.ResultStream
	columns []clickhouse.ColumnDescriptor
}

func newStreamRows(stream *clickhouse.ResultStream) *streamRows {
	return &streamRows{stream: stream, columns: stream.Columns()}
}

func (r *streamRows) Columns() []string {
	names := make([]string, len(r.columns))
	for i, column := range r.columns {
		names[i] = column.Name
	}
	return names
}

// ColumnTypeDatabaseTypeName reports the native ClickHouse type, e.g. Nullable(String).
func (r *streamRows) ColumnTypeDatabaseTypeName(index int) string {
	return r.columns[index].NativeType
}

func (r *streamRows) Close() error {
	return r.stream.Close()
}

func (r *streamRows) Next(dest []driver.Value) error {
	if !r.stream.Next() {
		if err := r.stream.Err(); err != nil {
			return err
		}
		return io.EOF
	}
	values := r.stream.Values()
	for i := range dest {
		if i >= len(values) || i >= len(r.columns) {
			dest[i] = nil
			continue
		}
		dest[i] = convertValue(values[i], r.columns[i].GenericType)
	}
	return nil
}

// convertValue turns a decoded cell into the closest driver.Value for its generic type.
// Cells that do not parse are passed through as strings.
func convertValue(value interface{}, genericType clickhouse.GenericType) driver.Value {
	s, ok := value.(string)
	if !ok {
		return value
	}
	switch genericType {
	case clickhouse.TypeNumber:
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v
		}
		// UInt64 beyond int64 and the wide integer types stay exact as strings.
		if isInteger(s) {
			return s
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	case clickhouse.TypeDateTime:
		for _, layout := range dateTimeLayouts {
			if v, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return v
			}
		}
	}
	return s
}

func isInteger(s string) bool {
	if len(s) > 0 && s[0] == '-' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
