package clickhouse

import (
	"io"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/arrow/ipc"
	"github.com/apache/arrow/go/v15/arrow/memory"
)

// arrowSource decodes an ArrowStream response one record batch at a time.
type arrowSource struct {
	body   io.ReadCloser
	reader *ipc.Reader
	cols   []ColumnDescriptor
	record arrow.Record
	rowIdx int
}

func newArrowSource(body io.ReadCloser) (*arrowSource, error) {
	reader, err := ipc.NewReader(body, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, newFormatError("failed to read arrow stream: %v", err)
	}
	fields := reader.Schema().Fields()
	columns := make([]ColumnDescriptor, len(fields))
	for i, field := range fields {
		columns[i] = ColumnDescriptor{
			Name:        field.Name,
			NativeType:  field.Type.String(),
			GenericType: arrowGenericType(field.Type),
		}
	}
	return &arrowSource{body: body, reader: reader, cols: columns}, nil
}

func (a *arrowSource) columns() []ColumnDescriptor {
	return a.cols
}

func (a *arrowSource) next() ([]interface{}, error) {
	for a.record == nil || a.rowIdx >= int(a.record.NumRows()) {
		if !a.reader.Next() {
			if err := a.reader.Err(); err != nil && err != io.EOF {
				return nil, newFormatError("failed to read arrow record: %v", err)
			}
			return nil, io.EOF
		}
		a.record = a.reader.Record()
		a.rowIdx = 0
	}
	values := make([]interface{}, a.record.NumCols())
	for colIdx := range values {
		value, err := readArrowCell(a.record.Column(colIdx), a.rowIdx)
		if err != nil {
			return nil, err
		}
		values[colIdx] = value
	}
	a.rowIdx++
	return values, nil
}

func (a *arrowSource) close() error {
	a.reader.Release()
	return a.body.Close()
}

// readArrowCell renders a cell the way the TabSeparated decoder would: strings, or nil.
func readArrowCell(column arrow.Array, rowIdx int) (interface{}, error) {
	if column.IsNull(rowIdx) {
		return nil, nil
	}
	switch col := column.(type) {
	case *array.String:
		return col.Value(rowIdx), nil
	case *array.LargeString:
		return col.Value(rowIdx), nil
	case *array.Binary:
		// ClickHouse writes String columns as Binary unless told otherwise.
		return col.ValueString(rowIdx), nil
	case *array.FixedSizeBinary:
		return string(col.Value(rowIdx)), nil
	case *array.Dictionary:
		return readArrowCell(col.Dictionary(), col.GetValueIndex(rowIdx))
	default:
		return column.ValueStr(rowIdx), nil
	}
}

func arrowGenericType(dataType arrow.DataType) GenericType {
	switch dataType.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64,
		arrow.DECIMAL128, arrow.DECIMAL256:
		return TypeNumber
	case arrow.STRING, arrow.LARGE_STRING, arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
		return TypeString
	case arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP:
		return TypeDateTime
	case arrow.DICTIONARY:
		return arrowGenericType(dataType.(*arrow.DictionaryType).ValueType)
	default:
		return TypeOther
	}
}
