package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// tableEngine is the storage engine of every table created through CreateTable.
const tableEngine = "StripeLog"

// ColumnSpec names a column and its type. For CreateTable the type is a generic name
// (float, integer, datetime, string); TableDetail returns native types.
type ColumnSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CreateTable creates table with the given columns.
func (c *Connection) CreateTable(ctx context.Context, table string, columns []ColumnSpec) error {
	statement, err := c.createTableStatement(table, columns)
	if err != nil {
		return err
	}
	return c.Exec(ctx, statement, nil)
}

func (c *Connection) createTableStatement(table string, columns []ColumnSpec) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", newFormatError("empty table name")
	}
	if len(columns) == 0 {
		return "", newFormatError("no columns for table %s", table)
	}
	sqlColumns := make([]string, 0, len(columns))
	for _, column := range columns {
		if column.Name == "" {
			encoded, _ := json.Marshal(columns)
			return "", newFormatError("wrong columns format: %s", encoded)
		}
		sqlColumns = append(sqlColumns, quoteIdentifier(column.Name)+" "+c.types.DDLType(column.Type))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s) ENGINE = %s", quoteIdentifier(table), strings.Join(sqlColumns, ","), tableEngine), nil
}

// TableDetail describes the columns of table with their native types.
func (c *Connection) TableDetail(ctx context.Context, table string) ([]ColumnSpec, error) {
	var columns []ColumnSpec
	err := c.WithSelect(ctx, "DESCRIBE TABLE "+quoteIdentifier(table), nil, func(stream *ResultStream) error {
		for stream.Next() {
			row := stream.Row()
			name, _ := row["name"].(string)
			nativeType, _ := row["type"].(string)
			columns = append(columns, ColumnSpec{Name: name, Type: nativeType})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return columns, nil
}
