package gormclickhouse

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/thanhdai917/clickhouse/clickhouse"
)

var errNoTransactions = errors.New("clickhouse does not support transactions")

type connector struct {
	conn *clickhouse.Connection
}

func newConnector(conn *clickhouse.Connection) *connector {
	return &connector{conn: conn}
}

func (c *connector) Connect(context.Context) (driver.Conn, error) {
	return &chConn{conn: c.conn}, nil
}

func (c *connector) Driver() driver.Driver {
	return chDriver{}
}

type chDriver struct{}

func (chDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("clickhouse driver requires a Connector")
}

type chConn struct {
	conn *clickhouse.Connection
}

func (c *chConn) Prepare(query string) (driver.Stmt, error) {
	return &chStmt{conn: c, query: query}, nil
}

func (c *chConn) Close() error {
	return nil
}

func (c *chConn) Begin() (driver.Tx, error) {
	return nil, errNoTransactions
}

func (c *chConn) PrepareContext(_ context.Context, query string) (driver.Stmt, error) {
	return c.Prepare(query)
}

func (c *chConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	statement, params, err := bindArgs(query, args)
	if err != nil {
		return nil, err
	}
	if err := c.conn.Exec(ctx, statement, params); err != nil {
		return nil, err
	}
	return chResult{}, nil
}

func (c *chConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	statement, params, err := bindArgs(query, args)
	if err != nil {
		return nil, err
	}
	stream, err := c.conn.Select(ctx, statement, params)
	if err != nil {
		return nil, err
	}
	return newStreamRows(stream), nil
}

type chStmt struct {
	conn  *chConn
	query string
}

func (s *chStmt) Close() error {
	return nil
}

func (s *chStmt) NumInput() int {
	return -1
}

func (s *chStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.conn.ExecContext(context.Background(), s.query, valuesToNamed(args))
}

func (s *chStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.conn.QueryContext(context.Background(), s.query, valuesToNamed(args))
}

// chResult reports nothing: the HTTP interface does not return affected row counts.
type chResult struct{}

func (chResult) LastInsertId() (int64, error) {
	return 0, errors.New("clickhouse does not generate insert ids")
}

func (chResult) RowsAffected() (int64, error) {
	return 0, nil
}

// bindArgs binds sql.Named arguments as :name parameters and the rest positionally to ?.
func bindArgs(query string, args []driver.NamedValue) (string, map[string]interface{}, error) {
	if len(args) == 0 {
		return query, nil, nil
	}
	var positional []interface{}
	var named map[string]interface{}
	for _, arg := range args {
		if arg.Name == "" {
			positional = append(positional, arg.Value)
			continue
		}
		if named == nil {
			named = make(map[string]interface{})
		}
		named[arg.Name] = arg.Value
	}
	statement, err := clickhouse.BindPositional(query, positional...)
	if err != nil {
		return "", nil, fmt.Errorf("failed to bind arguments: %w", err)
	}
	return statement, named, nil
}

func valuesToNamed(args []driver.Value) []driver.NamedValue {
	if len(args) == 0 {
		return nil
	}
	named := make([]driver.NamedValue, 0, len(args))
	for i, arg := range args {
		named = append(named, driver.NamedValue{Ordinal: i + 1, Value: arg})
	}
	return named
}
