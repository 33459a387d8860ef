package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var errStatementClosed = errors.New("prepared statement is closed")

// PreparedStatement is a query template with ? placeholders that can be run many times
// with different values. Values are rendered client side as SQL literals.
type PreparedStatement interface {
	SetString(parameterIndex int, value string) error
	SetInt(parameterIndex int, value int) error
	SetInt64(parameterIndex int, value int64) error
	SetFloat64(parameterIndex int, value float64) error
	SetBool(parameterIndex int, value bool) error
	// Set binds any value formatArg accepts. Indices are 1-based.
	Set(parameterIndex int, value interface{}) error

	// Select runs the statement with the bound parameters. The caller closes the stream.
	Select(ctx context.Context) (*ResultStream, error)
	// SelectWithParams binds params in order and runs the statement.
	SelectWithParams(ctx context.Context, params ...interface{}) (*ResultStream, error)
	// Exec runs a statement that returns no rows with the bound parameters.
	Exec(ctx context.Context) error

	GetQuery() string
	GetParameterCount() int
	ClearParameters() error
	Close() error
}

type preparedStatement struct {
	connection    *Connection
	queryTemplate string
	paramCount    int
	parameters    []interface{}
	set           []bool
	mutex         sync.RWMutex
	closed        bool
}

// Prepare creates a PreparedStatement, e.g. "SELECT * FROM t WHERE id = ? AND name = ?".
// Question marks inside quoted text are not placeholders.
func (c *Connection) Prepare(queryTemplate string) (PreparedStatement, error) {
	if queryTemplate == "" {
		return nil, fmt.Errorf("query template cannot be empty")
	}
	paramCount := countPlaceholders(queryTemplate)
	if paramCount == 0 {
		return nil, fmt.Errorf("query template must contain at least one parameter placeholder (?)")
	}
	return &preparedStatement{
		connection:    c,
		queryTemplate: queryTemplate,
		paramCount:    paramCount,
		parameters:    make([]interface{}, paramCount),
		set:           make([]bool, paramCount),
	}, nil
}

func (ps *preparedStatement) SetString(parameterIndex int, value string) error {
	return ps.Set(parameterIndex, value)
}

func (ps *preparedStatement) SetInt(parameterIndex int, value int) error {
	return ps.Set(parameterIndex, value)
}

func (ps *preparedStatement) SetInt64(parameterIndex int, value int64) error {
	return ps.Set(parameterIndex, value)
}

func (ps *preparedStatement) SetFloat64(parameterIndex int, value float64) error {
	return ps.Set(parameterIndex, value)
}

func (ps *preparedStatement) SetBool(parameterIndex int, value bool) error {
	return ps.Set(parameterIndex, value)
}

func (ps *preparedStatement) Set(parameterIndex int, value interface{}) error {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	if ps.closed {
		return errStatementClosed
	}
	if parameterIndex < 1 || parameterIndex > ps.paramCount {
		return fmt.Errorf("parameter index %d is out of range [1, %d]", parameterIndex, ps.paramCount)
	}
	ps.parameters[parameterIndex-1] = value
	ps.set[parameterIndex-1] = true
	return nil
}

// boundQuery renders the template with the currently set parameters.
func (ps *preparedStatement) boundQuery() (string, error) {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	if ps.closed {
		return "", errStatementClosed
	}
	for i, ok := range ps.set {
		if !ok {
			return "", fmt.Errorf("parameter at index %d is not set", i+1)
		}
	}
	return ps.buildQuery(ps.parameters)
}

func (ps *preparedStatement) Select(ctx context.Context) (*ResultStream, error) {
	query, err := ps.boundQuery()
	if err != nil {
		return nil, err
	}
	return ps.connection.Select(ctx, query, nil)
}

func (ps *preparedStatement) SelectWithParams(ctx context.Context, params ...interface{}) (*ResultStream, error) {
	ps.mutex.RLock()
	closed := ps.closed
	ps.mutex.RUnlock()
	if closed {
		return nil, errStatementClosed
	}
	query, err := ps.buildQuery(params)
	if err != nil {
		return nil, err
	}
	return ps.connection.Select(ctx, query, nil)
}

func (ps *preparedStatement) Exec(ctx context.Context) error {
	query, err := ps.boundQuery()
	if err != nil {
		return err
	}
	return ps.connection.Exec(ctx, query, nil)
}

func (ps *preparedStatement) GetQuery() string {
	return ps.queryTemplate
}

func (ps *preparedStatement) GetParameterCount() int {
	return ps.paramCount
}

func (ps *preparedStatement) ClearParameters() error {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	if ps.closed {
		return errStatementClosed
	}
	for i := range ps.parameters {
		ps.parameters[i] = nil
		ps.set[i] = false
	}
	return nil
}

func (ps *preparedStatement) Close() error {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	ps.closed = true
	ps.parameters = nil
	ps.set = nil
	return nil
}

func (ps *preparedStatement) buildQuery(params []interface{}) (string, error) {
	if len(params) != ps.paramCount {
		return "", fmt.Errorf("expected %d parameters, got %d", ps.paramCount, len(params))
	}
	query, err := BindPositional(ps.queryTemplate, params...)
	if err != nil {
		return "", fmt.Errorf("failed to build query: %w", err)
	}
	return query, nil
}
