package clickhouse

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Connection to ClickHouse, normally created through the functions in connectionFactory.go.
// A Connection is safe for concurrent use; the streams it returns are not.
type Connection struct {
	transport    clientTransport
	hostSelector hostSelector
	types        *TypeMapper
	rewriter     *QueryRewriter
	rowLimit     int
	importConfig ImportConfig
	metrics      *Metrics
}

// Rewriter returns the QueryRewriter used by Paginate.
func (c *Connection) Rewriter() *QueryRewriter {
	return c.rewriter
}

// TypeMapper returns the native type lexicon used for column descriptors.
func (c *Connection) TypeMapper() *TypeMapper {
	return c.types
}

// Select runs query with :name placeholders bound from params and streams the result in
// TabSeparatedWithNamesAndTypes. The caller must Close the stream.
func (c *Connection) Select(ctx context.Context, query string, params map[string]interface{}) (*ResultStream, error) {
	return c.SelectFormat(ctx, FormatTabSeparated, query, params)
}

// SelectFormat is Select with an explicit decodable response format.
func (c *Connection) SelectFormat(ctx context.Context, format ResultFormat, query string, params map[string]interface{}) (*ResultStream, error) {
	body, err := c.execute(ctx, query, params, format)
	if err != nil {
		return nil, err
	}
	var source rowSource
	switch format {
	case FormatTabSeparated:
		source, err = newTSVSource(body, c.types)
	case FormatArrowStream:
		source, err = newArrowSource(body)
	default:
		err = fmt.Errorf("unsupported result format: %s", format)
	}
	if err != nil {
		closeBody(body)
		log.Errorf("Unable to decode response of SQL query %s, Error: %v\n", query, err)
		return nil, err
	}
	return newResultStream(source, c.rowLimit), nil
}

// WithSelect runs query and hands the stream to fn, closing it on every exit path.
func (c *Connection) WithSelect(ctx context.Context, query string, params map[string]interface{}, fn func(*ResultStream) error) error {
	stream, err := c.Select(ctx, query, params)
	if err != nil {
		return err
	}
	defer stream.release()
	if err := fn(stream); err != nil {
		return err
	}
	return stream.Err()
}

// Exec runs a statement that produces no result set, such as DDL, and discards the
// plain-text acknowledgement.
func (c *Connection) Exec(ctx context.Context, query string, params map[string]interface{}) error {
	body, err := c.execute(ctx, query, params, formatPlainText)
	if err != nil {
		return err
	}
	defer closeBody(body)
	if _, err := io.Copy(io.Discard, body); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// Write runs a statement on a best-effort basis. It reports only whether the statement was
// accepted; failures are logged and never returned.
func (c *Connection) Write(ctx context.Context, query string) bool {
	if err := c.Exec(ctx, query, nil); err != nil {
		log.Warnf("Write of SQL statement %s failed, Error: %v", query, err)
		return false
	}
	return true
}

func (c *Connection) execute(ctx context.Context, query string, params map[string]interface{}, format ResultFormat) (io.ReadCloser, error) {
	statement, err := formatQuery(strings.Trim(query, statementTrimSet), params)
	if err != nil {
		return nil, fmt.Errorf("failed to format query: %w", err)
	}
	host, err := c.hostSelector.selectHost()
	if err != nil {
		log.Errorf("Unable to find an available host, Error: %v\n", err)
		return nil, &TransportError{Err: err}
	}
	start := time.Now()
	body, err := c.transport.query(ctx, host, &Request{
		query:  statement,
		format: format,
	})
	c.metrics.observe("query", err, time.Since(start))
	if err != nil {
		log.Errorf("Caught exception to execute SQL query %s, Error: %v\n", statement, err)
		return nil, err
	}
	return body, nil
}

func (c *Connection) insert(ctx context.Context, req *insertRequest) error {
	host, err := c.hostSelector.selectHost()
	if err != nil {
		log.Errorf("Unable to find an available host, Error: %v\n", err)
		return &TransportError{Err: err}
	}
	start := time.Now()
	err = c.transport.insert(ctx, host, req)
	c.metrics.observe("insert", err, time.Since(start))
	if err != nil {
		log.Errorf("Caught exception to insert into table %s, Error: %v\n", req.table, err)
	}
	return err
}
