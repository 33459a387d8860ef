package clickhouse

import (
	"context"
	"encoding/csv"
	"errors"
	"strconv"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/thanhdai917/clickhouse/delimited"
)

// DefaultImportBatchSize is the number of rows sent per INSERT.
const DefaultImportBatchSize = 1000

// BatchSource yields rows of a delimited file in fixed-size batches. *delimited.Reader
// implements it.
type BatchSource interface {
	// Fields returns the header row, or nil when the source has no header.
	Fields() []string
	ResetPointer() error
	// FetchRows returns fewer than chunkSize rows only at the end of the source.
	FetchRows(chunkSize int, columnIndices ...int) ([][]string, error)
}

// Import streams source into table. columnNames are the target columns, in the order the
// projected cells are sent. It returns the number of rows ClickHouse accepted; on failure
// that count covers the batches accepted before the error.
func (c *Connection) Import(ctx context.Context, table string, source BatchSource, columnNames []string) (int64, error) {
	projection, err := importProjection(source.Fields(), columnNames)
	if err != nil {
		return 0, err
	}
	if err := source.ResetPointer(); err != nil {
		return 0, err
	}
	if c.importConfig.Concurrency <= 1 {
		return c.importSequential(ctx, table, source, columnNames, projection)
	}
	return c.importPipelined(ctx, table, source, columnNames, projection)
}

func (c *Connection) importSequential(ctx context.Context, table string, source BatchSource, columnNames []string, projection []int) (int64, error) {
	var total int64
	for {
		rows, err := source.FetchRows(c.importConfig.BatchSize, projection...)
		if err != nil {
			return total, wrapReadError(err)
		}
		if len(rows) == 0 {
			return total, nil
		}
		if err := c.insertBatch(ctx, table, columnNames, rows); err != nil {
			return total, err
		}
		total += int64(len(rows))
	}
}

// importPipelined keeps up to Concurrency batches in flight. Reading stays on this
// goroutine because the source has a single reader.
func (c *Connection) importPipelined(ctx context.Context, table string, source BatchSource, columnNames []string, projection []int) (int64, error) {
	var total int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.importConfig.Concurrency)
	var readErr error
	for gctx.Err() == nil {
		rows, err := source.FetchRows(c.importConfig.BatchSize, projection...)
		if err != nil {
			readErr = wrapReadError(err)
			break
		}
		if len(rows) == 0 {
			break
		}
		g.Go(func() error {
			if err := c.insertBatch(gctx, table, columnNames, rows); err != nil {
				return err
			}
			atomic.AddInt64(&total, int64(len(rows)))
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = readErr
	}
	if err == nil {
		// The group context is also cancelled when the caller's context is.
		err = ctx.Err()
	}
	return atomic.LoadInt64(&total), err
}

// wrapReadError turns malformed source rows into a *FormatError so callers can match
// ErrFormat. Other read errors pass through.
func wrapReadError(err error) error {
	var parseErr *csv.ParseError
	if errors.Is(err, delimited.ErrFormat) || errors.As(err, &parseErr) {
		return &FormatError{Msg: "read import source", Err: err}
	}
	return err
}

func (c *Connection) insertBatch(ctx context.Context, table string, columnNames []string, rows [][]string) error {
	data := encodeTSVBatch(rows)
	req := &insertRequest{
		table:   table,
		columns: columnNames,
		data:    data,
	}
	if c.importConfig.Deduplicate {
		req.settings = map[string]string{
			"insert_deduplication_token": strconv.FormatUint(xxh3.Hash(data), 16),
		}
	}
	log.Debugf("Inserting %d rows into %s", len(rows), table)
	if err := c.insert(ctx, req); err != nil {
		return err
	}
	c.metrics.addImportedRows(len(rows))
	return nil
}

// importProjection maps target columns onto source column indices. Columns are matched by
// header name when every name is present, otherwise positionally when the widths agree.
func importProjection(fields []string, columnNames []string) ([]int, error) {
	if len(columnNames) == 0 {
		return nil, newFormatError("no target columns given")
	}
	if len(fields) > 0 {
		index := make(map[string]int, len(fields))
		for i, field := range fields {
			if _, ok := index[field]; !ok {
				index[field] = i
			}
		}
		byName := make([]int, 0, len(columnNames))
		for _, name := range columnNames {
			i, ok := index[name]
			if !ok {
				break
			}
			byName = append(byName, i)
		}
		if len(byName) == len(columnNames) {
			return byName, nil
		}
		if len(fields) != len(columnNames) {
			return nil, newFormatError("%d target columns %v do not match header %v", len(columnNames), columnNames, fields)
		}
	}
	identity := make([]int, len(columnNames))
	for i := range identity {
		identity[i] = i
	}
	return identity, nil
}
