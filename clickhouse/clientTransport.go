package clickhouse

import (
	"context"
	"io"
)

type clientTransport interface {
	// query returns the response body; the caller owns and must close it.
	query(ctx context.Context, host string, req *Request) (io.ReadCloser, error)
	insert(ctx context.Context, host string, req *insertRequest) error
}
