package clickhouse

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionConfig is returned when the connection configuration cannot be used.
	ErrConnectionConfig = errors.New("invalid clickhouse connection config")
	// ErrTransport is matched by every failure of a query or bulk insert round trip.
	ErrTransport = errors.New("clickhouse transport error")
	// ErrFormat is matched by malformed response bodies, bad column projections and
	// malformed import source rows.
	ErrFormat = errors.New("clickhouse format error")
	// ErrUnsupportedQuery is returned when a statement cannot be rewritten into a count query.
	ErrUnsupportedQuery = errors.New("unsupported query")
)

// TransportError describes a failed HTTP round trip. Body holds the server's error text
// when the server answered with a non-200 status.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("clickhouse request failed: %v", e.Err)
	}
	return fmt.Sprintf("clickhouse returned HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes every TransportError match ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// FormatError reports a malformed response or an unusable column projection. Err holds
// the source's own error when one was wrapped.
type FormatError struct {
	Msg string
	Err error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return "wrong data format: " + e.Msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

func newFormatError(format string, args ...interface{}) *FormatError {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}
