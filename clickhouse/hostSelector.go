// Package clickhouse provides a client for ClickHouse over its HTTP interface: streaming
// result decoding, pagination, table creation and bulk import of delimited files.
package clickhouse

type hostSelector interface {
	init() error
	// Returns the endpoint in the form host:port or as an http(s) URL
	selectHost() (string, error)
}
