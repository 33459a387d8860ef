package clickhouse

// Request is a single statement sent to the query endpoint.
type Request struct {
	query    string
	format   ResultFormat
	settings map[string]string
}

// insertRequest carries one TabSeparated batch for INSERT ... FORMAT TabSeparated.
type insertRequest struct {
	table    string
	columns  []string
	data     []byte
	settings map[string]string
}
