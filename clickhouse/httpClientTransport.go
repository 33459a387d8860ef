package clickhouse

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
)

const maxErrorBodyBytes = 64 * 1024

var (
	defaultHTTPHeader = map[string]string{
		"Content-Type": "text/plain; charset=utf-8",
	}
)

// HTTPClient is an interface for http.Client
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// httpClientTransport is the impl of clientTransport over the ClickHouse HTTP interface
type httpClientTransport struct {
	client      HTTPClient
	header      map[string]string
	database    string
	username    string
	password    string
	secure      bool
	compression string
	settings    map[string]string
}

func (t *httpClientTransport) query(ctx context.Context, host string, query *Request) (io.ReadCloser, error) {
	params := t.baseParams(query.settings)
	r, err := createHTTPRequest(ctx, getEndpoint(host, t.secure, params), []byte(query.query), t.header)
	if err != nil {
		return nil, err
	}
	r.Header.Set("X-ClickHouse-Format", string(query.format))
	t.authorize(r)
	if t.compression != "" {
		r.Header.Set("Accept-Encoding", t.compression)
	}
	resp, err := t.client.Do(r)
	if err != nil {
		log.Error("Got exceptions during sending request. ", err)
		return nil, &TransportError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	body, err := decompressReader(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		log.Error("Unable to decompress ClickHouse response. ", err)
		closeBody(resp.Body)
		return nil, &TransportError{Err: err}
	}
	return body, nil
}

func (t *httpClientTransport) insert(ctx context.Context, host string, insert *insertRequest) error {
	params := t.baseParams(insert.settings)
	params.Set("input_format_tsv_empty_as_default", "1")
	params.Set("query", insertStatement(insert.table, insert.columns))
	payload, err := compressPayload(insert.data, t.compression)
	if err != nil {
		return fmt.Errorf("failed to compress insert payload: %w", err)
	}
	r, err := createHTTPRequest(ctx, getEndpoint(host, t.secure, params), payload, t.header)
	if err != nil {
		return err
	}
	t.authorize(r)
	if t.compression != "" {
		r.Header.Set("Content-Encoding", t.compression)
	}
	resp, err := t.client.Do(r)
	if err != nil {
		log.Error("Got exceptions during sending insert. ", err)
		return &TransportError{Err: err}
	}
	defer closeBody(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

func (t *httpClientTransport) baseParams(settings map[string]string) url.Values {
	params := url.Values{}
	if t.database != "" {
		params.Set("database", t.database)
	}
	if t.compression != "" {
		params.Set("enable_http_compression", "1")
	}
	for k, v := range t.settings {
		params.Set(k, v)
	}
	for k, v := range settings {
		params.Set(k, v)
	}
	return params
}

func (t *httpClientTransport) authorize(r *http.Request) {
	if t.username != "" {
		r.Header.Set("X-ClickHouse-User", t.username)
		r.Header.Set("X-ClickHouse-Key", t.password)
	}
}

func insertStatement(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = quoteIdentifier(column)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) FORMAT TabSeparated", quoteIdentifier(table), strings.Join(quoted, ", "))
}

func getEndpoint(host string, secure bool, params url.Values) string {
	base := host
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		scheme := "http"
		if secure {
			scheme = "https"
		}
		base = scheme + "://" + host
	}
	base = strings.TrimSuffix(base, "/") + "/"
	if len(params) == 0 {
		return base
	}
	return base + "?" + params.Encode()
}

func createHTTPRequest(ctx context.Context, url string, body []byte, extraHeader map[string]string) (*http.Request, error) {
	r, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		log.Error("Invalid HTTP Request", err)
		return nil, err
	}
	for k, v := range defaultHTTPHeader {
		r.Header.Add(k, v)
	}
	for k, v := range extraHeader {
		r.Header.Add(k, v)
	}
	return r, nil
}

func responseError(resp *http.Response) error {
	defer closeBody(resp.Body)
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		log.Error("Unable to read ClickHouse error response. ", err)
	}
	return &TransportError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func closeBody(body io.Closer) {
	if err := body.Close(); err != nil {
		log.Error("Unable to close response body. ", err)
	}
}
