package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockHostSelector struct {
	mock.Mock
}

func (m *mockHostSelector) init() error { return nil }
func (m *mockHostSelector) selectHost() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) query(ctx context.Context, host string, req *Request) (io.ReadCloser, error) {
	args := m.Called(ctx, host, req)
	body, _ := args.Get(0).(io.ReadCloser)
	return body, args.Error(1)
}

func (m *mockTransport) insert(ctx context.Context, host string, req *insertRequest) error {
	args := m.Called(ctx, host, req)
	return args.Error(0)
}

func tsvBody(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func newMockConnection(config *ClientConfig) (*Connection, *mockHostSelector, *mockTransport) {
	selector := &mockHostSelector{}
	transport := &mockTransport{}
	return newConnection(config, transport, selector), selector, transport
}

func TestSendingSelectWithMockServer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, string(FormatTabSeparated), r.Header.Get("X-ClickHouse-Format"))
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "id\tname\nUInt64\tString\n1\tAlice\n2\tBob\n")
	}))
	defer ts.Close()
	client, err := NewFromHostList([]string{ts.URL})
	assert.Nil(t, err)
	assert.NotNil(t, client)
	assert.NotNil(t, client.hostSelector)
	assert.NotNil(t, client.transport)

	stream, err := client.Select(context.Background(), "SELECT id, name FROM users", nil)
	require.NoError(t, err)
	defer stream.Close()
	assert.Equal(t, TypeNumber, stream.Columns()[0].GenericType)
	rows, err := stream.All()
	require.NoError(t, err)
	assert.Equal(t, []Row{{"id": "1", "name": "Alice"}, {"id": "2", "name": "Bob"}}, rows)

	badClient := &Connection{
		transport: &httpClientTransport{
			client: http.DefaultClient,
		},
		hostSelector: &simpleHostSelector{
			hostList: []string{},
		},
	}
	_, err = badClient.Select(context.Background(), "SELECT 1", nil)
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestSelectBindsParams(t *testing.T) {
	conn, selector, transport := newMockConnection(&ClientConfig{})
	selector.On("selectHost").Return("ch0:8123", nil)
	transport.On("query", mock.Anything, "ch0:8123", &Request{
		query:  "SELECT * FROM users WHERE name = 'Bob'",
		format: FormatTabSeparated,
	}).Return(tsvBody("id\nUInt64\n2\n"), nil)

	var rows []Row
	err := conn.WithSelect(context.Background(), "SELECT * FROM users WHERE name = :name;", map[string]interface{}{"name": "Bob"}, func(stream *ResultStream) error {
		var err error
		rows, err = stream.All()
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []Row{{"id": "2"}}, rows)
	transport.AssertExpectations(t)
}

func TestSelectErrors(t *testing.T) {
	conn, selector, transport := newMockConnection(&ClientConfig{})
	_, err := conn.Select(context.Background(), "SELECT :missing", map[string]interface{}{"other": 1})
	assert.Error(t, err)

	selector.On("selectHost").Return("", fmt.Errorf("no host")).Once()
	_, err = conn.Select(context.Background(), "SELECT 1", nil)
	assert.True(t, errors.Is(err, ErrTransport))

	selector.On("selectHost").Return("ch0:8123", nil)
	transport.On("query", mock.Anything, "ch0:8123", mock.Anything).Return(nil, &TransportError{StatusCode: 500, Body: "boom"}).Once()
	_, err = conn.Select(context.Background(), "SELECT 1", nil)
	assert.True(t, errors.Is(err, ErrTransport))

	transport.On("query", mock.Anything, "ch0:8123", mock.Anything).Return(tsvBody(""), nil).Once()
	_, err = conn.Select(context.Background(), "SELECT 1", nil)
	assert.True(t, errors.Is(err, ErrFormat))

	transport.On("query", mock.Anything, "ch0:8123", mock.Anything).Return(tsvBody("{}"), nil).Once()
	_, err = conn.SelectFormat(context.Background(), ResultFormat("JSON"), "SELECT 1", nil)
	assert.Error(t, err)
}

func TestWithSelectPropagatesCallbackError(t *testing.T) {
	conn, selector, transport := newMockConnection(&ClientConfig{})
	selector.On("selectHost").Return("ch0:8123", nil)
	body := &trackingBody{Reader: strings.NewReader("n\nUInt8\n1\n2\n")}
	transport.On("query", mock.Anything, "ch0:8123", mock.Anything).Return(body, nil)

	callbackErr := errors.New("stop")
	err := conn.WithSelect(context.Background(), "SELECT n FROM t", nil, func(stream *ResultStream) error {
		stream.Next()
		return callbackErr
	})
	assert.Equal(t, callbackErr, err)
	assert.Equal(t, 1, body.closed)
}

func TestExecAndWrite(t *testing.T) {
	conn, selector, transport := newMockConnection(&ClientConfig{})
	selector.On("selectHost").Return("ch0:8123", nil)
	transport.On("query", mock.Anything, "ch0:8123", &Request{
		query:  "TRUNCATE TABLE t",
		format: formatPlainText,
	}).Return(tsvBody(""), nil).Once()
	assert.Nil(t, conn.Exec(context.Background(), "TRUNCATE TABLE t;", nil))

	transport.On("query", mock.Anything, "ch0:8123", mock.Anything).Return(tsvBody("Ok.\n"), nil).Once()
	assert.True(t, conn.Write(context.Background(), "OPTIMIZE TABLE t"))

	transport.On("query", mock.Anything, "ch0:8123", mock.Anything).Return(nil, &TransportError{StatusCode: 400}).Once()
	assert.False(t, conn.Write(context.Background(), "DROP TABLE nope"))
}

func TestSelectArrowStream(t *testing.T) {
	conn, selector, transport := newMockConnection(&ClientConfig{})
	selector.On("selectHost").Return("ch0:8123", nil)
	payload := encodeArrowStream(t, []int64{7})
	transport.On("query", mock.Anything, "ch0:8123", &Request{
		query:  "SELECT id, name, label FROM t",
		format: FormatArrowStream,
	}).Return(io.NopCloser(strings.NewReader(string(payload))), nil)

	stream, err := conn.SelectFormat(context.Background(), FormatArrowStream, "SELECT id, name, label FROM t", nil)
	require.NoError(t, err)
	row, err := stream.First()
	require.NoError(t, err)
	assert.Equal(t, Row{"id": "7", "name": "odd", "label": "row"}, row)
	assert.Nil(t, stream.Close())
}

func TestConnectionDefaults(t *testing.T) {
	conn, _, _ := newMockConnection(&ClientConfig{})
	assert.Equal(t, DefaultImportBatchSize, conn.importConfig.BatchSize)
	assert.Equal(t, 1, conn.importConfig.Concurrency)
	assert.NotNil(t, conn.TypeMapper())
	assert.NotNil(t, conn.Rewriter())

	types := NewTypeMapper(nil, nil)
	conn, _, _ = newMockConnection(&ClientConfig{TypeMapper: types, Import: ImportConfig{BatchSize: 10, Concurrency: 4}})
	assert.Same(t, types, conn.TypeMapper())
	assert.Equal(t, 10, conn.importConfig.BatchSize)
	assert.Equal(t, 4, conn.importConfig.Concurrency)
}
