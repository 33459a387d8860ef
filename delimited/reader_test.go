package delimited

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ',', DetectDelimiter("id,name,age\n"))
	assert.Equal(t, ';', DetectDelimiter("id;name;age\n"))
	assert.Equal(t, '\t', DetectDelimiter("id\tname\tage\n"))
	assert.Equal(t, '|', DetectDelimiter("id|name|age\n"))
	// No candidate present.
	assert.Equal(t, ',', DetectDelimiter("single\n"))
	assert.Equal(t, ',', DetectDelimiter(""))
	// Ties keep the earlier candidate.
	assert.Equal(t, ',', DetectDelimiter("a,b;c\n"))
	assert.Equal(t, ';', DetectDelimiter("a;b|c\n"))
	assert.Equal(t, ';', DetectDelimiter("a;b;c,d\n"))
}

func TestReaderFetchRows(t *testing.T) {
	r, err := NewReader(strings.NewReader("id,name\n1,Alice\n2,Bob\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, ',', r.Delimiter())
	assert.Equal(t, '"', r.Enclosure())
	assert.True(t, r.HasHeader())
	assert.Equal(t, []string{"id", "name"}, r.Fields())

	rows, err := r.FetchRows(1000, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "Alice"}, {"2", "Bob"}}, rows)

	rows, err = r.FetchRows(1000, 0, 1)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	// Without indices the whole row comes back.
	require.NoError(t, r.ResetPointer())
	rows, err = r.FetchRows(10)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "Alice"}, {"2", "Bob"}}, rows)
}

func TestReaderFetchRowsInChunks(t *testing.T) {
	r, err := NewReader(strings.NewReader("a;b\n1;x\n2;y\n3;z\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, ';', r.Delimiter())

	rows, err := r.FetchRows(2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	rows, err = r.FetchRows(2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"3", "z"}}, rows)
}

func TestReaderSkipsBlankRows(t *testing.T) {
	r, err := NewReader(strings.NewReader("id,name\n1,Alice\n   \n\n2,Bob\n"), Options{})
	require.NoError(t, err)
	rows, err := r.FetchRows(2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "Alice"}, {"2", "Bob"}}, rows)
}

func TestReaderProjection(t *testing.T) {
	r, err := NewReader(strings.NewReader("id,name,age\n1,Alice,30\n2,Bob,40\n"), Options{})
	require.NoError(t, err)

	row, err := r.FetchRow(2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"30", "1"}, row)

	rows, err := r.FetchRows(5, 1)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Bob"}}, rows)

	_, err = r.FetchRow()
	assert.Equal(t, io.EOF, err)
}

func TestReaderProjectionOutOfRange(t *testing.T) {
	r, err := NewReader(strings.NewReader("id,name\n1,Alice\n"), Options{})
	require.NoError(t, err)
	_, err = r.FetchRow(0, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat))
	var projectionErr *ProjectionError
	require.True(t, errors.As(err, &projectionErr))
	assert.Equal(t, []int{0, 5}, projectionErr.Indices)
	assert.Equal(t, []string{"1", "Alice"}, projectionErr.Row)
}

func TestReaderResetPointer(t *testing.T) {
	r, err := NewReader(strings.NewReader("id,name\n1,Alice\n2,Bob\n"), Options{})
	require.NoError(t, err)
	_, err = r.FetchRows(10)
	require.NoError(t, err)

	require.NoError(t, r.ResetPointer())
	row, err := r.FetchRow()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "Alice"}, row)
}

func TestReaderWithoutHeader(t *testing.T) {
	r, err := NewReader(strings.NewReader("1|Alice\n2|Bob\n"), Options{NoHeader: true})
	require.NoError(t, err)
	assert.Nil(t, r.Fields())
	assert.Equal(t, '|', r.Delimiter())

	rows, err := r.FetchRows(10)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "Alice"}, {"2", "Bob"}}, rows)

	require.NoError(t, r.ResetPointer())
	row, err := r.FetchRow()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "Alice"}, row)
}

func TestReaderQuotedCells(t *testing.T) {
	r, err := NewReader(strings.NewReader("id,note\n1,\"hello, world\"\n2,\"multi\nline\"\n"), Options{})
	require.NoError(t, err)
	rows, err := r.FetchRows(10)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "hello, world"}, {"2", "multi\nline"}}, rows)
}

func TestReaderCustomEnclosure(t *testing.T) {
	r, err := NewReader(strings.NewReader("id;note\n1;'a;b'\n2;say \"hi\"\n"), Options{Enclosure: '\''})
	require.NoError(t, err)
	assert.Equal(t, ';', r.Delimiter())
	rows, err := r.FetchRows(10)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "a;b"}, {"2", "say \"hi\""}}, rows)
}

func TestReaderExplicitDelimiter(t *testing.T) {
	// Auto-detection would pick ',' here.
	r, err := NewReader(strings.NewReader("a,b;c\n1,2;3\n"), Options{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, []string{"a,b", "c"}, r.Fields())
}

func TestReaderStripsBOM(t *testing.T) {
	r, err := NewReader(strings.NewReader("\uFEFFid,name\n1,Alice\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, r.Fields())
}

func TestReaderDecodesEncoding(t *testing.T) {
	encoded, err := charmap.Windows1250.NewEncoder().String("id,name\n1,Łukasz\n")
	require.NoError(t, err)

	r, err := NewReader(strings.NewReader(encoded), Options{Encoding: "windows-1250"})
	require.NoError(t, err)
	rows, err := r.FetchRows(10)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "Łukasz"}}, rows)
}

func TestReaderRejectsInvalidOptions(t *testing.T) {
	_, err := NewReader(strings.NewReader("a,b\n"), Options{Encoding: "no-such-charset"})
	assert.Error(t, err)

	_, err = NewReader(strings.NewReader("a,b\n"), Options{Delimiter: ',', Enclosure: ','})
	assert.Error(t, err)
}

func TestReaderEmptyInput(t *testing.T) {
	r, err := NewReader(strings.NewReader(""), Options{})
	require.NoError(t, err)
	assert.Empty(t, r.Fields())
	rows, err := r.FetchRows(10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
