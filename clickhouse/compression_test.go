package clickhouse

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCompression(t *testing.T) {
	for input, expected := range map[string]string{
		"":        "",
		"none":    "",
		"GZIP":    "gzip",
		" zstd ":  "zstd",
		"lz4":     "lz4",
		"snappy":  "snappy",
		"deflate": "deflate",
	} {
		actual, err := normalizeCompression(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, actual, input)
	}
	_, err := normalizeCompression("br")
	assert.Error(t, err)
}

func TestCompressionRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat("1\tAlice\n2\tBob\n", 100))
	for _, method := range []string{"", "gzip", "deflate", "zstd", "lz4", "snappy"} {
		compressed, err := compressPayload(payload, method)
		require.NoError(t, err, method)
		if method != "" {
			assert.NotEqual(t, payload, compressed, method)
		}

		body := &trackingBody{Reader: bytes.NewReader(compressed)}
		reader, err := decompressReader(body, method)
		require.NoError(t, err, method)
		decoded, err := io.ReadAll(reader)
		require.NoError(t, err, method)
		assert.Equal(t, payload, decoded, method)
		assert.Nil(t, reader.Close())
		assert.Equal(t, 1, body.closed, method)
	}
}

func TestDecompressReaderErrors(t *testing.T) {
	_, err := decompressReader(io.NopCloser(strings.NewReader("x")), "br")
	assert.Error(t, err)

	_, err = decompressReader(io.NopCloser(strings.NewReader("not gzip")), "gzip")
	assert.Error(t, err)

	_, err = decompressReader(io.NopCloser(strings.NewReader("not snappy")), "snappy")
	assert.Error(t, err)

	_, err = compressPayload([]byte("x"), "br")
	assert.Error(t, err)
}
