package clickhouse

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var newZstdReader = zstd.NewReader

func normalizeCompression(method string) (string, error) {
	switch m := strings.ToLower(strings.TrimSpace(method)); m {
	case "", "none":
		return "", nil
	case "gzip", "deflate", "zstd", "lz4", "snappy":
		return m, nil
	default:
		return "", fmt.Errorf("unsupported compression: %s", method)
	}
}

// stackedReadCloser closes the decompressor before the underlying body.
type stackedReadCloser struct {
	io.Reader
	closers []func() error
}

func (s *stackedReadCloser) Close() error {
	var firstErr error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// decompressReader wraps a response body according to its Content-Encoding.
func decompressReader(body io.ReadCloser, encoding string) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity", "none":
		return body, nil
	case "gzip":
		reader, err := gzip.NewReader(body)
		if err != nil {
			return nil, err
		}
		return &stackedReadCloser{Reader: reader, closers: []func() error{reader.Close, body.Close}}, nil
	case "deflate":
		reader, err := zlib.NewReader(body)
		if err != nil {
			return nil, err
		}
		return &stackedReadCloser{Reader: reader, closers: []func() error{reader.Close, body.Close}}, nil
	case "zstd":
		decoder, err := newZstdReader(body)
		if err != nil {
			return nil, err
		}
		closeDecoder := func() error {
			decoder.Close()
			return nil
		}
		return &stackedReadCloser{Reader: decoder, closers: []func() error{closeDecoder, body.Close}}, nil
	case "lz4":
		return &stackedReadCloser{Reader: lz4.NewReader(body), closers: []func() error{body.Close}}, nil
	case "snappy":
		// ClickHouse sends snappy as a single block, so it cannot be streamed.
		payload, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		decoded, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("snappy decompress failed: %w", err)
		}
		return &stackedReadCloser{Reader: bytes.NewReader(decoded), closers: []func() error{body.Close}}, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding: %s", encoding)
	}
}

// compressPayload encodes a request body for the given method.
func compressPayload(payload []byte, method string) ([]byte, error) {
	buf := &bytes.Buffer{}
	var writer io.WriteCloser
	switch method {
	case "":
		return payload, nil
	case "snappy":
		return snappy.Encode(nil, payload), nil
	case "gzip":
		writer = gzip.NewWriter(buf)
	case "deflate":
		writer = zlib.NewWriter(buf)
	case "zstd":
		encoder, err := zstd.NewWriter(buf)
		if err != nil {
			return nil, err
		}
		writer = encoder
	case "lz4":
		writer = lz4.NewWriter(buf)
	default:
		return nil, fmt.Errorf("unsupported compression: %s", method)
	}
	if _, err := writer.Write(payload); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
