package clickhouse

import (
	"bufio"
	"io"
	"strings"
)

// nullSentinel is how ClickHouse writes NULL in the TabSeparated family of formats.
const nullSentinel = `\N`

// importTrimSet mirrors the whitespace set stripped from imported cells.
const importTrimSet = " \t\n\r\x00\x0B"

var importCellEscaper = strings.NewReplacer("\t", `\t`, "\n", `\n`)

// tsvReader splits a TabSeparated body into raw, still-escaped fields. Tabs and newlines
// inside values are always escaped by the server, so splitting on them is safe.
type tsvReader struct {
	br *bufio.Reader
}

func newTSVReader(r io.Reader) *tsvReader {
	return &tsvReader{br: bufio.NewReaderSize(r, 64*1024)}
}

// readRecord returns the next line split on tabs, or io.EOF once the body is exhausted.
func (r *tsvReader) readRecord() ([]string, error) {
	line, err := r.br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	if err == io.EOF && line == "" {
		return nil, io.EOF
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.Split(line, "\t"), nil
}

// unescapeTSV reverses ClickHouse's TabSeparated escaping.
func unescapeTSV(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'a':
			b.WriteByte('\a')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case 'x':
			if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
				b.WriteByte(fromHex(s[i+1])<<4 | fromHex(s[i+2]))
				i += 2
			} else {
				b.WriteByte('x')
			}
		default:
			// \\, \', \" and anything unknown stand for the character itself.
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// decodeTSVCell maps the null sentinel to nil and unescapes everything else.
func decodeTSVCell(raw string) interface{} {
	if raw == nullSentinel {
		return nil
	}
	return unescapeTSV(raw)
}

// escapeImportCell prepares one cell of a bulk insert payload.
func escapeImportCell(cell string) string {
	return importCellEscaper.Replace(strings.Trim(cell, importTrimSet))
}

// encodeTSVBatch renders rows as a TabSeparated insert payload without a trailing newline.
func encodeTSVBatch(rows [][]string) []byte {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, cell := range row {
			if j > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(escapeImportCell(cell))
		}
	}
	return []byte(b.String())
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func fromHex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
