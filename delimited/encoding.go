package delimited

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// ValidateEncoding reports whether name is a character set NewReader can decode.
func ValidateEncoding(name string) error {
	if isUTF8(name) {
		return nil
	}
	if _, err := htmlindex.Get(name); err != nil {
		return fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return nil
}

func isUTF8(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

// decoded wraps the source so the CSV parser always sees UTF-8.
func (r *Reader) decoded() io.Reader {
	if isUTF8(r.encoding) {
		return r.source
	}
	enc, err := htmlindex.Get(r.encoding)
	if err != nil {
		// NewReader validates the name, so this only happens for a zero Reader.
		return r.source
	}
	return enc.NewDecoder().Reader(r.source)
}

// swapEnclosure exchanges the configured enclosure with '"' so encoding/csv can parse
// it. restore applies the same exchange to parsed cells.
func (r *Reader) swapEnclosure(input io.Reader) io.Reader {
	if r.enclosure == '"' {
		return input
	}
	return transform.NewReader(input, runes.Map(r.swapRune))
}

func (r *Reader) restore(row []string) []string {
	if r.enclosure == '"' {
		return row
	}
	for i, cell := range row {
		row[i] = strings.Map(r.swapRune, cell)
	}
	return row
}

func (r *Reader) swapRune(c rune) rune {
	switch c {
	case r.enclosure:
		return '"'
	case '"':
		return r.enclosure
	}
	return c
}
