package clickhouse

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// dateTimeLayout renders times as DateTime literals, whole seconds in UTC.
const dateTimeLayout = "2006-01-02 15:04:05"

var stringLiteralEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// formatQuery substitutes :name placeholders with literals formatted from params.
// Placeholders inside quoted text and :: casts are left alone.
func formatQuery(query string, params map[string]interface{}) (string, error) {
	if len(params) == 0 {
		return query, nil
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := skipQuoted(query, i)
			b.WriteString(query[i:end])
			i = end
		case c == ':' && i+1 < len(query) && query[i+1] == ':':
			b.WriteString("::")
			i += 2
		case c == ':' && i+1 < len(query) && isIdentStart(query[i+1]):
			name, end := readWord(query, i+1)
			value, ok := params[name]
			if !ok {
				return "", fmt.Errorf("no value bound for parameter :%s", name)
			}
			literal, err := formatArg(value)
			if err != nil {
				return "", fmt.Errorf("failed to format parameter :%s: %w", name, err)
			}
			b.WriteString(literal)
			i = end
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// BindPositional substitutes ? placeholders outside quoted text with literals formatted
// from args, in order.
func BindPositional(query string, args ...interface{}) (string, error) {
	if len(args) == 0 {
		return query, nil
	}
	var b strings.Builder
	b.Grow(len(query))
	next := 0
	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := skipQuoted(query, i)
			b.WriteString(query[i:end])
			i = end
		case c == '?':
			if next >= len(args) {
				return "", fmt.Errorf("expected %d parameters, got more placeholders", len(args))
			}
			literal, err := formatArg(args[next])
			if err != nil {
				return "", fmt.Errorf("failed to format parameter %d: %w", next+1, err)
			}
			b.WriteString(literal)
			next++
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	if next != len(args) {
		return "", fmt.Errorf("expected %d parameters, got %d", next, len(args))
	}
	return b.String(), nil
}

// countPlaceholders counts ? placeholders outside quoted text.
func countPlaceholders(query string) int {
	n := 0
	for i := 0; i < len(query); {
		switch query[i] {
		case '\'', '"', '`':
			i = skipQuoted(query, i)
		case '?':
			n++
			i++
		default:
			i++
		}
	}
	return n
}

// formatArg renders a Go value as a ClickHouse SQL literal.
func formatArg(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "NULL", nil
	case string:
		return quoteString(v), nil
	case []byte:
		return quoteString(string(v)), nil
	case time.Time:
		return quoteString(v.UTC().Format(dateTimeLayout)), nil
	case *time.Time:
		if v == nil {
			return "NULL", nil
		}
		return formatArg(*v)
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case *big.Int:
		return quoteString(v.String()), nil
	case *big.Float:
		return quoteString(v.Text('f', -1)), nil
	case fmt.Stringer:
		return quoteString(v.String()), nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		items := make([]string, rv.Len())
		for i := range items {
			item, err := formatArg(rv.Index(i).Interface())
			if err != nil {
				return "", err
			}
			items[i] = item
		}
		return "[" + strings.Join(items, ", ") + "]", nil
	}
	return "", fmt.Errorf("unsupported type: %T", value)
}

func quoteString(s string) string {
	return "'" + stringLiteralEscaper.Replace(s) + "'"
}

// quoteIdentifier wraps a table or column name in backticks.
func quoteIdentifier(name string) string {
	return "`" + strings.NewReplacer(`\`, `\\`, "`", "\\`").Replace(name) + "`"
}
