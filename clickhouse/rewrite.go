package clickhouse

import (
	"fmt"
	"strings"
)

const countProjection = "count(*) as total"

// statementTrimSet is stripped from both ends of every statement before it is sent.
const statementTrimSet = " \t\n\r\x00\x0B;"

// RewriterConfig controls how CountQuery treats statements outside the common shape.
type RewriterConfig struct {
	// RequireWhere rejects statements without a top-level WHERE clause.
	RequireWhere bool
	// CountGroups counts the groups of a GROUP BY statement through a subquery instead of
	// keeping the GROUP BY on the count query, which would count rows per group.
	CountGroups bool
}

// QueryRewriter derives count and window queries from a SELECT statement.
type QueryRewriter struct {
	config RewriterConfig
}

// NewQueryRewriter creates a QueryRewriter.
func NewQueryRewriter(config RewriterConfig) *QueryRewriter {
	return &QueryRewriter{config: config}
}

// selectClauses holds the top-level clause bodies of a SELECT statement.
type selectClauses struct {
	projection string
	from       string
	where      string
	groupBy    string
	orderBy    string
	hasWhere   bool
	hasGroupBy bool
	hasOrderBy bool
}

// CountQuery replaces the projection with count(*) as total and drops ORDER BY.
func (r *QueryRewriter) CountQuery(query string) (string, error) {
	clauses, err := splitSelect(query)
	if err != nil {
		return "", err
	}
	if r.config.RequireWhere && !clauses.hasWhere {
		return "", fmt.Errorf("%w: no WHERE clause in %q", ErrUnsupportedQuery, query)
	}
	if clauses.hasGroupBy && r.config.CountGroups {
		parts := []string{"SELECT 1 FROM", clauses.from}
		if clauses.hasWhere {
			parts = append(parts, "WHERE", clauses.where)
		}
		parts = append(parts, "GROUP BY", clauses.groupBy)
		return fmt.Sprintf("SELECT %s FROM (%s)", countProjection, strings.Join(parts, " ")), nil
	}
	parts := []string{"SELECT", countProjection, "FROM", clauses.from}
	if clauses.hasWhere {
		parts = append(parts, "WHERE", clauses.where)
	}
	if clauses.hasGroupBy {
		parts = append(parts, "GROUP BY", clauses.groupBy)
	}
	return strings.Join(parts, " "), nil
}

// WindowQuery appends LIMIT offset, limit. The statement must not carry its own LIMIT.
func (r *QueryRewriter) WindowQuery(query string, offset int64, limit int) string {
	return fmt.Sprintf("%s LIMIT %d, %d", strings.Trim(stripComments(query), statementTrimSet), offset, limit)
}

// stripComments replaces --, # and /* */ comments outside quoted text with a space, so
// clauses can be rejoined on one line.
func stripComments(q string) string {
	if !strings.Contains(q, "--") && !strings.Contains(q, "/*") && !strings.Contains(q, "#") {
		return q
	}
	var b strings.Builder
	b.Grow(len(q))
	for i := 0; i < len(q); {
		c := q[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := skipQuoted(q, i)
			b.WriteString(q[i:end])
			i = end
		case c == '#' || (c == '-' && i+1 < len(q) && q[i+1] == '-'):
			end := strings.IndexByte(q[i:], '\n')
			if end < 0 {
				i = len(q)
			} else {
				i += end
			}
			b.WriteByte(' ')
		case c == '/' && i+1 < len(q) && q[i+1] == '*':
			i = skipUntil(q, i+2, "*/")
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// splitSelect locates the top-level FROM, WHERE, GROUP BY and ORDER BY keywords, skipping
// quoted text and anything nested in parentheses.
func splitSelect(query string) (*selectClauses, error) {
	q := strings.Trim(stripComments(query), statementTrimSet)
	keywords := scanTopLevelKeywords(q)
	if len(keywords) == 0 || keywords[0].name != "SELECT" || keywords[0].start != 0 {
		return nil, fmt.Errorf("%w: statement does not start with SELECT", ErrUnsupportedQuery)
	}
	// Clauses must appear in this order; the first match of each wins.
	order := []string{"FROM", "WHERE", "GROUP BY", "ORDER BY"}
	found := map[string]keywordPos{"SELECT": keywords[0]}
	sequence := []keywordPos{keywords[0]}
	next := 0
	for _, kw := range keywords[1:] {
		for i := next; i < len(order); i++ {
			if kw.name == order[i] {
				found[kw.name] = kw
				sequence = append(sequence, kw)
				next = i + 1
				break
			}
		}
	}
	if _, ok := found["FROM"]; !ok {
		return nil, fmt.Errorf("%w: statement has no FROM clause", ErrUnsupportedQuery)
	}
	body := func(kw keywordPos, idx int) string {
		end := len(q)
		if idx+1 < len(sequence) {
			end = sequence[idx+1].start
		}
		return strings.TrimSpace(q[kw.end:end])
	}
	clauses := &selectClauses{}
	for idx, kw := range sequence {
		text := body(kw, idx)
		switch kw.name {
		case "SELECT":
			clauses.projection = text
		case "FROM":
			clauses.from = text
		case "WHERE":
			clauses.where, clauses.hasWhere = text, true
		case "GROUP BY":
			clauses.groupBy, clauses.hasGroupBy = text, true
		case "ORDER BY":
			clauses.orderBy, clauses.hasOrderBy = text, true
		}
	}
	if clauses.from == "" {
		return nil, fmt.Errorf("%w: empty FROM clause", ErrUnsupportedQuery)
	}
	return clauses, nil
}

type keywordPos struct {
	name  string
	start int
	end   int
}

// scanTopLevelKeywords returns the clause keywords found outside quotes and parentheses,
// in order of appearance. Comments must already be stripped.
func scanTopLevelKeywords(q string) []keywordPos {
	var keywords []keywordPos
	depth := 0
	for i := 0; i < len(q); {
		c := q[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(q, i)
			continue
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case isIdentStart(c) && (i == 0 || !isIdentPart(q[i-1]) && q[i-1] != '.'):
			word, end := readWord(q, i)
			if depth == 0 {
				if kw, ok := matchKeyword(q, strings.ToUpper(word), i, end); ok {
					keywords = append(keywords, kw)
					i = kw.end
					continue
				}
			}
			i = end
			continue
		}
		i++
	}
	return keywords
}

func matchKeyword(q, upper string, start, end int) (keywordPos, bool) {
	switch upper {
	case "SELECT", "FROM", "WHERE":
		return keywordPos{name: upper, start: start, end: end}, true
	case "GROUP", "ORDER":
		j := end
		for j < len(q) && isSpace(q[j]) {
			j++
		}
		if j == end || j >= len(q) || !isIdentStart(q[j]) {
			return keywordPos{}, false
		}
		next, nextEnd := readWord(q, j)
		if strings.ToUpper(next) != "BY" {
			return keywordPos{}, false
		}
		return keywordPos{name: upper + " BY", start: start, end: nextEnd}, true
	}
	return keywordPos{}, false
}

func skipQuoted(q string, i int) int {
	quote := q[i]
	for j := i + 1; j < len(q); j++ {
		switch q[j] {
		case '\\':
			j++
		case quote:
			if j+1 < len(q) && q[j+1] == quote {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(q)
}

func skipUntil(q string, i int, terminator string) int {
	idx := strings.Index(q[i:], terminator)
	if idx < 0 {
		return len(q)
	}
	return i + idx + len(terminator)
}

func readWord(q string, i int) (string, int) {
	j := i
	for j < len(q) && isIdentPart(q[j]) {
		j++
	}
	return q[i:j], j
}

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || ('0' <= c && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
