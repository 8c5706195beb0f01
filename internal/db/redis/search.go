package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/poisearch/internal/db"
)

// maxExpandedClauses bounds how many clause references an "at least m of n"
// expansion may render. m=2 stays under it up to 127 clauses.
const maxExpandedClauses = 8192

// SearchBool runs a geo-filtered, boosted disjunction via FT.SEARCH WITHSCORES.
func (s *Store) SearchBool(ctx context.Context, q *db.BoolQuery) (*db.SearchResult, error) {
	args, err := buildBoolArgs(q)
	if err != nil {
		return nil, err
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return nil, db.ErrIndexNotFound
		}
		return nil, wrapErr(db.OpSearch, err)
	}

	return parseScoredResult(raw)
}

// SearchQuery validates q and renders its FT.SEARCH query string.
func SearchQuery(q *db.BoolQuery) (string, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}
	return buildQueryString(q)
}

func buildBoolArgs(q *db.BoolQuery) ([]string, error) {
	queryStr, err := SearchQuery(q)
	if err != nil {
		return nil, err
	}

	args := []string{q.IndexName, queryStr, "WITHSCORES"}

	if q.Scorer != "" {
		args = append(args, "SCORER", q.Scorer)
	}

	args = append(args, "LIMIT", "0", strconv.Itoa(q.Size))

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	args = append(args, "DIALECT", "2")
	return args, nil
}

func buildQueryString(q *db.BoolQuery) (string, error) {
	clauses := make([]string, len(q.Should))
	for i, c := range q.Should {
		expr, err := buildClause(c)
		if err != nil {
			return "", err
		}
		clauses[i] = expr
	}

	should, err := buildShould(clauses, q.MinShouldMatch)
	if err != nil {
		return "", err
	}

	return buildGeoFilter(q.Filter) + " " + should, nil
}

// buildShould renders "at least m of clauses". For m >= 2 the match is split on
// the first matching clause: (c_i AND at least m-1 of the clauses after it),
// which grows polynomially in the clause count instead of listing every
// m-combination.
func buildShould(clauses []string, m int) (string, error) {
	if m > len(clauses) {
		return "", db.ErrUnsatisfiable
	}
	if n := expandedSize(len(clauses), m, maxExpandedClauses); n > maxExpandedClauses {
		return "", fmt.Errorf("min_should_match %d over %d clauses expands past %d clause references",
			m, len(clauses), maxExpandedClauses)
	}
	if len(clauses) == 1 {
		return "(" + clauses[0] + ")", nil
	}
	return atLeast(clauses, m), nil
}

func atLeast(clauses []string, m int) string {
	switch {
	case len(clauses) == 1:
		return clauses[0]
	case m <= 1:
		return "(" + strings.Join(clauses, " | ") + ")"
	case m == len(clauses):
		return "(" + strings.Join(clauses, " ") + ")"
	}

	groups := make([]string, 0, len(clauses)-m+1)
	for i := 0; i+m <= len(clauses); i++ {
		groups = append(groups, "("+clauses[i]+" "+atLeast(clauses[i+1:], m-1)+")")
	}
	return "(" + strings.Join(groups, " | ") + ")"
}

// expandedSize counts clause references atLeast renders for n clauses, stopping
// early once the count passes limit.
func expandedSize(n, m, limit int) int {
	if m <= 1 || m >= n {
		return n
	}
	total := 0
	for i := 0; i+m <= n; i++ {
		total += 1 + expandedSize(n-i-1, m-1, limit-total)
		if total > limit {
			break
		}
	}
	return total
}

func buildClause(c db.Clause) (string, error) {
	if c.Field == "" {
		return "", errors.New("clause field is required")
	}

	var body string
	switch c.Kind {
	case db.ClauseMatch:
		tokens := tokenize(c.Value)
		if len(tokens) == 0 {
			return "", fmt.Errorf("match clause on %s has no tokens", c.Field)
		}
		for i, t := range tokens {
			tokens[i] = escapeQuery(t)
		}
		body = fmt.Sprintf("@%s:(%s)", c.Field, strings.Join(tokens, "|"))
	case db.ClausePhrase:
		phrase := strings.Join(tokenize(c.Value), " ")
		if phrase == "" {
			return "", fmt.Errorf("phrase clause on %s is empty", c.Field)
		}
		body = fmt.Sprintf(`@%s:"%s"`, c.Field, escapeQuery(phrase))
	case db.ClauseTerm:
		v := strings.TrimSpace(c.Value)
		if v == "" {
			return "", fmt.Errorf("term clause on %s is empty", c.Field)
		}
		body = fmt.Sprintf("@%s:{%s}", c.Field, tagEscaper.Replace(v))
	case db.ClauseAnyTag:
		tokens := tokenize(c.Value)
		if len(tokens) == 0 {
			return "", fmt.Errorf("tag clause on %s has no tokens", c.Field)
		}
		for i, t := range tokens {
			tokens[i] = tagEscaper.Replace(t)
		}
		body = fmt.Sprintf("@%s:{%s}", c.Field, strings.Join(tokens, " | "))
	default:
		return "", fmt.Errorf("unknown clause kind %s", c.Kind)
	}

	boost := c.Boost
	if boost <= 0 {
		boost = 1
	}
	return fmt.Sprintf("(%s)=>{$weight:%s;}", body, strconv.FormatFloat(boost, 'f', -1, 64)), nil
}

func buildGeoFilter(g db.GeoRadius) string {
	return fmt.Sprintf("@%s:[%s %s %s km]", g.Field,
		strconv.FormatFloat(g.Lon, 'f', -1, 64),
		strconv.FormatFloat(g.Lat, 'f', -1, 64),
		strconv.FormatFloat(g.RadiusKm, 'f', -1, 64))
}

// tokenize splits on whitespace and punctuation; CJK runs stay whole for the
// server-side tokenizer.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '\'' && r != '-') || unicode.IsSymbol(r)
	})
}

// --- Result parsing ---

func parseScoredResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, min(int(total), (len(raw)-1)/3))
	// 3-stride: [total, key1, score1, fields1, key2, score2, fields2, ...]
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}

		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  score,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
	`,`, `\,`,
	`.`, `\.`,
)
