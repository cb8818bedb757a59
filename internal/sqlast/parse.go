package sqlast

import (
	"regexp"
	"strings"
)

var leadingKeywordRe = regexp.MustCompile(`(?i)^\s*(?:--[^\n]*\n\s*)*([A-Za-z]+)`)

// Parse parses a single ClickHouse-dialect SELECT statement into a
// Select tree. If the statement's leading keyword isn't SELECT or WITH,
// Parse returns a *NotSelectError instead of attempting the full
// grammar, so callers can surface spec.md's "Only SELECT statements are
// allowed" message without it being conflated with a malformed-SELECT
// parse failure.
func Parse(sql string) (*Select, error) {
	m := leadingKeywordRe.FindStringSubmatch(sql)
	keyword := ""
	if m != nil {
		keyword = m[1]
	}
	if !strings.EqualFold(keyword, "SELECT") && !strings.EqualFold(keyword, "WITH") {
		return nil, &NotSelectError{Keyword: keyword}
	}

	tree, err := sqlParser.ParseString("", sql)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return convertStatement(tree), nil
}
