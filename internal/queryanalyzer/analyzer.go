// Package queryanalyzer converts SQL text back into a structured query
// intent, the inverse of internal/querybuilder. It is a best-effort
// recognizer: SQL the builder never emits simply falls through to looser
// classifications (an unrecognized aggregate becomes a "raw" metric,
// an unrecognized group-by expression is still admitted as a dimension
// key) rather than failing outright.
package queryanalyzer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lmnr-ai/query-engine/internal/querybuilder"
	"github.com/lmnr-ai/query-engine/internal/sqlast"
)

// BuilderError mirrors querybuilder.BuilderError in shape but is its own
// type: the two packages recognize unrelated failure conditions (a
// malformed intent vs. unparseable/unsupported SQL) and neither needs to
// inspect the other's error values, so sharing one type would only add a
// cross-package coupling with no behavioral payoff.
type BuilderError struct {
	Msg string
}

func (e *BuilderError) Error() string { return e.Msg }

var aggFns = map[string]bool{"count": true, "sum": true, "avg": true, "min": true, "max": true}

// Convert parses sql and extracts a QueryIntent, following
// original_source/query-engine/src/sql_to_json.py's SqlToJsonConverter
// line-for-line.
func Convert(sql string) (*querybuilder.QueryIntent, error) {
	stmt, err := sqlast.Parse(sql)
	if err != nil {
		var notSelect *sqlast.NotSelectError
		if errors.As(err, &notSelect) {
			return nil, &BuilderError{Msg: "Only SELECT queries supported"}
		}
		return nil, &BuilderError{Msg: fmt.Sprintf("Failed to parse SQL: %v", err)}
	}
	if stmt.From == nil {
		return nil, &BuilderError{Msg: "Failed to parse SQL: query has no FROM clause"}
	}

	table := tableName(stmt.From.Source)
	grouped := groupedColumns(stmt)

	metrics, dimensions, timeRange, err := parseSelectExpressions(stmt, grouped)
	if err != nil {
		return nil, err
	}

	timeCol := ""
	if timeRange != nil {
		timeCol = timeRange.Column
	}
	var filters []querybuilder.Filter
	if stmt.Where != nil {
		filters = extractFilters(stmt.Where, timeCol)
	}

	intent := &querybuilder.QueryIntent{
		Table:   table,
		Metrics: metrics,
	}
	if len(dimensions) > 0 {
		intent.Dimensions = dimensions
	}
	if len(filters) > 0 {
		intent.Filters = filters
	}
	if timeRange != nil {
		intent.TimeRange = timeRange
	}
	if orderBy := parseOrderByClause(stmt); len(orderBy) > 0 {
		intent.OrderBy = orderBy
	}
	if limit := parseLimitClause(stmt); limit != nil {
		intent.Limit = *limit
	}

	return intent, nil
}

func tableName(tr sqlast.TableRef) string {
	switch v := tr.(type) {
	case *sqlast.NamedTable:
		return v.Name
	case *sqlast.FuncTable:
		return v.Name
	case *sqlast.SubqueryTable:
		return v.Alias
	default:
		return ""
	}
}

func groupedColumns(stmt *sqlast.Select) map[string]bool {
	grouped := map[string]bool{}
	for _, e := range stmt.GroupBy {
		if col, ok := e.(*sqlast.Column); ok {
			grouped[col.Name] = true
		} else {
			grouped[exprText(e)] = true
		}
	}
	return grouped
}

func isSimpleColumnRef(e sqlast.Expr, grouped map[string]bool) bool {
	if col, ok := e.(*sqlast.Column); ok {
		return grouped[col.Name]
	}
	return grouped[exprText(e)]
}

func isTimeBucket(e sqlast.Expr) bool {
	fc, ok := e.(*sqlast.FuncCall)
	return ok && strings.EqualFold(fc.Name, "toStartOfInterval")
}

func parseSelectExpressions(stmt *sqlast.Select, grouped map[string]bool) ([]querybuilder.Metric, []string, *querybuilder.TimeRange, error) {
	var metrics []querybuilder.Metric
	var dimensions []string
	var timeRange *querybuilder.TimeRange

	for _, item := range stmt.Items {
		inner := item.Expr
		if item.Alias != "" {
			switch {
			case isTimeBucket(inner):
				tr, err := extractTimeRange(stmt, inner.(*sqlast.FuncCall))
				if err != nil {
					return nil, nil, nil, err
				}
				timeRange = tr
			case grouped[item.Alias] || isSimpleColumnRef(inner, grouped):
				if col, ok := inner.(*sqlast.Column); ok {
					dimensions = append(dimensions, col.Name)
				}
			default:
				metrics = append(metrics, extractMetric(inner, item.Alias))
			}
		} else if col, ok := inner.(*sqlast.Column); ok {
			dimensions = append(dimensions, col.Name)
		}
	}

	return metrics, dimensions, timeRange, nil
}

func extractMetric(e sqlast.Expr, alias string) querybuilder.Metric {
	kind, node := firstAggOrQuantile(e)
	switch kind {
	case "quantile":
		return parseQuantile(node, alias)
	case "count", "sum", "avg", "min", "max":
		return parseStandardAgg(node, kind, alias)
	default:
		return querybuilder.Metric{Fn: "raw", RawSQL: exprText(e), Alias: alias}
	}
}

// firstAggOrQuantile does a pre-order search for the first quantile(...)(...)
// or count/sum/avg/min/max call reachable from e, matching
// expr.walk()'s traversal order in the original.
func firstAggOrQuantile(e sqlast.Expr) (string, *sqlast.FuncCall) {
	var kind string
	var node *sqlast.FuncCall
	var visit func(sqlast.Expr) bool
	visit = func(ex sqlast.Expr) bool {
		switch v := ex.(type) {
		case *sqlast.FuncCall:
			lname := strings.ToLower(v.Name)
			if lname == "quantile" {
				kind, node = "quantile", v
				return true
			}
			if aggFns[lname] {
				kind, node = lname, v
				return true
			}
			for _, a := range v.Args {
				if visit(a) {
					return true
				}
			}
			for _, a := range v.Args2 {
				if visit(a) {
					return true
				}
			}
		case *sqlast.Binary:
			return visit(v.Left) || visit(v.Right)
		case *sqlast.Not:
			return visit(v.Expr)
		case *sqlast.Between:
			return visit(v.Target) || visit(v.Low) || visit(v.High)
		case *sqlast.Neg:
			return visit(v.Expr)
		}
		return false
	}
	visit(e)
	return kind, node
}

func parseQuantile(node *sqlast.FuncCall, alias string) querybuilder.Metric {
	column := "unknown"
	switch {
	case len(node.Args2) > 0:
		column = extractColumn(node.Args2[0])
	case len(node.Args) > 1:
		column = extractColumn(node.Args[1])
	}

	percentile := 0.5
	if len(node.Args) > 0 {
		if lit, ok := node.Args[0].(*sqlast.Literal); ok && lit.Kind == sqlast.LiteralNumber {
			if f, err := strconv.ParseFloat(lit.Text, 64); err == nil {
				percentile = f
			}
		}
	}

	return querybuilder.Metric{Fn: "quantile", Args: []any{percentile}, Column: column, Alias: alias}
}

func parseStandardAgg(node *sqlast.FuncCall, fn, alias string) querybuilder.Metric {
	column := "*"
	if len(node.Args) > 0 {
		column = extractColumn(node.Args[0])
	}
	return querybuilder.Metric{Fn: fn, Column: column, Alias: alias}
}

func extractColumn(e sqlast.Expr) string {
	switch v := e.(type) {
	case *sqlast.Column:
		return v.Name
	case *sqlast.Star:
		return "*"
	default:
		return exprText(v)
	}
}

// extractTimeRange expects the builder's own toStartOfInterval(col,
// toInterval(value, 'unit')) shape, the only form a query produced by
// this package's own querybuilder can take.
func extractTimeRange(stmt *sqlast.Select, fc *sqlast.FuncCall) (*querybuilder.TimeRange, error) {
	if len(fc.Args) < 2 {
		return nil, &BuilderError{Msg: "toStartOfInterval requires a column and an interval argument"}
	}
	col, ok := fc.Args[0].(*sqlast.Column)
	if !ok {
		return nil, &BuilderError{Msg: "toStartOfInterval's first argument must be a column"}
	}

	tr := &querybuilder.TimeRange{Column: col.Name}

	if intervalCall, ok := fc.Args[1].(*sqlast.FuncCall); ok && strings.EqualFold(intervalCall.Name, "toInterval") && len(intervalCall.Args) >= 2 {
		tr.IntervalValue = normalizeIntervalValue(intervalCall.Args[0])
		if lit, ok := intervalCall.Args[1].(*sqlast.Literal); ok {
			tr.IntervalUnit = literalRawText(lit)
		}
	}

	tr.FillGaps = hasWithFill(stmt)

	from, to := "{start_time:DateTime64}", "{end_time:DateTime64}"
	if stmt.Where != nil {
		from, to = extractTimeBounds(stmt.Where, tr.Column)
	}
	tr.From = from
	tr.To = to

	return tr, nil
}

func normalizeIntervalValue(e sqlast.Expr) any {
	if lit, ok := e.(*sqlast.Literal); ok && lit.Kind == sqlast.LiteralNumber {
		if f, err := strconv.ParseFloat(lit.Text, 64); err == nil {
			return f
		}
	}
	return normalizeValue(e)
}

func hasWithFill(stmt *sqlast.Select) bool {
	for _, oi := range stmt.OrderBy {
		if oi.WithFill != nil {
			return true
		}
	}
	return false
}

func extractTimeBounds(e sqlast.Expr, timeCol string) (from, to string) {
	from, to = "{start_time:DateTime64}", "{end_time:DateTime64}"
	var walk func(sqlast.Expr)
	walk = func(ex sqlast.Expr) {
		b, ok := ex.(*sqlast.Binary)
		if !ok {
			return
		}
		switch b.Op {
		case "AND", "OR":
			walk(b.Left)
			walk(b.Right)
		case ">=":
			if col, ok := b.Left.(*sqlast.Column); ok && col.Name == timeCol {
				from = normalizeValue(b.Right)
			}
		case "<=":
			if col, ok := b.Left.(*sqlast.Column); ok && col.Name == timeCol {
				to = normalizeValue(b.Right)
			}
		}
	}
	walk(e)
	return from, to
}

var comparisonOps = map[string]string{
	"=":  "eq",
	"!=": "ne",
	"<>": "ne",
	">":  "gt",
	">=": "gte",
	"<":  "lt",
	"<=": "lte",
}

func extractFilters(e sqlast.Expr, timeCol string) []querybuilder.Filter {
	var filters []querybuilder.Filter
	var walk func(sqlast.Expr)
	walk = func(ex sqlast.Expr) {
		b, ok := ex.(*sqlast.Binary)
		if !ok {
			return
		}
		if b.Op == "AND" || b.Op == "OR" {
			walk(b.Left)
			walk(b.Right)
			return
		}
		op, isComparison := comparisonOps[b.Op]
		if !isComparison {
			return
		}
		col, ok := b.Left.(*sqlast.Column)
		if !ok || col.Name == timeCol {
			return
		}

		f := querybuilder.Filter{Field: col.Name, Op: op}
		if ph, ok := b.Right.(*sqlast.Placeholder); ok {
			val := normalizeValue(ph)
			f.StringValue = &val
		} else {
			val := filterValueText(b.Right)
			if num, err := strconv.ParseFloat(val, 64); err == nil {
				f.NumberValue = &num
			} else {
				f.StringValue = &val
			}
		}
		filters = append(filters, f)
	}
	walk(e)
	return filters
}

func filterValueText(e sqlast.Expr) string {
	switch v := e.(type) {
	case *sqlast.Neg:
		return "-" + filterValueText(v.Expr)
	case *sqlast.Literal:
		return literalRawText(v)
	default:
		return exprText(e)
	}
}

func normalizeValue(e sqlast.Expr) string {
	switch v := e.(type) {
	case *sqlast.Placeholder:
		kind := v.Type
		if kind == "" {
			kind = "String"
		}
		return "{" + v.Name + ":" + normalizeType(kind) + "}"
	case *sqlast.Literal:
		return literalRawText(v)
	default:
		return exprText(e)
	}
}

func normalizeType(t string) string {
	switch strings.ToUpper(t) {
	case "TEXT":
		return "String"
	case "DATETIME64", "DATETIME":
		return "DateTime64"
	default:
		return t
	}
}

func literalRawText(lit *sqlast.Literal) string {
	if lit.Kind != sqlast.LiteralString {
		return lit.Text
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(lit.Text, "'"), "'")
	return strings.ReplaceAll(inner, "''", "'")
}

func parseOrderByClause(stmt *sqlast.Select) []querybuilder.OrderBy {
	var order []querybuilder.OrderBy
	for _, oi := range stmt.OrderBy {
		field := exprText(oi.Expr)
		if col, ok := oi.Expr.(*sqlast.Column); ok {
			field = col.Name
		}
		dir := "asc"
		if oi.Desc {
			dir = "desc"
		}
		order = append(order, querybuilder.OrderBy{Field: field, Dir: dir})
	}
	return order
}

func parseLimitClause(stmt *sqlast.Select) *int {
	lit, ok := stmt.Limit.(*sqlast.Literal)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(lit.Text)
	if err != nil {
		return nil
	}
	return &n
}

// exprText is a best-effort stand-in for sqlglot's generic str(expr),
// used when a group-by/order-by/filter expression isn't one of the
// shapes this package gives dedicated handling.
func exprText(e sqlast.Expr) string {
	switch v := e.(type) {
	case *sqlast.Column:
		if v.Table != "" {
			return v.Table + "." + v.Name
		}
		return v.Name
	case *sqlast.Literal:
		return v.Text
	case *sqlast.Placeholder:
		return v.String()
	case *sqlast.Star:
		if v.Table != "" {
			return v.Table + ".*"
		}
		return "*"
	case *sqlast.FuncCall:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = exprText(a)
		}
		s := v.Name + "(" + strings.Join(args, ", ") + ")"
		if v.Args2 != nil {
			args2 := make([]string, len(v.Args2))
			for i, a := range v.Args2 {
				args2[i] = exprText(a)
			}
			s += "(" + strings.Join(args2, ", ") + ")"
		}
		return s
	case *sqlast.Binary:
		return exprText(v.Left) + " " + v.Op + " " + exprText(v.Right)
	case *sqlast.Not:
		return "NOT " + exprText(v.Expr)
	case *sqlast.Neg:
		return "-" + exprText(v.Expr)
	case *sqlast.Between:
		return exprText(v.Target) + " BETWEEN " + exprText(v.Low) + " AND " + exprText(v.High)
	default:
		return ""
	}
}
