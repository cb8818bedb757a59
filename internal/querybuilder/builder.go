package querybuilder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// comparisonOps mirrors json_to_sql.py's COMPARISON_OPS table; "includes"
// is handled separately since it compiles to has(...) rather than an
// infix operator.
var comparisonOps = map[string]string{
	"eq":  "=",
	"ne":  "!=",
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
}

// Convert compiles a QueryIntent into ClickHouse SQL text, line-for-line
// following original_source/query-engine/src/json_to_sql.py's
// JsonToSqlConverter.convert.
func Convert(intent *QueryIntent) (string, error) {
	if err := validate.Struct(intent); err != nil {
		return "", &BuilderError{Msg: err.Error()}
	}

	hasTimeRange := intent.TimeRange != nil
	hasDimensions := len(intent.Dimensions) > 0
	hasMetrics := len(intent.Metrics) > 0
	if !hasTimeRange && !hasDimensions && !hasMetrics {
		return "", &BuilderError{Msg: "Query must have at least one of: metrics, dimensions, or time_range"}
	}

	if hasTimeRange {
		if intent.TimeRange.IntervalValue == nil || intent.TimeRange.IntervalUnit == "" {
			return "", &BuilderError{Msg: "time_range requires interval_value and interval_unit"}
		}
	}

	clauses := []string{}

	selectClause, err := buildSelectClause(intent)
	if err != nil {
		return "", err
	}
	clauses = append(clauses, selectClause)
	clauses = append(clauses, fmt.Sprintf("FROM %s", intent.Table))

	whereClause, err := buildWhereClause(intent)
	if err != nil {
		return "", err
	}
	if whereClause != "" {
		clauses = append(clauses, whereClause)
	}

	if groupBy := buildGroupByClause(intent); groupBy != "" {
		clauses = append(clauses, groupBy)
	}

	orderBy, err := buildOrderByClause(intent)
	if err != nil {
		return "", err
	}
	if orderBy != "" {
		clauses = append(clauses, orderBy)
	}

	if intent.Limit > 0 {
		clauses = append(clauses, fmt.Sprintf("LIMIT %d", intent.Limit))
	}

	return strings.Join(clauses, "\n"), nil
}

func buildSelectClause(intent *QueryIntent) (string, error) {
	var items []string
	if intent.TimeRange != nil {
		items = append(items, timeBucketSQL(intent.TimeRange))
	}
	for _, dim := range intent.Dimensions {
		if dim == "time" {
			continue
		}
		items = append(items, dim)
	}
	for _, m := range intent.Metrics {
		sql, err := metricSQL(m)
		if err != nil {
			return "", err
		}
		items = append(items, sql)
	}

	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "    " + item
	}
	return "SELECT\n" + strings.Join(lines, ",\n"), nil
}

func timeBucketSQL(tr *TimeRange) string {
	interval := intervalExpr(tr.IntervalValue, tr.IntervalUnit)
	return fmt.Sprintf("toStartOfInterval(%s, %s) AS time", tr.Column, interval)
}

func intervalExpr(value any, unit string) string {
	return fmt.Sprintf("toInterval(%s, '%s')", formatIntervalValue(value), unit)
}

func formatIntervalValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func metricSQL(m Metric) (string, error) {
	if m.Fn == "raw" {
		if m.RawSQL == "" {
			return "", &BuilderError{Msg: "raw metric must include raw_sql"}
		}
		alias := m.Alias
		if alias == "" {
			alias = m.RawSQL
		}
		return fmt.Sprintf("%s AS %s", m.RawSQL, alias), nil
	}

	alias := m.Alias
	if alias == "" {
		alias = m.Column
	}

	if m.Fn == "quantile" && len(m.Args) > 0 {
		p := formatIntervalValue(m.Args[0])
		return fmt.Sprintf("quantile(%s)(%s) AS %s", p, m.Column, alias), nil
	}

	return fmt.Sprintf("%s(%s) AS %s", m.Fn, m.Column, alias), nil
}

func buildWhereClause(intent *QueryIntent) (string, error) {
	var conditions []string
	for _, f := range intent.Filters {
		sql, err := filterSQL(f)
		if err != nil {
			return "", err
		}
		conditions = append(conditions, sql)
	}
	if intent.TimeRange != nil {
		conditions = append(conditions, timeRangeConditions(intent)...)
	}
	if len(conditions) == 0 {
		return "", nil
	}

	lines := make([]string, len(conditions))
	for i, c := range conditions {
		if i == 0 {
			lines[i] = "    " + c
		} else {
			lines[i] = "    AND " + c
		}
	}
	return "WHERE\n" + strings.Join(lines, "\n"), nil
}

func timeRangeConditions(intent *QueryIntent) []string {
	tr := intent.TimeRange
	hasGTE, hasLTE := false, false
	for _, f := range intent.Filters {
		if f.Field != tr.Column {
			continue
		}
		switch f.Op {
		case "gte":
			hasGTE = true
		case "lte":
			hasLTE = true
		}
	}

	var conditions []string
	if tr.From != "" && !hasGTE {
		conditions = append(conditions, fmt.Sprintf("%s >= %s", tr.Column, formatValue(tr.From)))
	}
	if tr.To != "" && !hasLTE {
		conditions = append(conditions, fmt.Sprintf("%s <= %s", tr.Column, formatValue(tr.To)))
	}
	return conditions
}

func filterSQL(f Filter) (string, error) {
	value := filterValue(f)
	if f.Op == "includes" {
		return fmt.Sprintf("has(%s, %s)", f.Field, formatValue(value)), nil
	}
	op, ok := comparisonOps[f.Op]
	if !ok {
		return "", &BuilderError{Msg: fmt.Sprintf("unknown filter op '%s'", f.Op)}
	}
	return fmt.Sprintf("%s %s %s", f.Field, op, formatValue(value)), nil
}

func filterValue(f Filter) any {
	if f.StringValue != nil {
		return *f.StringValue
	}
	if f.NumberValue != nil {
		return *f.NumberValue
	}
	return nil
}

func buildGroupByClause(intent *QueryIntent) string {
	var dims []string
	if intent.TimeRange != nil {
		dims = append(dims, "time")
	}
	for _, d := range intent.Dimensions {
		if d == "time" {
			continue
		}
		dims = append(dims, d)
	}
	if len(dims) == 0 {
		return ""
	}
	return "GROUP BY " + strings.Join(dims, ", ")
}

func buildOrderByClause(intent *QueryIntent) (string, error) {
	var clause string
	switch {
	case len(intent.OrderBy) > 0:
		parts := make([]string, len(intent.OrderBy))
		for i, o := range intent.OrderBy {
			dir := o.Dir
			if dir == "" {
				dir = "asc"
			}
			parts[i] = fmt.Sprintf("%s %s", o.Field, strings.ToUpper(dir))
		}
		clause = "ORDER BY " + strings.Join(parts, ", ")
	case intent.TimeRange != nil:
		clause = "ORDER BY time"
	default:
		return "", nil
	}

	if intent.TimeRange != nil && intent.TimeRange.FillGaps {
		tr := intent.TimeRange
		interval := intervalExpr(tr.IntervalValue, tr.IntervalUnit)
		clause += fmt.Sprintf(
			"\nWITH FILL\n    FROM toStartOfInterval(%s, %s)\n    TO toStartOfInterval(%s, %s)\n    STEP %s",
			formatValue(tr.From), interval, formatValue(tr.To), interval, interval,
		)
	}

	return clause, nil
}

// formatValue mirrors json_to_sql.py's _format_value: nil becomes NULL,
// placeholders pass through verbatim, numbers are unquoted, booleans
// become TRUE/FALSE, everything else is quoted.
func formatValue(value any) string {
	if value == nil {
		return "NULL"
	}
	switch v := value.(type) {
	case string:
		if isPlaceholder(v) {
			return v
		}
		return "'" + v + "'"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("'%v'", v)
	}
}

func isPlaceholder(s string) bool {
	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
}
