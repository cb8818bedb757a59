package querybuilder

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }
func numPtr(f float64) *float64 { return &f }

func TestConvertRejectsEmptyIntent(t *testing.T) {
	_, err := Convert(&QueryIntent{Table: "spans"})
	be, ok := err.(*BuilderError)
	if !ok || be.Msg != "Query must have at least one of: metrics, dimensions, or time_range" {
		t.Fatalf("want empty-intent BuilderError, got %v", err)
	}
}

func TestConvertRejectsRawMetricWithoutSQL(t *testing.T) {
	intent := &QueryIntent{
		Table:   "spans",
		Metrics: []Metric{{Fn: "raw"}},
	}
	_, err := Convert(intent)
	be, ok := err.(*BuilderError)
	if !ok || be.Msg != "raw metric must include raw_sql" {
		t.Fatalf("want raw-metric BuilderError, got %v", err)
	}
}

// Scenario 6 of spec.md §8: top-5 span names by count within an explicit
// window, expressed purely through gte/lte filters on start_time (no
// time_range block), must reproduce the builder's canonical SQL
// byte-for-byte.
func TestConvertScenarioSixTopNamesByCount(t *testing.T) {
	intent := &QueryIntent{
		Table: "spans",
		Metrics: []Metric{
			{Fn: "COUNT", Column: "span_id", Alias: "value"},
		},
		Dimensions: []string{"name"},
		Filters: []Filter{
			{Field: "start_time", Op: "gte", StringValue: strPtr("{start_time:DateTime64}")},
			{Field: "start_time", Op: "lte", StringValue: strPtr("{end_time:DateTime64}")},
		},
		OrderBy: []OrderBy{{Field: "value", Dir: "desc"}},
		Limit:   5,
	}

	got, err := Convert(intent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "SELECT\n" +
		"    name,\n" +
		"    COUNT(span_id) AS value\n" +
		"FROM spans\n" +
		"WHERE\n" +
		"    start_time >= {start_time:DateTime64}\n" +
		"    AND start_time <= {end_time:DateTime64}\n" +
		"GROUP BY name\n" +
		"ORDER BY value DESC\n" +
		"LIMIT 5"

	if got != want {
		t.Fatalf("mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestConvertTimeBucketWithFillGaps(t *testing.T) {
	intent := &QueryIntent{
		Table: "spans",
		TimeRange: &TimeRange{
			Column:        "start_time",
			From:          "2024-01-01 00:00:00",
			To:            "2024-01-02 00:00:00",
			IntervalValue: 1,
			IntervalUnit:  "hour",
			FillGaps:      true,
		},
		Metrics: []Metric{{Fn: "count", Column: "*", Alias: "value"}},
	}

	got, err := Convert(intent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantContains := []string{
		"toStartOfInterval(start_time, toInterval(1, 'hour')) AS time",
		"start_time >= '2024-01-01 00:00:00'",
		"start_time <= '2024-01-02 00:00:00'",
		"GROUP BY time",
		"ORDER BY time\nWITH FILL\n    FROM toStartOfInterval('2024-01-01 00:00:00', toInterval(1, 'hour'))\n    TO toStartOfInterval('2024-01-02 00:00:00', toInterval(1, 'hour'))\n    STEP toInterval(1, 'hour')",
	}
	for _, w := range wantContains {
		if !strings.Contains(got, w) {
			t.Fatalf("expected output to contain %q, got:\n%s", w, got)
		}
	}
}

func TestConvertSkipsSynthesizedBoundWhenFilterAlreadyCoversIt(t *testing.T) {
	intent := &QueryIntent{
		Table: "spans",
		TimeRange: &TimeRange{
			Column:        "start_time",
			From:          "2024-01-01",
			To:            "2024-01-02",
			IntervalValue: 1,
			IntervalUnit:  "day",
		},
		Dimensions: []string{"name"},
		Filters: []Filter{
			{Field: "start_time", Op: "gte", StringValue: strPtr("{from:DateTime64}")},
		},
	}

	got, err := Convert(intent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got, "start_time >= '2024-01-01'") {
		t.Fatalf("expected synthesized lower bound to be skipped since a gte filter already exists:\n%s", got)
	}
	if !strings.Contains(got, "start_time <= '2024-01-02'") {
		t.Fatalf("expected synthesized upper bound present:\n%s", got)
	}
}

func TestConvertQuantileMetric(t *testing.T) {
	intent := &QueryIntent{
		Table:      "spans",
		Dimensions: []string{"name"},
		Metrics: []Metric{
			{Fn: "quantile", Column: "duration_ms", Alias: "p95", Args: []any{0.95}},
		},
	}
	got, err := Convert(intent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "quantile(0.95)(duration_ms) AS p95") {
		t.Fatalf("expected quantile double-call syntax, got:\n%s", got)
	}
}

func TestConvertFilterWithNumberValue(t *testing.T) {
	intent := &QueryIntent{
		Table:      "spans",
		Dimensions: []string{"name"},
		Filters: []Filter{
			{Field: "duration_ms", Op: "gt", NumberValue: numPtr(100)},
		},
	}
	got, err := Convert(intent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "duration_ms > 100") {
		t.Fatalf("expected unquoted numeric comparison, got:\n%s", got)
	}
}

func TestConvertIncludesFilter(t *testing.T) {
	intent := &QueryIntent{
		Table:      "tags",
		Dimensions: []string{"name"},
		Filters: []Filter{
			{Field: "labels", Op: "includes", StringValue: strPtr("prod")},
		},
	}
	got, err := Convert(intent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "has(labels, 'prod')") {
		t.Fatalf("expected has(...) predicate, got:\n%s", got)
	}
}
