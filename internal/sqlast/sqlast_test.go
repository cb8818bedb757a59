package sqlast

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSimpleSelect(t *testing.T) {
	sel, err := Parse("SELECT span_id, name FROM spans WHERE status = 'ok'")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(sel.Items) != 2 {
		t.Fatalf("want 2 select items, got %d", len(sel.Items))
	}
	nt, ok := sel.From.Source.(*NamedTable)
	if !ok || nt.Name != "spans" {
		t.Fatalf("want FROM spans, got %#v", sel.From.Source)
	}
	cmp, ok := sel.Where.(*Binary)
	if !ok || cmp.Op != "=" {
		t.Fatalf("want top-level = comparison, got %#v", sel.Where)
	}
}

func TestParseRejectsNonSelect(t *testing.T) {
	_, err := Parse("INSERT INTO spans VALUES (1, 'x')")
	var nse *NotSelectError
	if !errors.As(err, &nse) {
		t.Fatalf("want NotSelectError, got %v", err)
	}
}

func TestParsePlaceholderRoundTrips(t *testing.T) {
	sel, err := Parse("SELECT * FROM traces WHERE start_time >= {start_time:DateTime64}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cmp := sel.Where.(*Binary)
	ph, ok := cmp.Right.(*Placeholder)
	if !ok {
		t.Fatalf("want Placeholder, got %#v", cmp.Right)
	}
	if ph.Name != "start_time" || ph.Type != "DateTime64" {
		t.Fatalf("unexpected placeholder: %+v", ph)
	}
	if got := printExpr(ph); got != "{start_time:DateTime64}" {
		t.Fatalf("placeholder did not round-trip: %s", got)
	}
}

func TestParseCTEAndJoin(t *testing.T) {
	sql := `WITH recent AS (SELECT id FROM traces WHERE start_time >= {s:DateTime64})
SELECT spans.span_id
FROM spans
JOIN recent ON spans.trace_id = recent.id`
	sel, err := Parse(sql)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if sel.With == nil || len(sel.With.CTEs) != 1 || sel.With.CTEs[0].Alias != "recent" {
		t.Fatalf("expected one CTE named recent, got %#v", sel.With)
	}
	if len(sel.From.Joins) != 1 {
		t.Fatalf("expected one join, got %d", len(sel.From.Joins))
	}
}

func TestParseQuantileDoubleCall(t *testing.T) {
	sel, err := Parse("SELECT quantile(0.95)(duration) AS p95 FROM spans")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fc, ok := sel.Items[0].Expr.(*FuncCall)
	if !ok || !strings.EqualFold(fc.Name, "quantile") {
		t.Fatalf("want quantile func call, got %#v", sel.Items[0].Expr)
	}
	if len(fc.Args) != 1 || len(fc.Args2) != 1 {
		t.Fatalf("want one arg in each call group, got %d/%d", len(fc.Args), len(fc.Args2))
	}
}

func TestParseBetweenAndFillOrderBy(t *testing.T) {
	sql := `SELECT toStartOfInterval(start_time, toInterval(1, 'day')) AS time
FROM traces
WHERE start_time BETWEEN '2024-01-01' AND '2024-01-02'
ORDER BY time ASC WITH FILL FROM '2024-01-01' TO '2024-01-02' STEP 86400
LIMIT 100`
	sel, err := Parse(sql)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	bt, ok := sel.Where.(*Between)
	if !ok {
		t.Fatalf("want BETWEEN, got %#v", sel.Where)
	}
	_ = bt
	if len(sel.OrderBy) != 1 || sel.OrderBy[0].WithFill == nil {
		t.Fatalf("expected WITH FILL on the order item, got %#v", sel.OrderBy)
	}
}

func TestPrintRoundTripsStructure(t *testing.T) {
	sel, err := Parse("SELECT span_id FROM spans WHERE status = 'ok' AND duration > 10")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out := Print(sel)
	for _, want := range []string{"SELECT", "span_id", "FROM spans", "WHERE", "status = 'ok'", "AND duration > 10"} {
		if !strings.Contains(out, want) {
			t.Errorf("printed SQL missing %q:\n%s", want, out)
		}
	}
}
