package validator

import (
	"strings"
	"testing"

	"github.com/lmnr-ai/query-engine/internal/registry"
)

func newV2(t *testing.T) Validator {
	t.Helper()
	v, err := New("v2", registry.NewDefaultRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestScenarioSpansRewrite(t *testing.T) {
	v := newV2(t)
	out, err := v.ValidateAndSecureQuery("SELECT span_id, name FROM spans", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "FROM spans_v0(project_id = 'p1') AS spans") {
		t.Fatalf("unexpected rewrite:\n%s", out)
	}
}

func TestScenarioTracesTimeBoundsFromComparisons(t *testing.T) {
	v := newV2(t)
	sql := "SELECT trace_id FROM traces WHERE start_time >= '2024-01-01' AND end_time <= '2024-01-02'"
	out, err := v.ValidateAndSecureQuery(sql, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "FROM traces_v0(project_id = 'p1', start_time = '2024-01-01', end_time = '2024-01-02') AS traces"
	if !strings.Contains(out, want) {
		t.Fatalf("unexpected rewrite:\n%s", out)
	}
}

func TestScenarioTracesTimeBoundsFromBetween(t *testing.T) {
	v := newV2(t)
	sql := "SELECT trace_id FROM traces WHERE start_time BETWEEN '2024-01-01' AND '2024-01-02'"
	out, err := v.ValidateAndSecureQuery(sql, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "FROM traces_v0(project_id = 'p1', start_time = '2024-01-01', end_time = '2024-01-02') AS traces"
	if !strings.Contains(out, want) {
		t.Fatalf("unexpected rewrite:\n%s", out)
	}
}

func TestScenarioRejectsWriteStatement(t *testing.T) {
	v := newV2(t)
	_, err := v.ValidateAndSecureQuery("INSERT INTO spans VALUES (1,'x')", "p1")
	ve, ok := err.(*ValidationError)
	if !ok || ve.Msg != "Only SELECT statements are allowed" {
		t.Fatalf("want ValidationError(Only SELECT statements are allowed), got %v", err)
	}
}

func TestScenarioRejectsProjectIDColumn(t *testing.T) {
	v := newV2(t)
	_, err := v.ValidateAndSecureQuery("SELECT span_id, project_id FROM spans", "p1")
	ve, ok := err.(*ValidationError)
	if !ok || ve.Msg != "Column 'project_id' does not exist" {
		t.Fatalf("want ValidationError(Column 'project_id' does not exist), got %v", err)
	}
}

func TestScenarioRejectsUnknownTable(t *testing.T) {
	v := newV2(t)
	_, err := v.ValidateAndSecureQuery("SELECT id FROM users", "p1")
	ve, ok := err.(*ValidationError)
	if !ok || ve.Msg != "Table 'users' is not allowed" {
		t.Fatalf("want ValidationError(Table 'users' is not allowed), got %v", err)
	}
}

func TestScenarioRejectsUnknownColumn(t *testing.T) {
	v := newV2(t)
	_, err := v.ValidateAndSecureQuery("SELECT spans.bogus FROM spans", "p1")
	ve, ok := err.(*ValidationError)
	if !ok || ve.Msg != "Column 'bogus' does not exist" {
		t.Fatalf("want ValidationError(Column 'bogus' does not exist), got %v", err)
	}
}

func TestCTESameNameAsTableIsNotRewrittenOutside(t *testing.T) {
	v := newV2(t)
	sql := "WITH spans AS (SELECT span_id FROM spans) SELECT * FROM spans"
	out, err := v.ValidateAndSecureQuery(sql, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(out, "spans_v0") != 1 {
		t.Fatalf("want exactly one rewritten reference (the CTE body's), got:\n%s", out)
	}
}

func TestSettingsStrippedEverywhere(t *testing.T) {
	v := newV2(t)
	sql := "SELECT span_id FROM (SELECT span_id FROM spans SETTINGS max_threads = 4) AS inner_q SETTINGS max_threads = 2"
	out, err := v.ValidateAndSecureQuery(sql, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "SETTINGS") {
		t.Fatalf("expected no SETTINGS clause to survive, got:\n%s", out)
	}
}

func TestPlaceholderPreservedThroughRewrite(t *testing.T) {
	v := newV2(t)
	sql := "SELECT span_id FROM spans WHERE start_time >= {from:DateTime64}"
	out, err := v.ValidateAndSecureQuery(sql, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "{from:DateTime64}") {
		t.Fatalf("expected placeholder preserved, got:\n%s", out)
	}
}

func TestV1AndV2Coincide(t *testing.T) {
	v1i, _ := New("v1", registry.NewDefaultRegistry())
	v2i, _ := New("v2", registry.NewDefaultRegistry())
	sql := "WITH recent AS (SELECT id FROM traces WHERE start_time >= '2024-06-01') SELECT id FROM recent"
	out1, err1 := v1i.ValidateAndSecureQuery(sql, "p1")
	out2, err2 := v2i.ValidateAndSecureQuery(sql, "p1")
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v / %v", err1, err2)
	}
	if out1 != out2 {
		t.Fatalf("expected v1 and v2 to coincide:\nv1:\n%s\nv2:\n%s", out1, out2)
	}
}
