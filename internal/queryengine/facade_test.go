package queryengine

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"

	"github.com/lmnr-ai/query-engine/internal/querybuilder"
	"github.com/lmnr-ai/query-engine/internal/registry"
	"github.com/lmnr-ai/query-engine/internal/validator"
)

func newFacade(t *testing.T) *Facade {
	t.Helper()
	v, err := validator.New("v2", registry.NewDefaultRegistry())
	if err != nil {
		t.Fatalf("validator.New: %v", err)
	}
	return NewFacade(v, 0)
}

func TestValidateQueryRequiresQuery(t *testing.T) {
	f := newFacade(t)
	_, err := f.ValidateQuery(context.Background(), "", "p1")
	se, ok := err.(*StatusError)
	if !ok || se.Code != codes.InvalidArgument || se.Message != "Query is required" {
		t.Fatalf("want invalid-argument(Query is required), got %v", err)
	}
}

func TestValidateQueryRequiresTenant(t *testing.T) {
	f := newFacade(t)
	_, err := f.ValidateQuery(context.Background(), "SELECT 1 FROM spans", "")
	se, ok := err.(*StatusError)
	if !ok || se.Code != codes.InvalidArgument || se.Message != "Project ID is required" {
		t.Fatalf("want invalid-argument(Project ID is required), got %v", err)
	}
}

func TestValidateQuerySuccess(t *testing.T) {
	f := newFacade(t)
	out, err := f.ValidateQuery(context.Background(), "SELECT span_id FROM spans", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Fatalf("expected non-empty rewritten query")
	}
}

func TestValidateQueryMapsValidationErrorToInvalidArgument(t *testing.T) {
	f := newFacade(t)
	_, err := f.ValidateQuery(context.Background(), "SELECT id FROM users", "p1")
	se, ok := err.(*StatusError)
	if !ok || se.Code != codes.InvalidArgument || se.Message != "Table 'users' is not allowed" {
		t.Fatalf("want invalid-argument(Table 'users' is not allowed), got %v", err)
	}
}

func TestJsonToSqlRequiresTable(t *testing.T) {
	f := newFacade(t)
	_, err := f.JsonToSql(context.Background(), &querybuilder.QueryIntent{})
	se, ok := err.(*StatusError)
	if !ok || se.Code != codes.InvalidArgument || se.Message != "Query structure with table is required" {
		t.Fatalf("want invalid-argument(Query structure with table is required), got %v", err)
	}
}

func TestJsonToSqlMapsBuilderErrorToInvalidArgument(t *testing.T) {
	f := newFacade(t)
	_, err := f.JsonToSql(context.Background(), &querybuilder.QueryIntent{Table: "spans"})
	se, ok := err.(*StatusError)
	if !ok || se.Code != codes.InvalidArgument {
		t.Fatalf("want invalid-argument, got %v", err)
	}
	if se.Message != "Query must have at least one of: metrics, dimensions, or time_range" {
		t.Fatalf("unexpected message: %q", se.Message)
	}
}

func TestSqlToJsonRequiresSQL(t *testing.T) {
	f := newFacade(t)
	_, err := f.SqlToJson(context.Background(), "")
	se, ok := err.(*StatusError)
	if !ok || se.Code != codes.InvalidArgument || se.Message != "SQL query is required" {
		t.Fatalf("want invalid-argument(SQL query is required), got %v", err)
	}
}

func TestSqlToJsonSuccess(t *testing.T) {
	f := newFacade(t)
	intent, err := f.SqlToJson(context.Background(), "SELECT name, COUNT(span_id) AS value FROM spans GROUP BY name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Table != "spans" {
		t.Fatalf("unexpected table: %q", intent.Table)
	}
}
