package registry

import "testing"

func TestDefaultRegistryKnowsSpans(t *testing.T) {
	r := NewDefaultRegistry()
	if !r.IsTableAllowed("SPANS") {
		t.Fatal("want spans allowed case-insensitively")
	}
	schema := r.GetTableSchema("spans")
	if schema == nil {
		t.Fatal("want non-nil schema for spans")
	}
	if schema.TimeColumn != "start_time" {
		t.Fatalf("want time column start_time, got %q", schema.TimeColumn)
	}
	if !schema.IsColumnAllowed("Span_Id") {
		t.Fatal("want column lookup case-insensitive")
	}
	if schema.IsColumnAllowed("project_id") {
		t.Fatal("project_id must never be in any table's whitelist")
	}
}

func TestUnknownTableRejected(t *testing.T) {
	r := NewDefaultRegistry()
	if r.IsTableAllowed("users") {
		t.Fatal("users is not a whitelisted table")
	}
	if r.GetTableSchema("users") != nil {
		t.Fatal("want nil schema for unknown table")
	}
}

func TestDatasetDatapointVersionsSharesColumns(t *testing.T) {
	r := NewDefaultRegistry()
	dp := r.GetTableSchema("dataset_datapoints")
	dpv := r.GetTableSchema("dataset_datapoint_versions")
	if dp == nil || dpv == nil {
		t.Fatal("expected both dataset tables to be registered")
	}
	if len(dp.AllowedColumns) != len(dpv.AllowedColumns) {
		t.Fatalf("expected identical column sets, got %d vs %d", len(dp.AllowedColumns), len(dpv.AllowedColumns))
	}
}
