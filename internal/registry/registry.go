// Package registry holds the fixed whitelist of tables and columns the
// query engine is allowed to reference, one TableSchema per logical
// table plus the name of its optional time column.
package registry

import "strings"

// TableSchema describes one whitelisted table: its allowed columns and,
// for time-partitioned tables, the column used to bound a query window.
type TableSchema struct {
	Name           string
	AllowedColumns map[string]struct{}
	TimeColumn     string // "" if the table has no time column
}

// IsColumnAllowed reports whether column is in the schema's whitelist,
// case-insensitively.
func (s *TableSchema) IsColumnAllowed(column string) bool {
	_, ok := s.AllowedColumns[strings.ToLower(column)]
	return ok
}

// TableRegistry is the set of tables a tenant's queries may reference.
type TableRegistry struct {
	tables map[string]*TableSchema
}

func newSchema(name string, timeColumn string, columns ...string) *TableSchema {
	set := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		set[strings.ToLower(c)] = struct{}{}
	}
	return &TableSchema{Name: name, AllowedColumns: set, TimeColumn: timeColumn}
}

// NewDefaultRegistry builds the registry seeded with the engine's fixed
// table set, column-for-column identical to
// original_source/query-engine/src/query_validator.py's
// TableRegistry._setup_default_tables.
func NewDefaultRegistry() *TableRegistry {
	r := &TableRegistry{tables: make(map[string]*TableSchema)}

	r.add(newSchema("spans", "start_time",
		"span_id", "status", "name", "path", "parent_span_id", "span_type",
		"start_time", "end_time", "duration", "input", "output",
		"request_model", "response_model", "model", "provider",
		"input_tokens", "output_tokens", "total_tokens",
		"input_cost", "output_cost", "total_cost",
		"attributes", "trace_id", "tags",
	))

	r.add(newSchema("traces", "start_time",
		"id", "trace_type", "metadata", "start_time", "end_time", "duration",
		"input_tokens", "output_tokens", "total_tokens",
		"input_cost", "output_cost", "total_cost",
		"status", "user_id", "session_id",
		"top_span_id", "top_span_name", "top_span_type", "tags",
	))

	r.add(newSchema("dataset_datapoints", "created_at",
		"id", "created_at", "dataset_id", "data", "target", "metadata",
	))

	// dataset_datapoint_versions shares dataset_datapoints' columns; its
	// view (dataset_datapoint_versions_v0) only exposes the latest version
	// per datapoint — that's a view-definition concern, not a whitelist one.
	r.add(newSchema("dataset_datapoint_versions", "created_at",
		"id", "created_at", "dataset_id", "data", "target", "metadata",
	))

	r.add(newSchema("evaluation_datapoints", "created_at",
		"id", "evaluation_id", "trace_id", "created_at", "data", "target",
		"metadata", "executor_output", "index", "group_id", "scores",
	))

	r.add(newSchema("events", "timestamp",
		"id", "span_id", "name", "timestamp", "attributes", "trace_id",
		"user_id", "session_id",
	))

	r.add(newSchema("tags", "created_at",
		"id", "span_id", "name", "created_at", "source",
	))

	return r
}

func (r *TableRegistry) add(s *TableSchema) {
	r.tables[strings.ToLower(s.Name)] = s
}

// IsTableAllowed reports whether name (case-insensitive) is whitelisted.
func (r *TableRegistry) IsTableAllowed(name string) bool {
	_, ok := r.tables[strings.ToLower(name)]
	return ok
}

// GetTableSchema returns the schema for name (case-insensitive), or nil
// if the table isn't whitelisted.
func (r *TableRegistry) GetTableSchema(name string) *TableSchema {
	return r.tables[strings.ToLower(name)]
}

// AllowedTables returns the whitelisted table names in no particular
// order.
func (r *TableRegistry) AllowedTables() []string {
	names := make([]string, 0, len(r.tables))
	for _, s := range r.tables {
		names = append(names, s.Name)
	}
	return names
}
