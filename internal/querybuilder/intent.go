// Package querybuilder compiles a structured query intent into SQL
// text, the inverse of internal/queryanalyzer.
package querybuilder

// QueryIntent is the Go shape of spec.md §3's Query Intent JSON model.
// Struct tags drive both JSON decoding and go-playground/validator
// structural checks ahead of emission, the same way the teacher's
// util.NewStrictDecoder validates decoded config.
type QueryIntent struct {
	Table      string      `json:"table" validate:"required"`
	Metrics    []Metric    `json:"metrics,omitempty" validate:"dive"`
	Dimensions []string    `json:"dimensions,omitempty"`
	TimeRange  *TimeRange  `json:"time_range,omitempty"`
	Filters    []Filter    `json:"filters,omitempty" validate:"dive"`
	OrderBy    []OrderBy   `json:"order_by,omitempty" validate:"dive"`
	Limit      int         `json:"limit,omitempty"`
}

// Metric describes one SELECT-list aggregate (or raw expression).
// fn = "raw" means emit RawSQL verbatim; Column is ignored.
type Metric struct {
	Fn     string `json:"fn" validate:"required"`
	Column string `json:"column,omitempty"`
	Alias  string `json:"alias,omitempty"`
	Args   []any  `json:"args,omitempty"`
	RawSQL string `json:"raw_sql,omitempty"`
}

// TimeRange describes the time bucket: a column, a window, and the
// bucketing interval. From/To may be literal timestamps or typed
// placeholders of the form {name:Type}.
type TimeRange struct {
	Column        string `json:"column" validate:"required"`
	From          string `json:"from,omitempty"`
	To            string `json:"to,omitempty"`
	IntervalValue any    `json:"interval_value,omitempty"`
	IntervalUnit  string `json:"interval_unit,omitempty"`
	FillGaps      bool   `json:"fill_gaps,omitempty"`
}

// Filter is one WHERE predicate. Exactly one of StringValue/NumberValue
// must be set — enforced via the required_without/excluded_with pair,
// mirroring spec.md §3 invariant 2 ("a filter carries exactly one of
// string_value or number_value") as a validator constraint instead of
// hand-rolled post-decode logic.
type Filter struct {
	Field       string   `json:"field" validate:"required"`
	Op          string   `json:"op" validate:"required,oneof=eq ne gt gte lt lte includes"`
	StringValue *string  `json:"string_value,omitempty" validate:"required_without=NumberValue,excluded_with=NumberValue"`
	NumberValue *float64 `json:"number_value,omitempty" validate:"required_without=StringValue,excluded_with=StringValue"`
}

// OrderBy is one ORDER BY term; Dir defaults to "asc" when empty.
type OrderBy struct {
	Field string `json:"field" validate:"required"`
	Dir   string `json:"dir,omitempty" validate:"omitempty,oneof=asc desc"`
}

// BuilderError is every condition spec.md §4.D rejects an intent for:
// empty intent, unknown op, a raw metric missing raw_sql, a filter
// lacking a value oneof, or a time range missing its interval fields.
type BuilderError struct {
	Msg string
}

func (e *BuilderError) Error() string { return e.Msg }
