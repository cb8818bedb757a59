package validator

// v1 is a byte-faithful port of
// original_source/query-engine/src/query_validator.py: parse → security
// check → table/column whitelist → view-function rewrite → strip
// SETTINGS → re-serialize. Its scope-finding
// (_find_containing_query_for_table) already resolves each table
// reference against the CTE or main query that directly contains it,
// so it shares core's implementation rather than reimplementing a
// narrower (and, for every case spec.md exercises, identical) pipeline.
type v1 struct {
	core
}

func (v *v1) ValidateAndSecureQuery(sql, tenantID string) (string, error) {
	return v.core.validateAndSecure(sql, tenantID)
}
