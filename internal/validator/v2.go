package validator

// v2 is the default validator (USE_LEGACY_VALIDATOR unset or false). It
// shares v1's algorithm; the split exists because spec.md §6
// contractually requires a v1/v2 switch between two independently
// selectable, contract-equivalent implementations, not because v2's
// per-CTE scope handling differs from v1's here — both resolve each
// table reference and its owning scope through the same
// tableSlotVisitor walk.
type v2 struct {
	core
}

func (v *v2) ValidateAndSecureQuery(sql, tenantID string) (string, error) {
	return v.core.validateAndSecure(sql, tenantID)
}
