// Package validator implements the query validator/rewriter: it parses
// tenant-authored SQL, checks it against the table registry, rewrites
// logical table references into tenant-scoped view-function calls, and
// re-serializes the result. Two implementations are registered — "v1"
// (a byte-faithful port of the original Python validator) and "v2" (the
// default) — selected the way the teacher selects tool kinds, via a
// package-level factory registry.
package validator

import "github.com/lmnr-ai/query-engine/internal/registry"

// Validator is satisfied by both the v1 and v2 implementations.
type Validator interface {
	ValidateAndSecureQuery(sql, tenantID string) (string, error)
}

// ValidationError is every condition spec'd for the validator: parse
// failure, non-SELECT root, write operation, unknown table, unknown
// column, or project_id access. It always carries a caller-safe message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

type Factory func(reg *registry.TableRegistry) Validator

var registryOf = make(map[string]Factory)

// Register adds a validator kind to the registry. It mirrors the
// teacher's internal/tools.Register: returns false (and registers
// nothing) if kind is already taken.
func Register(kind string, factory Factory) bool {
	if _, exists := registryOf[kind]; exists {
		return false
	}
	registryOf[kind] = factory
	return true
}

func init() {
	Register("v1", func(reg *registry.TableRegistry) Validator { return &v1{core: core{reg: reg}} })
	Register("v2", func(reg *registry.TableRegistry) Validator { return &v2{core: core{reg: reg}} })
}

// New builds the validator registered under kind ("v1" or "v2") against
// reg. An unknown kind returns an error rather than silently defaulting.
func New(kind string, reg *registry.TableRegistry) (Validator, error) {
	factory, ok := registryOf[kind]
	if !ok {
		return nil, &ValidationError{Msg: "unknown validator kind '" + kind + "'"}
	}
	return factory(reg), nil
}
