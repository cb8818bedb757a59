// Package queryengine exposes the query engine's three operations
// (Validate, JSON→SQL, SQL→JSON) behind a single Facade, mapping the
// validator/builder/analyzer's domain errors onto the RPC-status-code
// contract spec.md §4.F and §7 describe.
package queryengine

import (
	"context"

	"google.golang.org/grpc/codes"

	"github.com/lmnr-ai/query-engine/internal/queryanalyzer"
	"github.com/lmnr-ai/query-engine/internal/querybuilder"
	"github.com/lmnr-ai/query-engine/internal/validator"
)

// StatusError carries an RPC status code alongside the caller-facing
// message, the Go shape of server.py's context.set_code/set_details
// pair.
type StatusError struct {
	Code    codes.Code
	Message string
}

func (e *StatusError) Error() string { return e.Message }

func invalidArgument(msg string) *StatusError { return &StatusError{Code: codes.InvalidArgument, Message: msg} }
func internalError(msg string) *StatusError   { return &StatusError{Code: codes.Internal, Message: msg} }

// Facade is the single entry point the server package binds to HTTP
// handlers. It owns no state beyond the validator and a bounded worker
// pool; the table registry it closes over is read-only and shared.
type Facade struct {
	v   validator.Validator
	sem chan struct{}
}

// DefaultConcurrency is spec.md §5's default worker pool size.
const DefaultConcurrency = 10

// NewFacade builds a Facade around v, allowing at most concurrency
// requests to run at once. concurrency <= 0 falls back to
// DefaultConcurrency.
func NewFacade(v validator.Validator, concurrency int) *Facade {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Facade{v: v, sem: make(chan struct{}, concurrency)}
}

// run bounds f's execution to the worker pool, returning an internal
// "request cancelled" error if the context is done before a slot frees up.
func run[T any](ctx context.Context, f *Facade, fn func() (T, error)) (T, error) {
	var zero T
	select {
	case f.sem <- struct{}{}:
	case <-ctx.Done():
		return zero, internalError("request cancelled")
	}
	defer func() { <-f.sem }()
	return fn()
}

// ValidateQuery parses, whitelists, and rewrites query for tenantID.
func (f *Facade) ValidateQuery(ctx context.Context, query, tenantID string) (string, error) {
	if query == "" {
		return "", invalidArgument("Query is required")
	}
	if tenantID == "" {
		return "", invalidArgument("Project ID is required")
	}

	return run(ctx, f, func() (string, error) {
		secured, err := f.v.ValidateAndSecureQuery(query, tenantID)
		if err != nil {
			if ve, ok := err.(*validator.ValidationError); ok {
				return "", invalidArgument(ve.Msg)
			}
			return "", internalError("Query validation failed")
		}
		return secured, nil
	})
}

// JsonToSql compiles intent into SQL text.
func (f *Facade) JsonToSql(ctx context.Context, intent *querybuilder.QueryIntent) (string, error) {
	if intent == nil || intent.Table == "" {
		return "", invalidArgument("Query structure with table is required")
	}

	return run(ctx, f, func() (string, error) {
		sql, err := querybuilder.Convert(intent)
		if err != nil {
			if be, ok := err.(*querybuilder.BuilderError); ok {
				return "", invalidArgument(be.Msg)
			}
			return "", internalError("Conversion failed")
		}
		return sql, nil
	})
}

// SqlToJson recovers a QueryIntent from sql.
func (f *Facade) SqlToJson(ctx context.Context, sql string) (*querybuilder.QueryIntent, error) {
	if sql == "" {
		return nil, invalidArgument("SQL query is required")
	}

	return run(ctx, f, func() (*querybuilder.QueryIntent, error) {
		intent, err := queryanalyzer.Convert(sql)
		if err != nil {
			if be, ok := err.(*queryanalyzer.BuilderError); ok {
				return nil, invalidArgument(be.Msg)
			}
			return nil, internalError("Conversion failed")
		}
		return intent, nil
	})
}
