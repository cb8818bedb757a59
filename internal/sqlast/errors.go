package sqlast

import "fmt"

// NotSelectError is returned by Parse when the input's leading keyword is
// not SELECT or WITH. Callers that need to distinguish "not a SELECT"
// from "malformed SELECT" (spec.md's two separate ValidationError
// messages) should check for it with errors.As.
type NotSelectError struct {
	Keyword string
}

func (e *NotSelectError) Error() string {
	return fmt.Sprintf("statement does not start with SELECT (found %q)", e.Keyword)
}

// ParseError wraps a grammar/lexer failure; its message is the
// underlying parser error's message.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }
