package validation

import (
	"errors"
	"fmt"
)

// FailureKind discriminates the ways a request's parameters can be rejected.
type FailureKind string

const (
	MissingParameter FailureKind = "missing_parameter"
	TypeMismatch     FailureKind = "type_mismatch"
	DisallowedValue  FailureKind = "disallowed_value"
	UnknownParameter FailureKind = "unknown_parameter"
)

// Error is a rejection of the whole request, attributed to a single
// parameter. Validation is all-or-nothing: the first failure aborts the
// request and no partial bindings are ever returned.
type Error struct {
	Kind   FailureKind
	Param  string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Param, e.Detail)
}

// AsError unwraps err into a validation Error if it is one.
func AsError(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
