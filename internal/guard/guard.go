// Package guard holds the pre-execution safety gates: the mutating-statement
// confirmation and the row-count ceiling. Nothing here inspects parameter
// values; those are the validator's concern.
package guard

import (
	"errors"
	"fmt"

	"query-registry-mcp/pkg/models"
)

var (
	// ErrConfirmationRequired blocks a mutating statement that the caller
	// has not explicitly opted into on a second, informed pass.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrInvalidRowCap rejects a non-positive requested row cap.
	ErrInvalidRowCap = errors.New("invalid row cap")
)

// Limits are the global row-volume ceilings.
type Limits struct {
	// HardMaxRows is the ceiling no request may exceed.
	HardMaxRows int
	// DefaultMaxRows applies when a request does not ask for a cap.
	DefaultMaxRows int
}

// Request carries the caller-supplied execution options the guard rules on.
type Request struct {
	MaxRows         int
	MaxRowsSet      bool
	ConfirmMutation bool
}

// Check enforces both gates and returns the effective row cap. Confirmation
// is never inferred from the mere presence of a mutating query name; the
// caller must set it.
func Check(def *models.QueryDefinition, req Request, limits Limits) (int, error) {
	if def.Kind == models.StatementKindMutating && !req.ConfirmMutation {
		return 0, fmt.Errorf("%w: query %q is %s and must be run with confirm_mutation=true",
			ErrConfirmationRequired, def.Name, def.Kind)
	}

	if !req.MaxRowsSet {
		return limits.DefaultMaxRows, nil
	}
	if req.MaxRows <= 0 {
		return 0, fmt.Errorf("%w: max_rows must be positive, got %d", ErrInvalidRowCap, req.MaxRows)
	}
	if req.MaxRows > limits.HardMaxRows {
		return limits.HardMaxRows, nil
	}
	return req.MaxRows, nil
}
