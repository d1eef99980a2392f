package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")

	// Collaborator outcomes. Anything that is not ErrNotFound counts as unavailable.
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("service unavailable")

	// ErrTransferLoop means a silent transfer chain revisited an agent or grew
	// past its bound.
	ErrTransferLoop = errors.New("silent transfer chain violated its bound")
)
