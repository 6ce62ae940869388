package markers

import "errors"

// Error kinds shared by every analysis package. Callers match them with
// errors.Is; the returned errors carry context through %w wrapping.
var (
	// ErrShape reports an array rank or dimension mismatch.
	ErrShape = errors.New("shape mismatch")

	// ErrValidation reports a postcondition failure after a computation.
	// Seeing it always indicates a bug.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidInput reports a caller argument that violates a precondition.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndex reports a leg, marker or component that could not be resolved.
	ErrIndex = errors.New("index not resolved")
)
