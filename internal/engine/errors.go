package engine

import (
	"errors"
	"fmt"
)

// BuildErrorCode categorizes equation construction errors.
type BuildErrorCode string

const (
	// ErrCodeInvalidExpression indicates the equation's expression was
	// rejected at compile time (bad syntax or unsupported symbols).
	ErrCodeInvalidExpression BuildErrorCode = "INVALID_EXPRESSION"
)

// BuildError is a construction-time failure for one equation. Build
// errors abort the whole run with a descriptive message before any
// simulation starts; everything that can go wrong after construction
// degrades silently instead.
type BuildError struct {
	Code     BuildErrorCode
	Equation string // equation name
	Err      error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: equation %q: %v", e.Code, e.Equation, e.Err)
}

// Unwrap exposes the underlying cause for errors.As/Is matching.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// IsBuildError reports whether err is a BuildError.
// Uses errors.As to handle wrapped errors.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}
