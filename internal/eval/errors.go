package eval

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidExpressionError is the construction-time rejection of an
// expression: bad syntax, an identifier outside the allowed symbol set,
// or a non-arithmetic construct. It is fatal for the equation that
// declared the expression and must be surfaced before simulation starts.
type InvalidExpressionError struct {
	Expr    string   // the offending expression text
	Symbols []string // offending identifiers, sorted; empty for parse errors
	Message string
}

// Error implements the error interface.
func (e *InvalidExpressionError) Error() string {
	if len(e.Symbols) > 0 {
		return fmt.Sprintf("invalid expression %q: uses unsupported symbols: %s",
			e.Expr, strings.Join(e.Symbols, ", "))
	}
	return fmt.Sprintf("invalid expression %q: %s", e.Expr, e.Message)
}

// IsInvalidExpression reports whether err is an InvalidExpressionError.
// Uses errors.As to handle wrapped errors.
func IsInvalidExpression(err error) bool {
	var ie *InvalidExpressionError
	return errors.As(err, &ie)
}
