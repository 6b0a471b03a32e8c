package schema

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError describes a single databag key that failed a constraint.
type FieldError struct {
	Key   string
	Rule  string
	Param string
}

func (f FieldError) String() string {
	if f.Param != "" {
		return fmt.Sprintf("%s: failed %s=%s", f.Key, f.Rule, f.Param)
	}
	return fmt.Sprintf("%s: failed %s", f.Key, f.Rule)
}

// ValidationError is returned when a databag does not satisfy its contract.
type ValidationError struct {
	Kind   string
	Fields []FieldError
	Cause  error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 && e.Cause != nil {
		return fmt.Sprintf("invalid %s data: %v", e.Kind, e.Cause)
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("invalid %s data: %s", e.Kind, strings.Join(parts, "; "))
}

// Unwrap returns the underlying error
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
