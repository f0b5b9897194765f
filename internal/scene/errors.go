package scene

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a scene was rejected.
type ErrorKind string

const (
	KindMissingRequiredField ErrorKind = "MissingRequiredField"
	KindInvalidReference     ErrorKind = "InvalidReference"
	KindInvalidGeometry      ErrorKind = "InvalidGeometry"
	KindInvalidValue         ErrorKind = "InvalidValue"
	KindDuplicateID          ErrorKind = "DuplicateID"
)

// ErrValidation matches every *ValidationError with errors.Is.
var ErrValidation = errors.New("scene validation failed")

// ValidationError rejects a whole load/validate call. Path points at the offending
// field, e.g. "walls[2].to".
type ValidationError struct {
	Kind    ErrorKind `json:"kind"`
	Path    string    `json:"path"`
	Message string    `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Path, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newError(kind ErrorKind, path, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a validation error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return ""
}
