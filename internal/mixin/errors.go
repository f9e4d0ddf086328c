package mixin

import (
	"errors"
	"fmt"
)

var (
	ErrMultipleBodies     = errors.New("more than one request body parameter")
	ErrUnknownLocation    = errors.New("unknown parameter location")
	ErrDuplicateParam     = errors.New("parameters map to the same identifier")
	ErrUnboundPlaceholder = errors.New("uri placeholder has no path parameter")
	ErrMissingPlaceholder = errors.New("path parameter does not appear in uri")
	ErrInvalidDescriptor  = errors.New("invalid method descriptor")
	ErrDuplicateMethod    = errors.New("duplicate function name")
)

// ErrorCode groups generation failures by the stage that produced them.
type ErrorCode string

const (
	CodeInvalidDescriptor ErrorCode = "InvalidDescriptor"
	CodeClassification    ErrorCode = "ClassificationError"
	CodeURI               ErrorCode = "UriError"
	CodeRender            ErrorCode = "RenderError"
	CodeDuplicateMethod   ErrorCode = "DuplicateMethod"
)

// MethodError reports why a single method could not be generated.
type MethodError struct {
	Method  string
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("method %s: %s", e.Method, e.Message)
}

func (e *MethodError) Unwrap() error { return e.Cause }

func methodError(method string, code ErrorCode, cause error) *MethodError {
	return &MethodError{Method: method, Code: code, Message: cause.Error(), Cause: cause}
}
