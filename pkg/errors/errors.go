package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the machine readable error identifier returned in the envelope.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code is surfaced over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	final     = false
	retryable = true
	opaque    = false
	detailed  = true
)

// Conflicts share 400 with validation failures; clients branch on the code.
var metadataByCode = map[Code]Metadata{
	CodeValidation:   {http.StatusBadRequest, final, "validation failed", detailed},
	CodeUnauthorized: {http.StatusUnauthorized, final, "authentication required", opaque},
	CodeForbidden:    {http.StatusForbidden, final, "access denied", opaque},
	CodeNotFound:     {http.StatusNotFound, final, "resource not found", opaque},
	CodeConflict:     {http.StatusBadRequest, final, "conflict detected", detailed},
	CodeIdempotency:  {http.StatusConflict, final, "idempotency key reused", detailed},
	CodeRateLimit:    {http.StatusTooManyRequests, retryable, "rate limit exceeded", opaque},
	CodeInternal:     {http.StatusInternalServerError, retryable, "internal server error", opaque},
	CodeDependency:   {http.StatusServiceUnavailable, retryable, "dependency unavailable", detailed},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error carries a Code, a client-safe message, optional details and the cause.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code to err. A nil err yields a plain New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

// OnField names the request field that caused the error.
func (e *Error) OnField(name string) *Error {
	return e.WithDetails(map[string]any{"field": name})
}

// Field returns the name set by OnField, if any.
func (e *Error) Field() string {
	if m, ok := e.Details().(map[string]any); ok {
		if name, ok := m["field"].(string); ok {
			return name
		}
	}
	return ""
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in the chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost typed error carries code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// CodeOf returns CodeInternal for errors without a typed code.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.code
	}
	return CodeInternal
}

// HTTPStatus maps err to the status it is written with.
func HTTPStatus(err error) int {
	return MetadataFor(CodeOf(err)).HTTPStatus
}
