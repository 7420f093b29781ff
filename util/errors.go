package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups errors by how a caller should react to them.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindInvalidArgument    Kind = "invalid_argument"
	KindBackendUnavailable Kind = "backend_unavailable"
	KindInvariantViolation Kind = "invariant_violation"
	KindPermissionDenied   Kind = "permission_denied"
	KindUnauthenticated    Kind = "unauthenticated"
	KindConflict           Kind = "conflict"
	KindInternal           Kind = "internal"
)

// AppError is the error type returned across the service boundary.
type AppError struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of code and message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

var (
	ErrNotFound           = &AppError{Kind: KindNotFound}
	ErrInvalidArgument    = &AppError{Kind: KindInvalidArgument}
	ErrBackendUnavailable = &AppError{Kind: KindBackendUnavailable}
	ErrInvariantViolation = &AppError{Kind: KindInvariantViolation}
	ErrPermissionDenied   = &AppError{Kind: KindPermissionDenied}
	ErrUnauthenticated    = &AppError{Kind: KindUnauthenticated}
	ErrConflict           = &AppError{Kind: KindConflict}
)

func NotFound(code, message string) *AppError {
	return &AppError{Kind: KindNotFound, Code: code, Message: message}
}

func InvalidArgument(message string) *AppError {
	return &AppError{Kind: KindInvalidArgument, Code: CODE_INVALID_INPUT, Message: message}
}

func InvariantViolation(code, message string) *AppError {
	return &AppError{Kind: KindInvariantViolation, Code: code, Message: message}
}

func PermissionDenied(message string) *AppError {
	return &AppError{Kind: KindPermissionDenied, Code: CODE_FORBIDDEN, Message: message}
}

func Unauthenticated(message string) *AppError {
	return &AppError{Kind: KindUnauthenticated, Code: CODE_UNAUTHENTICATED, Message: message}
}

func Conflict(code, message string) *AppError {
	return &AppError{Kind: KindConflict, Code: code, Message: message}
}

// Unavailable wraps a store, network or vendor failure. The whole
// operation is safe to retry.
func Unavailable(err error) *AppError {
	return &AppError{Kind: KindBackendUnavailable, Code: CODE_BACKEND_UNAVAILABLE, Message: BACKEND_UNAVAILABLE, Err: err}
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the response status used by the controllers.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInvariantViolation:
		return http.StatusConflict
	case KindBackendUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
