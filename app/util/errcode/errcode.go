package errcode

import "github.com/samber/oops"

// Error codes attached to oops errors across the adapter. Callers switch on
// these instead of backend-specific error types.
const (
	Configuration      = "configuration_error"
	ScopeDetection     = "scope_detection_error"
	BackendUnavailable = "backend_unavailable"
	UnknownOperation   = "unknown_operation"
	Translation        = "translation_error"
)

// Is reports whether err (or anything it wraps) carries the given code.
func Is(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}

	return oopsErr.Code() == code
}
