package utils

import "errors"

// ErrorKind classifies failures for status mapping at the HTTP surface.
// Models return these; handlers never inspect driver error codes.
type ErrorKind string

const (
	// referenced business/user/location/entry does not exist or does not
	// belong to the claimed business
	ErrorKindNotFound ErrorKind = "not_found"
	// invariant violation or transaction abort ("already has an open shift",
	// "no open shift found", "write conflict, retry")
	ErrorKindConflict ErrorKind = "conflict"
	// malformed or out-of-policy input
	ErrorKindValidation ErrorKind = "validation"
)

type AppError struct {
	Kind    ErrorKind
	Message string
}

func (e *AppError) Error() string { return e.Message }

func NotFoundError(message string) error {
	return &AppError{Kind: ErrorKindNotFound, Message: message}
}

func ConflictError(message string) error {
	return &AppError{Kind: ErrorKindConflict, Message: message}
}

func ValidationError(message string) error {
	return &AppError{Kind: ErrorKindValidation, Message: message}
}

func kindOf(err error) (ErrorKind, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	if errors.Is(err, ErrorRecordNotFound) {
		return ErrorKindNotFound, true
	}
	return "", false
}

func IsNotFound(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == ErrorKindNotFound
}

func IsConflict(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == ErrorKindConflict
}

func IsValidation(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == ErrorKindValidation
}

var ErrorRecordNotFound = errors.New("record not found")

// ErrNoRateSet is not a failure: it is the distinguished "no pay rate set"
// result. It must propagate to presentation (blank cell, "needs attention")
// rather than coerce to a zero rate indistinguishable from $0.00/hr.
var ErrNoRateSet = errors.New("no pay rate set")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
