package cgikit

import "fmt"

// ErrorKind tells where a parse failure came from.
type ErrorKind int

const (
	// EnvironmentError means the hosting web server supplied something
	// the parser cannot make sense of, e.g. a bad CONTENT_LENGTH or
	// a multipart Content-Type without a boundary.
	EnvironmentError ErrorKind = iota

	// InputError means the request payload itself is malformed
	// or could not be read.
	InputError
)

func (k ErrorKind) String() string {
	switch k {
	case EnvironmentError:
		return "environment error"
	case InputError:
		return "input error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error describes a failure to parse part of a request.
//
// Errors are carried as values inside Query and Body, so a failure in one
// field never prevents the others from being parsed. Code is the suggested
// HTTP status for a response reporting the failure, Message is safe to show
// to clients and Details is meant for logs.
type Error struct {
	Kind    ErrorKind
	Code    int
	Message string
	Details string
}

func (e *Error) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

func newEnvError(code int, message, details string) *Error {
	return &Error{
		Kind:    EnvironmentError,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func newInputError(code int, message, details string) *Error {
	return &Error{
		Kind:    InputError,
		Code:    code,
		Message: message,
		Details: details,
	}
}
