package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the client must handle it.
type Kind int

const (
	KindUnknown Kind = iota

	// KindValidation is detected client-side before any network call.
	KindValidation

	// KindAPI is a non-2xx rejection from the remote service.
	KindAPI

	// KindSessionExpired is an unauthorized response, handled centrally by
	// the gateway. Feature code sees no result.
	KindSessionExpired

	// KindLocation means the device could not produce a position, including
	// timeout and absent capability.
	KindLocation
)

// Error is the client error type: a kind, an optional HTTP status code and a
// user-presentable message.
type Error struct {
	Kind    Kind   `json:"-"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets sentinel comparisons match on kind, so
// errors.Is(err, ErrSessionExpired) holds for every expired-session error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// ErrSessionExpired is the gateway's unauthorized sentinel.
var ErrSessionExpired = &Error{Kind: KindSessionExpired, Message: "session expired"}

func New(message string) *Error {
	return &Error{Message: message}
}

func Errorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: message, Err: err}
}

func Wrapf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation creates a client-side validation error.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// API creates a server-rejection error with the HTTP status code.
func API(code int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", code)
	}
	return &Error{Kind: KindAPI, Code: code, Message: message}
}

// Location creates a position-unavailable error.
func Location(message string) *Error {
	return &Error{Kind: KindLocation, Message: message}
}

// SessionExpired creates an expired-session error carrying the original cause.
func SessionExpired(err error) *Error {
	return &Error{Kind: KindSessionExpired, Message: "session expired", Err: err}
}

// KindOf returns the kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// GetCode returns the HTTP status code carried by err, 0 if none.
func GetCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// GetMessage returns the user-presentable message for err.
func GetMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// Format implements fmt.Formatter.
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') && e.Err != nil {
			fmt.Fprintf(s, "%s: %+v", e.Error(), e.Err)
			return
		}
		fallthrough
	case 's':
		fmt.Fprintf(s, "%s", e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
