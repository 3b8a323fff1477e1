package backendapi

import "fmt"

// ErrorCode classifies a plugin-reported failure.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota + 1
	ErrorInternal
	ErrorNotFound
	ErrorInvalidArgument
	ErrorUnavailable
	ErrorUnsupported
	ErrorAlreadyExists
	ErrorCancelled
)

// Error is returned by entrypoints to report a failure to the core.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("backend error %d: %s", e.Code, e.Message) }

// NewError returns a plugin error.
func NewError(code ErrorCode, msg string) *Error { return &Error{Code: code, Message: msg} }

// Errorf formats a plugin error.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Releaser is implemented by plugin errors that hold resources. The core
// calls Release exactly once after translating the error.
type Releaser interface {
	Release()
}
