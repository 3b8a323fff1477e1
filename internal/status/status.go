// Package status defines the error taxonomy shared by the core and the
// backend plugin boundary. A nil error means success; every failure carries
// one of the codes below plus a human-readable message.
package status

import (
	"context"
	"errors"
	"fmt"
)

// Code classifies a failure.
type Code int

const (
	Success Code = iota
	Unknown
	Internal
	NotFound
	InvalidArgument
	Unavailable
	Unsupported
	AlreadyExists
	Cancelled
)

func (c Code) String() string {
	switch c {
	case Success:
		return "OK"
	case Unknown:
		return "Unknown"
	case Internal:
		return "Internal"
	case NotFound:
		return "Not found"
	case InvalidArgument:
		return "Invalid argument"
	case Unavailable:
		return "Unavailable"
	case Unsupported:
		return "Unsupported"
	case AlreadyExists:
		return "Already exists"
	case Cancelled:
		return "Cancelled"
	}
	return "<invalid code>"
}

// Error is a failure with a code.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string { return e.Code.String() + ": " + e.Msg }

// New returns an error with the given code and message.
func New(code Code, msg string) error { return &Error{Code: code, Msg: msg} }

// Newf formats a message and returns an error with the given code.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf reports the code carried by err. Wrapped status errors are
// unwrapped; context cancellation maps to Cancelled and anything else that
// is not a status error maps to Unknown.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Cancelled
	}
	return Unknown
}

// Message returns the message of err without the code prefix.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Msg
	}
	return err.Error()
}

// Prefix returns err with msg prepended to its message, keeping the code.
func Prefix(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: CodeOf(err), Msg: msg + Message(err)}
}

// Suffix returns err with msg appended to its message, keeping the code.
func Suffix(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: CodeOf(err), Msg: Message(err) + msg}
}

func IsNotFound(err error) bool        { return CodeOf(err) == NotFound }
func IsInvalidArgument(err error) bool { return CodeOf(err) == InvalidArgument }
func IsAlreadyExists(err error) bool   { return CodeOf(err) == AlreadyExists }
func IsUnavailable(err error) bool     { return CodeOf(err) == Unavailable }
func IsInternal(err error) bool        { return CodeOf(err) == Internal }
