package plugin

import (
	"errors"

	"modelcore/internal/status"
	"modelcore/pkg/backendapi"
)

// TranslateError converts an error returned by an entrypoint into a status
// error. Errors implementing backendapi.Releaser are released once the
// translation is done.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if r, ok := err.(backendapi.Releaser); ok {
		defer r.Release()
	}
	var pe *backendapi.Error
	if errors.As(err, &pe) {
		if pe == nil {
			return nil
		}
		return status.New(CodeFromABI(pe.Code), pe.Message)
	}
	var se *status.Error
	if errors.As(err, &se) {
		return status.New(se.Code, se.Msg)
	}
	return status.New(status.Unknown, err.Error())
}

// CodeFromABI maps a plugin error code onto the core taxonomy.
func CodeFromABI(c backendapi.ErrorCode) status.Code {
	switch c {
	case backendapi.ErrorInternal:
		return status.Internal
	case backendapi.ErrorNotFound:
		return status.NotFound
	case backendapi.ErrorInvalidArgument:
		return status.InvalidArgument
	case backendapi.ErrorUnavailable:
		return status.Unavailable
	case backendapi.ErrorUnsupported:
		return status.Unsupported
	case backendapi.ErrorAlreadyExists:
		return status.AlreadyExists
	case backendapi.ErrorCancelled:
		return status.Cancelled
	}
	return status.Unknown
}

// CodeToABI maps a core code onto the plugin taxonomy.
func CodeToABI(c status.Code) backendapi.ErrorCode {
	switch c {
	case status.Internal:
		return backendapi.ErrorInternal
	case status.NotFound:
		return backendapi.ErrorNotFound
	case status.InvalidArgument:
		return backendapi.ErrorInvalidArgument
	case status.Unavailable:
		return backendapi.ErrorUnavailable
	case status.Unsupported:
		return backendapi.ErrorUnsupported
	case status.AlreadyExists:
		return backendapi.ErrorAlreadyExists
	case status.Cancelled:
		return backendapi.ErrorCancelled
	}
	return backendapi.ErrorUnknown
}
