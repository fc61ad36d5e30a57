package errors

import (
	"context"
	"errors"
	"fmt"
)

// NewNotFound reports that an entity of the given kind (endpoint, message,
// rule) does not exist.
func NewNotFound(kind, id string) *Error {
	return ErrNotFound.
		WithMessage(fmt.Sprintf("%s %q not found", kind, id)).
		WithDetail("kind", kind).
		WithDetail("id", id)
}

func NewDuplicate(kind, id string) *Error {
	return ErrDuplicate.
		WithMessage(fmt.Sprintf("%s %q already exists", kind, id)).
		WithDetail("kind", kind).
		WithDetail("id", id)
}

func NewValidation(field, message string) *Error {
	return ErrValidation.
		WithMessage(fmt.Sprintf("%s: %s", field, message)).
		WithDetail("field", field)
}

func NewAdapterUnavailable(protocol string) *Error {
	return ErrAdapterUnavailable.
		WithMessage(fmt.Sprintf("no adapter registered for protocol %q", protocol)).
		WithDetail("protocol", protocol)
}

func NewAdapterConflict(protocol string) *Error {
	return ErrAdapterConflict.
		WithMessage(fmt.Sprintf("adapter for protocol %q registered twice", protocol)).
		WithDetail("protocol", protocol)
}

func NewUnsupportedFormat(source, target string) *Error {
	return ErrUnsupportedFormat.
		WithMessage(fmt.Sprintf("no transformer from %q to %q", source, target)).
		WithDetail("source_format", source).
		WithDetail("target_format", target)
}

func NewInvalidRange(from, to interface{}) *Error {
	return ErrInvalidRange.
		WithMessage("range end is before range start").
		WithDetail("from", from).
		WithDetail("to", to)
}

func NewEndpointDisabled(id string) *Error {
	return ErrEndpointDisabled.
		WithMessage(fmt.Sprintf("endpoint %q is disabled", id)).
		WithDetail("id", id)
}

func NewTransportFailure(cause error) *Error {
	return ErrTransportFailure.WithCause(cause).AsRetryable()
}

func NewDeadLetterExceeded(messageID string, attempts int) *Error {
	return ErrDeadLetterExceeded.
		WithDetail("message_id", messageID).
		WithDetail("attempts", attempts).
		AsFatal()
}

// FromContext converts a context error into CANCELED or TIMEOUT. It returns
// nil for a nil error.
func FromContext(err error) *Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout.WithCause(err).AsRetryable()
	case errors.Is(err, context.Canceled):
		return ErrCanceled.WithCause(err)
	default:
		return ErrInternal.WithCause(err)
	}
}
