package dashboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MimeLyc/qtube-dashboard/internal/remote"
)

type ErrorKind int

const (
	// ErrTransientFetch is a failed poll; retried on the next tick with the
	// previous data kept.
	ErrTransientFetch ErrorKind = iota
	// ErrAction is a failed submit, preview or remove.
	ErrAction
	// ErrNotYetAvailable is a transcript or media requested before it exists.
	ErrNotYetAvailable
	ErrUnknownStatus
	ErrValidation
	ErrNotConfirmed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrTransientFetch:
		return "TransientFetch"
	case ErrAction:
		return "Action"
	case ErrNotYetAvailable:
		return "NotYetAvailable"
	case ErrUnknownStatus:
		return "UnknownStatus"
	case ErrValidation:
		return "Validation"
	case ErrNotConfirmed:
		return "NotConfirmed"
	default:
		return "Unknown"
	}
}

// Error is the dashboard error type. Message is safe to show to the operator
// as is; for action errors it carries the job store's text verbatim.
type Error struct {
	Kind    ErrorKind
	Message string
	Context map[string]any
	Cause   error
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
	}
}

// WrapError classifies err. The message is taken from err unless given.
func WrapError(err error, kind ErrorKind, message string) *Error {
	if message == "" {
		message = err.Error()
	}
	return &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
		Cause:   err,
	}
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Kind, e.Message))

	if len(e.Context) > 0 {
		var ctxParts []string
		for k, v := range e.Context {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil && e.Cause.Error() != e.Message {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

// UserMessage returns the operator-facing text of e.
func (e *Error) UserMessage() string {
	return e.Message
}

// IsKind reports whether err is a dashboard error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Kind == kind
	}
	return false
}

// UserMessage is the text to show for err next to the control that
// triggered it.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Message
	}
	var httpErr *remote.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	return err.Error()
}
