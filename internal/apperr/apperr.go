// Package apperr classifies the errors the list and checking screens surface to users.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

type Kind string

const (
	// KindValidation is rejected locally, before any network call. Never retried.
	KindValidation Kind = "validation"
	// KindNetwork covers failed fetches and patches. Not retried automatically.
	KindNetwork Kind = "network"
	// KindReconciliation marks a patch response that could not be matched to the
	// local list. It is recovered by a full reload and not shown to users.
	KindReconciliation Kind = "reconciliation"
)

// Error codes.
const (
	CodeInvalidItem     = "INVALID_ITEM"
	CodeMissingScope    = "MISSING_SCOPE"
	CodeInvalidQuantity = "INVALID_QUANTITY"
	CodeAlreadyChecked  = "ALREADY_CHECKED"
	CodeNoSession       = "NO_SESSION"
	CodeBusy            = "BUSY"
	CodeNotReady        = "NOT_READY"
	CodeDisposed        = "DISPOSED"

	CodeRequest     = "REQUEST_FAILED"
	CodeHTTPStatus  = "HTTP_STATUS"
	CodeDecode      = "DECODE_FAILED"
	CodeUnreachable = "UNREACHABLE"

	CodeMissingID = "MISSING_ID"
)

type Error struct {
	Kind Kind
	Code string
	// Message is human readable and safe to show as is.
	Message string
	// Status is the HTTP status for KindNetwork errors that got a response.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithCause sets the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func Network(code, message string, cause error) *Error {
	return &Error{Kind: KindNetwork, Code: code, Message: message, Err: cause}
}

// HTTPStatus builds a network error for a non-2xx response. message should be the
// server's own message when it sent one.
func HTTPStatus(status int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("the server answered with status %d", status)
	}
	return &Error{Kind: KindNetwork, Code: CodeHTTPStatus, Message: message, Status: status}
}

func Reconciliation(message string) *Error {
	return &Error{Kind: KindReconciliation, Code: CodeMissingID, Message: message}
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool     { return KindOf(err) == KindValidation }
func IsNetwork(err error) bool        { return KindOf(err) == KindNetwork }
func IsReconciliation(err error) bool { return KindOf(err) == KindReconciliation }

func HasCode(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// UserMessage returns a single human-readable line for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "the server took too long to answer"
	}
	return err.Error()
}
