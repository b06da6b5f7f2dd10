// Package httperr defines the closed set of HTTP error kinds shared by every
// handler and middleware. Each kind carries a fixed status code and a default
// client-facing message; instances may override the message but never the
// status. Anything that is not an *Error collapses to a generic 500 at the
// response boundary so internal details never reach the client.
package httperr

import "net/http"

// Kind identifies one member of the error taxonomy.
type Kind int

const (
	// KindInternal is the fallback for unexpected failures.
	KindInternal Kind = iota
	// KindBadRequest covers malformed or missing request parameters.
	KindBadRequest
	// KindUnauthorized covers denied access, authenticated or not.
	KindUnauthorized
	// KindNotFound covers missing resources and unmatched routes.
	KindNotFound
	// KindUnprocessable covers syntactically valid bodies with invalid content.
	KindUnprocessable
)

const (
	internalMessage      = "An error occurred while processing the request."
	badRequestMessage    = "The request could not be completed with the given parameters."
	unauthorizedMessage  = "You are not allowed access to the requested resource."
	notFoundMessage      = "The requested resource does not exist."
	unprocessableMessage = "The content body of the request is not valid."
)

// Error is a failure with a fixed HTTP status and a client-safe message.
type Error struct {
	Kind    Kind
	message string
}

func (e *Error) Error() string { return e.Message() }

// Status returns the HTTP status code for the error's kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindUnprocessable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the instance message, falling back to the kind default.
func (e *Error) Message() string {
	if e.message != "" {
		return e.message
	}
	return DefaultMessage(e.Kind)
}

// DefaultMessage returns the fixed client-facing message for a kind.
func DefaultMessage(k Kind) string {
	switch k {
	case KindBadRequest:
		return badRequestMessage
	case KindUnauthorized:
		return unauthorizedMessage
	case KindNotFound:
		return notFoundMessage
	case KindUnprocessable:
		return unprocessableMessage
	default:
		return internalMessage
	}
}

// New constructs an error of the given kind with an optional message override.
// An empty message keeps the kind default.
func New(k Kind, message string) *Error {
	return &Error{Kind: k, message: message}
}

// BadRequest reports invalid request parameters (status 400).
func BadRequest(message string) *Error { return New(KindBadRequest, message) }

// Unauthorized reports denied access (status 401). Middleware converts
// confirmed-negative authorization outcomes to this kind; it is never used
// for provider failures.
func Unauthorized() *Error { return New(KindUnauthorized, "") }

// NotFound reports a missing resource (status 404).
func NotFound(message string) *Error { return New(KindNotFound, message) }

// Unprocessable reports an invalid request body (status 422).
func Unprocessable(message string) *Error { return New(KindUnprocessable, message) }

// Internal reports an unexpected failure (status 500). The default message is
// deliberately generic.
func Internal() *Error { return New(KindInternal, "") }
