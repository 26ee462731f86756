package portal

import (
	"errors"
	"fmt"
	"net/http"
)

// GenericFailureMessage is shown whenever the API could not be reached.
const GenericFailureMessage = "Unable to reach the server. Please try again."

var (
	// ErrUnauthenticated is returned by gates when no valid session exists.
	ErrUnauthenticated = errors.New("portal: unauthenticated")
	// ErrViewClosed signals a response arrived after its view was closed.
	ErrViewClosed = errors.New("portal: view closed")
	// ErrUnexpectedResponse marks responses that do not match the API contract.
	ErrUnexpectedResponse = errors.New("portal: unexpected response shape")
	// ErrRecordNotFound is returned when an id is unknown to a list.
	ErrRecordNotFound = errors.New("portal: record not found")
	// ErrInvalidTransition is returned by the quote wizard for disallowed moves.
	ErrInvalidTransition = errors.New("portal: invalid wizard transition")
	// ErrSubmitInProgress rejects a second quote submission while one is pending.
	ErrSubmitInProgress = errors.New("portal: quote submission already in progress")
	// ErrForbidden is returned when a role may not perform an operation.
	ErrForbidden = errors.New("portal: operation not allowed for role")
)

// ValidationError is a client-side input problem. No request is issued.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// TransportError wraps connection, timeout and decode failures.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-2xx response. Message holds the server text verbatim.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError builds an APIError, falling back to "<op> failed: <status text>"
// when the server sent no message.
func NewAPIError(op string, status int, message string) *APIError {
	if message == "" {
		message = fmt.Sprintf("%s failed: %s", op, http.StatusText(status))
	}
	return &APIError{Op: op, Status: status, Message: message}
}

// UserMessage maps an error onto the banner text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	var api *APIError
	if errors.As(err, &api) {
		return api.Message
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return GenericFailureMessage
	}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "Please sign in to continue."
	case errors.Is(err, ErrForbidden):
		return "You do not have access to this page."
	case errors.Is(err, ErrSubmitInProgress):
		return "Your quote is already being submitted."
	case errors.Is(err, ErrInvalidTransition):
		return "That step is not available right now."
	case errors.Is(err, ErrRecordNotFound):
		return "The requested record could not be found."
	case errors.Is(err, ErrViewClosed):
		return ""
	}
	return GenericFailureMessage
}

// StatusCode maps an error onto the HTTP status the portal should answer with.
func StatusCode(err error) int {
	var validation *ValidationError
	var api *APIError
	var transport *TransportError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &api):
		if api.Status >= 400 && api.Status < 500 {
			return api.Status
		}
		return http.StatusBadGateway
	case errors.As(err, &transport):
		return http.StatusBadGateway
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSubmitInProgress), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrViewClosed):
		return http.StatusGone
	}
	return http.StatusInternalServerError
}
