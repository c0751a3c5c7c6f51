package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is a non-2xx answer from the job store. Message is the response
// body verbatim, or a generic text when the body was empty.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

func newHTTPError(status int, body string) *HTTPError {
	msg := body
	if msg == "" {
		msg = fmt.Sprintf("Request failed with %d", status)
	}
	return &HTTPError{StatusCode: status, Message: msg}
}

// IsNotFound reports whether err is a 404 from the job store.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
