// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package strapi

import (
	"errors"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
)

// APIError is a failed upstream call. Status and Message are what the
// handlers forward to the caller: the upstream status when one was
// received, otherwise 500, and the upstream error message when the body
// carried one, otherwise "Internal Server Error".
type APIError struct {
	// Status is the HTTP status to forward. 500 for transport failures.
	Status int

	// Message is the upstream error message, or "Internal Server Error".
	Message string

	// Err is the underlying transport error, if any.
	Err error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream error (status %d): %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("upstream error (status %d): %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// errorEnvelope is the Strapi v4 error response body.
type errorEnvelope struct {
	Error struct {
		Status  int    `json:"status"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

// newAPIError builds an APIError from an upstream response. The message
// comes from the Strapi error envelope when the body parses as one.
func newAPIError(status int, body []byte) *APIError {
	msg := "Internal Server Error"
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		msg = env.Error.Message
	}
	return &APIError{Status: status, Message: msg}
}

// newTransportError wraps a client-side failure (dial, timeout, bad
// response body) as a 500 with the generic message.
func newTransportError(err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Message: "Internal Server Error", Err: err}
}
