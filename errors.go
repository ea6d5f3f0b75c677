package rets

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/pior/rets/metadata"
)

// Error types for client operations.
// Decoding errors (ReplyCodeError, ProtocolError, MalformedRowError,
// MissingRequiredFieldError) come from the metadata package and are returned
// unchanged; use errors.As to inspect them.

// ErrClientClosed is returned by operations on a closed Client.
var ErrClientClosed = errors.New("rets: client closed")

// TransportError wraps anything that went wrong below the RETS layer.
// The request is never retried by the client.
//
// Common causes:
//   - DNS failure, refused or reset connection
//   - Context cancelled or deadline exceeded
//   - Non-2xx HTTP status
//   - Circuit breaker open (Err is gobreaker.ErrOpenState)
//
// Session handling: the session is kept; a 401 means it must be re-established
type TransportError struct {
	Op         string // login, logout, getmetadata
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("rets %s %s: http %d %s", e.Op, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("rets %s %s: %v", e.Op, e.URL, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NeedsLogin returns true for HTTP 401
func (e *TransportError) NeedsLogin() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// AuthenticationError is returned by Login when the server rejects the
// credentials, either with HTTP 401 or with a non-zero login reply code.
//
// Session handling: the client is left Disconnected (or on its previous
// session if it was already connected)
type AuthenticationError struct {
	Code int // RETS reply code, zero for an HTTP 401
	Text string
	Err  error
}

func (e *AuthenticationError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("rets login rejected: %d %s", e.Code, e.Text)
	}
	return "rets login rejected: " + e.Text
}

// Unwrap returns the underlying error for error chain inspection
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// NeedsLogin returns true - credentials must change before retrying
func (e *AuthenticationError) NeedsLogin() bool {
	return true
}

// NotConnectedError is returned when a metadata operation is attempted while
// the session is not Connected. No request is sent.
type NotConnectedError struct {
	State State
}

func (e *NotConnectedError) Error() string {
	return "rets: not connected (session is " + e.State.String() + ")"
}

// NeedsLogin returns true - call Login first
func (e *NotConnectedError) NeedsLogin() bool {
	return true
}

// ErrorWithSessionState is implemented by errors that know whether the
// session has to be logged in again.
type ErrorWithSessionState interface {
	error
	NeedsLogin() bool
}

// NeedsLogin reports whether err means the session must be (re-)established
// before the operation can succeed.
//
// Returns true for:
//   - NotConnectedError
//   - AuthenticationError
//   - TransportError with HTTP 401
//   - ReplyCodeError 20701 (not logged in)
//
// Usage:
//
//	classes, err := client.GetClass(ctx, "Property")
//	if rets.NeedsLogin(err) {
//	    if _, err := client.Login(ctx); err == nil {
//	        classes, err = client.GetClass(ctx, "Property")
//	    }
//	}
func NeedsLogin(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithSessionState
	if errors.As(err, &e) && e.NeedsLogin() {
		return true
	}
	return metadata.IsReplyCode(err, metadata.ReplyNotLoggedIn)
}
