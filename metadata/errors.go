package metadata

import (
	"errors"
	"fmt"
	"strconv"
)

// Error types for metadata decoding.
// Each describes a distinct failure so callers can tell a server refusal apart
// from a reply this package could not make sense of.

// ReplyCodeError is returned when a reply carries a non-zero ReplyCode.
// The body of such a reply is never decoded.
//
// Common causes:
//   - Unknown resource, class or lookup in the ID (20500, 20502)
//   - The server has no metadata for the request (20503)
//   - The session expired on the server (20701)
type ReplyCodeError struct {
	Code int
	Text string
}

func (e *ReplyCodeError) Error() string {
	if e.Text == "" {
		return "rets reply code " + strconv.Itoa(e.Code) + " (" + e.Description() + ")"
	}
	return "rets reply code " + strconv.Itoa(e.Code) + ": " + e.Text
}

// Description returns a short description of well-known reply codes.
func (e *ReplyCodeError) Description() string {
	if d, ok := replyDescriptions[e.Code]; ok {
		return d
	}
	return "server-defined error"
}

// ProtocolError represents a reply that is well-formed enough to read but is
// missing structure the protocol requires, or is not XML at all.
//
// Common causes:
//   - Body is not XML (an HTML error page, a truncated response)
//   - Root element is not RETS
//   - ReplyCode is missing or not a number
//   - Login reply has no capability list
//   - DELIMITER value is not a two-digit hex code
type ProtocolError struct {
	Message string
	Err     error // Underlying error, if any
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return "rets protocol error: " + e.Message + ": " + e.Err.Error()
	}
	return "rets protocol error: " + e.Message
}

// Unwrap returns the underlying error for error chain inspection
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// MalformedRowError is returned when a compact DATA line does not split into
// exactly one value per column. Rows are never padded or truncated.
type MalformedRowError struct {
	Kind Type
	Row  int // zero-based row index
	Got  int
	Want int
}

func (e *MalformedRowError) Error() string {
	kind := string(e.Kind)
	if kind == "" {
		kind = "compact table"
	}
	return fmt.Sprintf("%s: malformed row %d: got %d values, want %d", kind, e.Row, e.Got, e.Want)
}

// MissingRequiredFieldError is returned when a required column or table
// attribute is absent, or when an identifier field is present but empty.
type MissingRequiredFieldError struct {
	Kind  Type
	Field string
	Row   int  // -1 for a column or a table attribute
	Empty bool // the field exists but holds an empty identifier
}

func (e *MissingRequiredFieldError) Error() string {
	if e.Empty && e.Row < 0 {
		return fmt.Sprintf("%s: required attribute %s is empty", e.Kind, e.Field)
	}
	if e.Empty {
		return fmt.Sprintf("%s: row %d: required field %s is empty", e.Kind, e.Row, e.Field)
	}
	return fmt.Sprintf("%s: missing required field %s", e.Kind, e.Field)
}

// IsReplyCode reports whether err carries the given RETS reply code.
func IsReplyCode(err error, code int) bool {
	var e *ReplyCodeError
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsDecodeError reports whether err was produced while decoding a reply
// (as opposed to a server refusal).
//
// Returns true for:
//   - ProtocolError
//   - MalformedRowError
//   - MissingRequiredFieldError
func IsDecodeError(err error) bool {
	var (
		pe *ProtocolError
		me *MalformedRowError
		fe *MissingRequiredFieldError
	)
	return errors.As(err, &pe) || errors.As(err, &me) || errors.As(err, &fe)
}
