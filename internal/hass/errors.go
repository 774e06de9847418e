package hass

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrTransport wraps connect, read and write failures
	ErrTransport = errors.New("transport failure")
	// ErrAuth is returned when the hub rejects the token or the handshake ends early
	ErrAuth = errors.New("authentication failed")
	// ErrInvalidState is returned when an operation is called in the wrong connection state
	ErrInvalidState = errors.New("invalid connection state")
)

// ErrorCategory is the human readable class of an unsuccessful response
type ErrorCategory string

const (
	CategoryStaleIdentifier ErrorCategory = "stale-identifier"
	CategoryMalformed       ErrorCategory = "malformed-request"
	CategoryNotFound        ErrorCategory = "not-found"
	CategoryUnknown         ErrorCategory = "unknown"
)

var categoryDescriptions = map[ErrorCategory]string{
	CategoryStaleIdentifier: "A non-increasing identifier has been supplied",
	CategoryMalformed:       "Received message is not in expected format",
	CategoryNotFound:        "Requested item cannot be found",
	CategoryUnknown:         "Unknown error code",
}

// Description returns the sentence logged for the category
func (c ErrorCategory) Description() string {
	if d, ok := categoryDescriptions[c]; ok {
		return d
	}
	return categoryDescriptions[CategoryUnknown]
}

// ErrorCode is the error code of a response; the hub sends either numbers or strings
type ErrorCode string

// UnmarshalJSON accepts both JSON numbers and strings
func (c *ErrorCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = ErrorCode(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("error code %s: %w", data, err)
	}
	*c = ErrorCode(n.String())
	return nil
}

// Category maps the code to its category
func (c ErrorCode) Category() ErrorCategory {
	switch c {
	case "1", "id_reuse":
		return CategoryStaleIdentifier
	case "2", "invalid_format":
		return CategoryMalformed
	case "3", "not_found":
		return CategoryNotFound
	default:
		return CategoryUnknown
	}
}

// ProtocolError describes a response whose success flag was false.
// It is not fatal: the caller keeps processing other pending requests.
type ProtocolError struct {
	ID       int
	Code     ErrorCode
	Category ErrorCategory
	Message  string
}

func (e *ProtocolError) Error() string {
	msg := "message #" + strconv.Itoa(e.ID) + " failed due to "
	if e.Code == "" && e.Message == "" {
		return msg + "unknown reason"
	}

	msg += fmt.Sprintf("%s [#%s]", e.Category.Description(), e.Code)
	if e.Message != "" {
		msg += ", additional details: " + e.Message
	}
	return msg
}

func newProtocolError(id int, info *ErrorInfo) *ProtocolError {
	if info == nil {
		return &ProtocolError{ID: id, Category: CategoryUnknown}
	}
	return &ProtocolError{
		ID:       id,
		Code:     info.Code,
		Category: info.Code.Category(),
		Message:  info.Message,
	}
}
