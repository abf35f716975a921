package geolocation

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode follows the W3C GeolocationPositionError codes, with -1 for
// environments that cannot provide a position at all.
type ErrorCode int

const (
	CodeUnsupported         ErrorCode = -1
	CodePermissionDenied    ErrorCode = 1
	CodePositionUnavailable ErrorCode = 2
	CodeTimeout             ErrorCode = 3
)

func (c ErrorCode) String() string {
	switch c {
	case CodeUnsupported:
		return "UNSUPPORTED"
	case CodePermissionDenied:
		return "PERMISSION_DENIED"
	case CodePositionUnavailable:
		return "POSITION_UNAVAILABLE"
	case CodeTimeout:
		return "TIMEOUT"
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(c))
}

var messages = map[ErrorCode]string{
	CodeUnsupported:         "Geolocation is not supported by this browser.",
	CodePermissionDenied:    "Location access was denied. Please enable location services and try again.",
	CodePositionUnavailable: "Location information is unavailable. Please check your internet connection.",
	CodeTimeout:             "Location request timed out. Please try again.",
}

const unknownMessage = "An unknown error occurred while getting your location."

// Shown when falling back to manual entry.
var manualEntryMessages = map[ErrorCode]string{
	CodeUnsupported:         "Geolocation is not supported by your browser. Please enter your location manually.",
	CodePermissionDenied:    "Location access was denied. Please enable location services or enter your location manually.",
	CodePositionUnavailable: "Your location is currently unavailable. Please check your internet connection or try again.",
	CodeTimeout:             "Location request timed out. Please try again or enter your location manually.",
}

// LocationError is the normalized failure of any acquisition.
type LocationError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`

	// cause is set only for failures Normalize did not recognise.
	cause error
}

func (e *LocationError) Error() string {
	return e.Message
}

func (e *LocationError) Unwrap() error {
	return e.cause
}

// Unsupported reports whether the environment has no location API, as opposed
// to an unrecognised failure that shares code -1.
func (e *LocationError) Unsupported() bool {
	return e.Code == CodeUnsupported && e.cause == nil
}

// NewLocationError builds the error with its fixed human-readable message.
func NewLocationError(code ErrorCode) *LocationError {
	msg, ok := messages[code]
	if !ok {
		msg = unknownMessage
	}
	return &LocationError{Code: code, Message: msg}
}

// Normalize maps any acquisition failure onto a LocationError. Deadline
// expiry is a timeout; anything unrecognised gets code -1 and keeps its own
// message.
func Normalize(err error) *LocationError {
	if err == nil {
		return nil
	}
	var locErr *LocationError
	if errors.As(err, &locErr) {
		return locErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewLocationError(CodeTimeout)
	}
	msg := err.Error()
	if msg == "" {
		msg = unknownMessage
	}
	return &LocationError{Code: CodeUnsupported, Message: msg, cause: err}
}

// ManualEntryMessage is the prompt shown when the user must type a location.
func ManualEntryMessage(err *LocationError) string {
	if err.cause != nil {
		return err.Message
	}
	if msg, ok := manualEntryMessages[err.Code]; ok {
		return msg
	}
	if err.Message != "" {
		return err.Message
	}
	return unknownMessage
}
