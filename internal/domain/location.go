package domain

import (
	"time"

	"rigger-connect-backend/pkg/geo"
)

// PermissionState mirrors the browser Permissions API plus "unsupported"
// for environments without a position source.
type PermissionState string

const (
	PermissionGranted     PermissionState = "granted"
	PermissionDenied      PermissionState = "denied"
	PermissionPrompt      PermissionState = "prompt"
	PermissionUnsupported PermissionState = "unsupported"
)

func (s PermissionState) Valid() bool {
	switch s {
	case PermissionGranted, PermissionDenied, PermissionPrompt, PermissionUnsupported:
		return true
	}
	return false
}

// LocationReading is one acquisition result. Readings are replaced, never mutated.
type LocationReading struct {
	geo.Coordinate
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
	IsManual  bool      `json:"is_manual"`
	Address   string    `json:"address,omitempty"`
}

// WithAddress returns a copy of r labelled with address.
func (r LocationReading) WithAddress(address string) LocationReading {
	r.Address = address
	return r
}

// HasPosition is false for a manual reading whose address could not be geocoded.
func (r LocationReading) HasPosition() bool {
	return !r.IsManual || r.Coordinate != (geo.Coordinate{})
}
