package domain

import (
	"context"
	"time"

	"rigger-connect-backend/pkg/geo"
)

type AvailabilityStatus string

const (
	AvailabilityAvailable AvailabilityStatus = "available"
	AvailabilityBusy      AvailabilityStatus = "busy"
	AvailabilityUnknown   AvailabilityStatus = "unknown"
)

// ParseAvailabilityStatus maps a stored column value to a status; anything
// unrecognised or missing is unknown.
func ParseAvailabilityStatus(s *string) AvailabilityStatus {
	if s == nil {
		return AvailabilityUnknown
	}
	switch AvailabilityStatus(*s) {
	case AvailabilityAvailable, AvailabilityBusy:
		return AvailabilityStatus(*s)
	}
	return AvailabilityUnknown
}

// WorkerProfile is a row of the profiles table.
type WorkerProfile struct {
	ID                 string     `json:"id"`
	UserID             *string    `json:"user_id,omitempty"`
	FullName           string     `json:"full_name"`
	Position           string     `json:"position"`
	Company            string     `json:"company"`
	Bio                string     `json:"bio"`
	Phone              string     `json:"phone"`
	Location           string     `json:"location"`
	Latitude           *float64   `json:"latitude"`
	Longitude          *float64   `json:"longitude"`
	ExperienceYears    *int       `json:"experience_years"`
	AvailabilityStatus *string    `json:"availability_status"`
	LastActiveAt       *time.Time `json:"last_active_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Coordinate returns the profile's position when both columns are set.
func (p WorkerProfile) Coordinate() (geo.Coordinate, bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return geo.Coordinate{}, false
	}
	return geo.Coordinate{Latitude: *p.Latitude, Longitude: *p.Longitude}, true
}

// Experience returns experience_years, treating NULL as zero.
func (p WorkerProfile) Experience() int {
	if p.ExperienceYears == nil {
		return 0
	}
	return *p.ExperienceYears
}

// WorkerCandidate is a profile annotated for one search response. The
// annotations are recomputed every search and never written back.
type WorkerCandidate struct {
	WorkerProfile
	Distance           *float64           `json:"distance"`
	MatchScore         float64            `json:"match_score"`
	AvailabilityStatus AvailabilityStatus `json:"availability_status"`
}

// ProfileQuery is what the repository needs to fetch one page of candidates.
// Box, when set, restricts to profiles with coordinates inside it.
type ProfileQuery struct {
	Box           *geo.BoundingBox
	SearchTerm    string
	MinExperience *int
	MaxExperience *int // exclusive
	Companies     []string
	Skills        []string
	HasPhone      bool
	HasLocation   bool
	ActiveSince   *time.Time
	Offset        int
	Limit         int
}

type ProfileRepository interface {
	Search(ctx context.Context, q ProfileQuery) ([]WorkerProfile, int64, error)
	GetByID(ctx context.Context, id string) (*WorkerProfile, error)
}
