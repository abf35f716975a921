package domain

import (
	"context"

	"rigger-connect-backend/pkg/geo"
)

type ExperienceLevel string

const (
	ExperienceAll    ExperienceLevel = "all-experience"
	ExperienceEntry  ExperienceLevel = "entry"
	ExperienceMid    ExperienceLevel = "mid"
	ExperienceSenior ExperienceLevel = "senior"
	ExperienceExpert ExperienceLevel = "expert"
)

// Range returns the experience_years bounds for the bucket: [min, max).
// Both are nil for "" and all-experience.
func (l ExperienceLevel) Range() (min, max *int) {
	bound := func(v int) *int { return &v }
	switch l {
	case ExperienceEntry:
		return nil, bound(2)
	case ExperienceMid:
		return bound(2), bound(5)
	case ExperienceSenior:
		return bound(5), bound(10)
	case ExperienceExpert:
		return bound(10), nil
	}
	return nil, nil
}

func (l ExperienceLevel) Valid() bool {
	switch l {
	case "", ExperienceAll, ExperienceEntry, ExperienceMid, ExperienceSenior, ExperienceExpert:
		return true
	}
	return false
}

type AvailabilityFilter string

const (
	AvailabilityFilterAll       AvailabilityFilter = "all"
	AvailabilityFilterAvailable AvailabilityFilter = "available"
	AvailabilityFilterBusy      AvailabilityFilter = "busy"
)

type SortBy string

const (
	SortByDistance   SortBy = "distance"
	SortByExperience SortBy = "experience"
	SortByMatchScore SortBy = "match_score"
	SortByRecent     SortBy = "recent"
)

const (
	DefaultRadiusKm = 50.0
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxRadiusKm     = 1000.0
)

// SearchFilters is the user-controlled part of a worker search.
type SearchFilters struct {
	SearchTerm      string             `json:"search_term" form:"q" validate:"max=100"`
	RadiusKm        float64            `json:"radius_km" form:"radius" validate:"gt=0,lte=1000"`
	ExperienceLevel ExperienceLevel    `json:"experience_level" form:"experience" validate:"omitempty,oneof=all-experience entry mid senior expert"`
	Availability    AvailabilityFilter `json:"availability" form:"availability" validate:"oneof=available busy all"`
	Location        string             `json:"location" form:"location" validate:"max=200"`
	SortBy          SortBy             `json:"sort_by" form:"sort_by" validate:"oneof=distance experience match_score recent"`
}

func DefaultSearchFilters() SearchFilters {
	return SearchFilters{
		RadiusKm:     DefaultRadiusKm,
		Availability: AvailabilityFilterAll,
		SortBy:       SortByDistance,
	}
}

// WithDefaults fills zero-valued fields from DefaultSearchFilters.
func (f SearchFilters) WithDefaults() SearchFilters {
	d := DefaultSearchFilters()
	if f.RadiusKm == 0 {
		f.RadiusKm = d.RadiusKm
	}
	if f.Availability == "" {
		f.Availability = d.Availability
	}
	if f.SortBy == "" {
		f.SortBy = d.SortBy
	}
	return f
}

// WorkerSearchParams is one page request. Origin is optional for the stateless
// endpoint; without it no distance is computed and no radius applies.
type WorkerSearchParams struct {
	Origin *geo.Coordinate
	SearchFilters
	Offset int
	Limit  int
}

// AdvancedSearchParams narrows a search further and asks for facets.
type AdvancedSearchParams struct {
	WorkerSearchParams
	Skills         []string `json:"skills"`
	Companies      []string `json:"companies"`
	MinExperience  *int     `json:"min_experience" validate:"omitempty,gte=0"`
	MaxExperience  *int     `json:"max_experience" validate:"omitempty,gte=0"`
	HasPhone       bool     `json:"has_phone"`
	HasLocation    bool     `json:"has_location"`
	LastActiveDays int      `json:"last_active_days" validate:"gte=0"`
}

type SearchPage struct {
	Items   []WorkerCandidate `json:"items"`
	Total   int64             `json:"total"`
	Offset  int               `json:"offset"`
	Limit   int               `json:"limit"`
	HasMore bool              `json:"has_more"`
}

type SearchStats struct {
	Total       int `json:"total"`
	Available   int `json:"available"`
	Experienced int `json:"experienced"`
	Nearby      int `json:"nearby"`
}

type SearchFacets struct {
	Locations        map[string]int `json:"locations"`
	Companies        map[string]int `json:"companies"`
	ExperienceLevels map[string]int `json:"experience_levels"`
}

type AdvancedSearchResult struct {
	SearchPage
	Facets SearchFacets `json:"facets"`
}

type WorkerSearchUsecase interface {
	Search(ctx context.Context, params WorkerSearchParams) (*SearchPage, error)
	AdvancedSearch(ctx context.Context, params AdvancedSearchParams) (*AdvancedSearchResult, error)
	// GetWorker annotates one profile with its distance from origin, if given.
	GetWorker(ctx context.Context, id string, origin *geo.Coordinate) (*WorkerCandidate, error)
}
