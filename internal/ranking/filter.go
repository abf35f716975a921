package ranking

import (
	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/pkg/geo"
)

// Annotate computes distance, match score and availability for each profile.
// Distance stays nil when origin is nil or the profile has no coordinates.
func Annotate(profiles []domain.WorkerProfile, searchTerm string, origin *geo.Coordinate) []domain.WorkerCandidate {
	out := make([]domain.WorkerCandidate, 0, len(profiles))
	for _, p := range profiles {
		c := domain.WorkerCandidate{
			WorkerProfile:      p,
			MatchScore:         CalculateMatchScore(p, searchTerm, origin),
			AvailabilityStatus: domain.ParseAvailabilityStatus(p.AvailabilityStatus),
		}
		if origin != nil {
			if coord, ok := p.Coordinate(); ok {
				d := geo.Distance(*origin, coord)
				c.Distance = &d
			}
		}
		out = append(out, c)
	}
	return out
}

// WithinRadius drops candidates farther than radiusKm. It is the exact check that
// follows the bounding-box pre-filter; candidates without a distance are kept.
func WithinRadius(cands []domain.WorkerCandidate, radiusKm float64) []domain.WorkerCandidate {
	out := cands[:0:0]
	for _, c := range cands {
		if c.Distance != nil && *c.Distance > radiusKm {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FilterAvailability keeps exact status matches unless the filter is "all" or empty.
func FilterAvailability(cands []domain.WorkerCandidate, filter domain.AvailabilityFilter) []domain.WorkerCandidate {
	if filter == "" || filter == domain.AvailabilityFilterAll {
		return cands
	}
	out := cands[:0:0]
	for _, c := range cands {
		if string(c.AvailabilityStatus) == string(filter) {
			out = append(out, c)
		}
	}
	return out
}

// Rank runs the full post-fetch pipeline: annotate, radius cutoff (only with an
// origin), availability filter, then sort.
func Rank(profiles []domain.WorkerProfile, origin *geo.Coordinate, f domain.SearchFilters) []domain.WorkerCandidate {
	cands := Annotate(profiles, f.SearchTerm, origin)
	if origin != nil {
		cands = WithinRadius(cands, f.RadiusKm)
	}
	cands = FilterAvailability(cands, f.Availability)
	Sort(cands, f.SortBy)
	return cands
}
