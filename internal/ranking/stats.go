package ranking

import "rigger-connect-backend/internal/domain"

const (
	experiencedYears = 5
	nearbyKm         = 25.0
)

// ComputeStats summarises the loaded candidates. total is the backend count,
// which may exceed len(cands). An empty list yields all zeros.
func ComputeStats(cands []domain.WorkerCandidate, total int) domain.SearchStats {
	if len(cands) == 0 {
		return domain.SearchStats{}
	}
	s := domain.SearchStats{Total: total}
	for _, c := range cands {
		if c.AvailabilityStatus == domain.AvailabilityAvailable {
			s.Available++
		}
		if c.Experience() >= experiencedYears {
			s.Experienced++
		}
		if c.Distance != nil && *c.Distance <= nearbyKm {
			s.Nearby++
		}
	}
	return s
}

// ExperienceLabel is the facet bucket for a number of years.
func ExperienceLabel(years int) string {
	switch {
	case years < 2:
		return "Entry"
	case years < 5:
		return "Mid"
	case years < 10:
		return "Senior"
	}
	return "Expert"
}

// ComputeFacets counts candidates per location text, company and experience bucket.
func ComputeFacets(cands []domain.WorkerCandidate) domain.SearchFacets {
	f := domain.SearchFacets{
		Locations:        map[string]int{},
		Companies:        map[string]int{},
		ExperienceLevels: map[string]int{},
	}
	for _, c := range cands {
		if c.Location != "" {
			f.Locations[c.Location]++
		}
		if c.Company != "" {
			f.Companies[c.Company]++
		}
		f.ExperienceLevels[ExperienceLabel(c.Experience())]++
	}
	return f
}
