// Package ranking turns profile rows into ranked worker candidates: distance
// annotation, exact radius cutoff, match scoring, availability filtering and
// sorting, plus the stats and facets shown alongside results.
package ranking

import (
	"strings"

	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/pkg/geo"
)

const (
	maxScore = 100.0

	completenessFields = 7
	completenessWeight = 10.0
)

// textWeights are applied when the search term occurs in the field, case-insensitively.
var textWeights = []struct {
	field  func(p *domain.WorkerProfile) string
	weight float64
}{
	{func(p *domain.WorkerProfile) string { return p.FullName }, 30},
	{func(p *domain.WorkerProfile) string { return p.Position }, 25},
	{func(p *domain.WorkerProfile) string { return p.Company }, 20},
	{func(p *domain.WorkerProfile) string { return p.Bio }, 15},
	{func(p *domain.WorkerProfile) string { return p.Location }, 10},
}

// CalculateMatchScore is a heuristic relevance score in [0, 100] built from text
// matches, experience, profile completeness and proximity to origin.
func CalculateMatchScore(p domain.WorkerProfile, searchTerm string, origin *geo.Coordinate) float64 {
	var score float64

	if term := strings.ToLower(strings.TrimSpace(searchTerm)); term != "" {
		for _, tw := range textWeights {
			if strings.Contains(strings.ToLower(tw.field(&p)), term) {
				score += tw.weight
			}
		}
	}

	score += experienceBonus(p.Experience())
	score += float64(completeness(p)) / completenessFields * completenessWeight

	if origin != nil {
		if c, ok := p.Coordinate(); ok {
			score += proximityBonus(geo.Distance(*origin, c))
		}
	}

	return clamp(score)
}

func experienceBonus(years int) float64 {
	switch {
	case years >= 10:
		return 15
	case years >= 5:
		return 10
	case years >= 2:
		return 5
	}
	return 0
}

func proximityBonus(km float64) float64 {
	switch {
	case km <= 5:
		return 10
	case km <= 15:
		return 8
	case km <= 30:
		return 5
	case km <= 50:
		return 3
	}
	return 0
}

// completeness counts populated fields out of the seven tracked ones.
func completeness(p domain.WorkerProfile) int {
	n := 0
	for _, s := range []string{p.FullName, p.Position, p.Company, p.Bio, p.Phone, p.Location} {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	if _, ok := p.Coordinate(); ok {
		n++
	}
	return n
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
