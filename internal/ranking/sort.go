package ranking

import (
	"cmp"
	"slices"
	"time"

	"rigger-connect-backend/internal/domain"
)

// Sort orders cands in place. It is stable. For distance and recent, candidates
// missing the key are incomparable and keep their positions; the rest are
// ordered among the remaining slots.
func Sort(cands []domain.WorkerCandidate, by domain.SortBy) {
	switch by {
	case domain.SortByDistance:
		sortPresent(cands,
			func(c *domain.WorkerCandidate) bool { return c.Distance != nil },
			func(a, b *domain.WorkerCandidate) int { return cmp.Compare(*a.Distance, *b.Distance) })
	case domain.SortByRecent:
		sortPresent(cands,
			func(c *domain.WorkerCandidate) bool { return c.LastActiveAt != nil },
			func(a, b *domain.WorkerCandidate) int { return compareTimeDesc(*a.LastActiveAt, *b.LastActiveAt) })
	case domain.SortByExperience:
		slices.SortStableFunc(cands, func(a, b domain.WorkerCandidate) int {
			return cmp.Compare(b.Experience(), a.Experience())
		})
	case domain.SortByMatchScore:
		slices.SortStableFunc(cands, func(a, b domain.WorkerCandidate) int {
			return cmp.Compare(b.MatchScore, a.MatchScore)
		})
	}
}

// sortPresent stable-sorts the candidates for which has is true, writing them
// back into the slots they occupied so the others do not move.
func sortPresent(cands []domain.WorkerCandidate, has func(*domain.WorkerCandidate) bool, compare func(a, b *domain.WorkerCandidate) int) {
	slots := make([]int, 0, len(cands))
	present := make([]domain.WorkerCandidate, 0, len(cands))
	for i := range cands {
		if has(&cands[i]) {
			slots = append(slots, i)
			present = append(present, cands[i])
		}
	}
	slices.SortStableFunc(present, func(a, b domain.WorkerCandidate) int { return compare(&a, &b) })
	for i, slot := range slots {
		cands[slot] = present[i]
	}
}

func compareTimeDesc(a, b time.Time) int {
	return b.Compare(a)
}
