package groups

import (
	"sort"

	"github.com/Redish03/StepCounter/internal/domain"
)

// SortByRank orders members by descending step count. Ties break by ascending
// uid so the ordering is deterministic across recomputations.
func SortByRank(members []domain.UserStepInfo) {
	sort.Slice(members, func(i, j int) bool {
		if members[i].Steps != members[j].Steps {
			return members[i].Steps > members[j].Steps
		}
		return members[i].UID < members[j].UID
	})
}
