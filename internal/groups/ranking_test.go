package groups

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Redish03/StepCounter/internal/domain"
)

func TestSortByRankDescendingSteps(t *testing.T) {
	members := []domain.UserStepInfo{
		{UID: "a", Steps: 100},
		{UID: "b", Steps: 300},
		{UID: "c", Steps: 200},
	}

	SortByRank(members)

	require.Equal(t, []string{"b", "c", "a"}, uids(members))
}

func TestSortByRankBreaksTiesByUID(t *testing.T) {
	members := []domain.UserStepInfo{
		{UID: "zed", Steps: 50},
		{UID: "amy", Steps: 50},
		{UID: "mia", Steps: 50},
	}

	SortByRank(members)

	require.Equal(t, []string{"amy", "mia", "zed"}, uids(members))
}

func TestSortByRankEmptyAndSingle(t *testing.T) {
	SortByRank(nil)

	one := []domain.UserStepInfo{{UID: "solo", Steps: 1}}
	SortByRank(one)
	require.Equal(t, "solo", one[0].UID)
}

func uids(members []domain.UserStepInfo) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.UID
	}
	return out
}
