package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDayUsesLocalCalendarDate(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 03:30 UTC is still the previous evening in New York.
	utc := time.Date(2024, 3, 11, 3, 30, 0, 0, time.UTC)
	require.Equal(t, "2024-03-11", Day(utc))
	require.Equal(t, "2024-03-10", Day(utc.In(loc)))
}

func TestDayBoundaries(t *testing.T) {
	require.Equal(t, "2024-03-10", Day(time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC)))
	require.Equal(t, "2024-03-11", Day(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)))
}

func TestGroupHasMember(t *testing.T) {
	group := GroupInfo{Members: []string{"alice", "bob"}}

	require.True(t, group.HasMember("alice"))
	require.False(t, group.HasMember("carol"))
	require.False(t, GroupInfo{}.HasMember("alice"))
}
