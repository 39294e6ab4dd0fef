package teaming

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAvailabilitySetAndIntersect(t *testing.T) {
	var a, b Availability
	a.Set(0, 3)
	a.Set(2, 47)
	b.Set(2, 47)

	require.True(t, a.IsAvailable(0, 3))
	require.False(t, a.IsAvailable(0, 4))

	both := a.Intersect(b)
	require.False(t, both.IsAvailable(0, 3))
	require.True(t, both.IsAvailable(2, 47))
}

func TestCountMeetingWindows(t *testing.T) {
	var a Availability
	for block := 0; block < 5; block++ {
		a.Set(0, block)
	}
	a.Set(1, 10)
	a.Set(1, 11)
	a.Set(2, 20)

	require.Equal(t, 3, a.CountMeetingWindows(48, 2))
	require.Equal(t, 8, a.CountMeetingWindows(48, 1))
	require.Equal(t, 0, a.CountMeetingWindows(48, 0))
}

func TestCountMeetingWindowsIgnoresBlocksOutsideDay(t *testing.T) {
	var a Availability
	a.Set(3, 50)
	a.Set(3, 51)
	require.Equal(t, 0, a.CountMeetingWindows(48, 2))
	require.Equal(t, 1, a.CountMeetingWindows(64, 2))
}

func TestCountMeetingWindowsFullWeek(t *testing.T) {
	require.Equal(t, 24*DaysPerWeek, FullAvailability(48).CountMeetingWindows(48, 2))
	require.Equal(t, 64*DaysPerWeek, FullAvailability(64).CountMeetingWindows(64, 1))
}
