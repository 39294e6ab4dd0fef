package teaming

import (
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlanTeamSizesDivisible(t *testing.T) {
	opts, err := PlanTeamSizes(8, 4)
	require.NoError(t, err)
	require.True(t, opts.Divisible())
	require.Equal(t, TeamSizePlan{4, 4}, opts.Smaller)
	require.Equal(t, TeamSizePlan{4, 4}, opts.Larger)
}

func TestPlanTeamSizesRemainder(t *testing.T) {
	opts, err := PlanTeamSizes(10, 4)
	require.NoError(t, err)
	require.False(t, opts.Divisible())
	require.Equal(t, TeamSizePlan{4, 3, 3}, opts.Smaller)
	require.Equal(t, TeamSizePlan{5, 5}, opts.Larger)
}

func TestPlanTeamSizesProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		n := 2 + rng.Intn(200)
		ideal := 1 + rng.Intn(n/2)

		opts, err := PlanTeamSizes(n, ideal)
		require.NoError(t, err, "n=%d ideal=%d", n, ideal)

		for _, plan := range []TeamSizePlan{opts.Smaller, opts.Larger} {
			require.Equal(t, n, plan.Total())
			require.LessOrEqual(t, slices.Max(plan)-slices.Min(plan), 1)
			require.True(t, slices.IsSortedFunc(plan, func(a, b int) int { return b - a }), "较大的队伍应排在前面")
		}
		require.LessOrEqual(t, slices.Max(opts.Smaller), ideal)
		require.GreaterOrEqual(t, slices.Min(opts.Larger), ideal)
	}
}

func TestPlanTeamSizesRejectsInvalidInput(t *testing.T) {
	_, err := PlanTeamSizes(0, 2)
	require.ErrorIs(t, err, ErrEmptyRoster)

	var sizeErr *InvalidTeamSizeError
	_, err = PlanTeamSizes(10, 6)
	require.ErrorAs(t, err, &sizeErr)
	require.Equal(t, 6, sizeErr.Size)

	_, err = PlanTeamSizes(10, 0)
	require.ErrorAs(t, err, &sizeErr)

	// 正好一半时分成两队
	opts, err := PlanTeamSizes(10, 5)
	require.NoError(t, err)
	require.Equal(t, TeamSizePlan{5, 5}, opts.Smaller)
}

func TestNewCustomPlan(t *testing.T) {
	plan, err := NewCustomPlan(6, []int{3, 2, 1})
	require.NoError(t, err)
	require.Equal(t, TeamSizePlan{3, 2, 1}, plan)

	var mismatch *SizeMismatchError
	_, err = NewCustomPlan(5, []int{2, 2})
	require.True(t, errors.As(err, &mismatch))
	require.Equal(t, 4, mismatch.Planned)

	var sizeErr *InvalidTeamSizeError
	_, err = NewCustomPlan(5, []int{3, 0, 2})
	require.ErrorAs(t, err, &sizeErr)
}
