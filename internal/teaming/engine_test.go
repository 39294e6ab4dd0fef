package teaming

import (
	"context"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func smallParameters() Parameters {
	p := DefaultParameters()
	p.PopulationSize = 200
	p.TournamentSize = 10
	p.MinGenerations = 5
	p.MaxGenerations = 30
	p.StabilityWindow = 5
	p.Workers = 4
	p.Seed = 42
	return p
}

func sameTeam(teams [][]int64, a, b int64) bool {
	for _, team := range teams {
		if slices.Contains(team, a) {
			return slices.Contains(team, b)
		}
	}
	return false
}

func TestEngineJoinsRequiredPair(t *testing.T) {
	students := orderedStudents(1, 2, 3, 4, 5, 6, 7, 8)
	students[0].RequiredWith = []int64{8}

	opts, err := PlanTeamSizes(len(students), 4)
	require.NoError(t, err)
	require.Equal(t, TeamSizePlan{4, 4}, opts.Larger)

	e, err := New(students, opts.Larger, orderedConfig(), smallParameters())
	require.NoError(t, err)
	require.NoError(t, e.AddStartingGenome(Genome{0, 1, 2, 3, 4, 5, 6, 7}))

	result, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, sameTeam(result.Teams, 1, 8), "teams=%v", result.Teams)
	require.Zero(t, result.Scores.TotalPenalties())
}

func TestEngineMaximisesHeterogeneousSpread(t *testing.T) {
	e, err := New(orderedStudents(1, 2, 3, 4, 5, 6, 7, 8), TeamSizePlan{4, 4}, orderedConfig(), smallParameters())
	require.NoError(t, err)

	result, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	// 两个队伍的取值跨度都为 6 时调和平均最大：0.75*6/7 + 0.25*3/7 = 0.75
	require.InDelta(t, 75.0, result.Scores.Fitness, 1e-9)
	for _, team := range result.Teams {
		require.Equal(t, int64(6), slices.Max(team)-slices.Min(team), "teams=%v", result.Teams)
	}
	require.True(t, isPermutation(result.Genome))
}

func TestEngineTermination(t *testing.T) {
	students := orderedStudents(1, 2, 3, 4, 5, 6, 7, 8)

	params := smallParameters()
	params.MinGenerations = 5
	params.MaxGenerations = 10

	// 回看窗口比最大迭代次数还长，不可能提前收敛
	params.StabilityWindow = 20
	e, err := New(students, TeamSizePlan{4, 4}, orderedConfig(), params)
	require.NoError(t, err)

	progress := make(chan Progress, 64)
	result, err := e.Run(context.Background(), progress)
	require.NoError(t, err)
	require.Equal(t, 10, result.Generations)
	require.Equal(t, ReachedMaxGenerations, result.Reason)

	close(progress)
	var generations []int
	for p := range progress {
		generations = append(generations, p.Generation)
		require.False(t, p.Stable)
	}
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, generations)

	// 阈值足够大时第二代就已收敛，但仍要等到最少迭代次数
	params.StabilityWindow = 1
	params.StabilityThreshold = 1e6
	e, err = New(students, TeamSizePlan{4, 4}, orderedConfig(), params)
	require.NoError(t, err)

	result, err = e.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 5, result.Generations)
	require.Equal(t, StabilityDetected, result.Reason)
}

func TestEngineProgressNeverBlocks(t *testing.T) {
	e, err := New(orderedStudents(1, 2, 3, 4, 5, 6), TeamSizePlan{3, 3}, orderedConfig(), smallParameters())
	require.NoError(t, err)

	// 没有人读取的无缓冲通道
	progress := make(chan Progress)
	result, err := e.Run(context.Background(), progress)
	require.NoError(t, err)
	require.GreaterOrEqual(t, result.Generations, 5)
}

func TestEngineCancellation(t *testing.T) {
	e, err := New(orderedStudents(1, 2, 3, 4, 5, 6), TeamSizePlan{3, 3}, orderedConfig(), smallParameters())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := e.Run(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, Cancelled, result.Reason)
	require.Equal(t, 1, result.Generations)
	require.True(t, isPermutation(result.Genome))
	require.Len(t, result.Teams, 2)
}

func TestEngineIsReproducible(t *testing.T) {
	students := orderedStudents(3, 1, 4, 1, 5, 9, 2, 6, 5, 3)
	students[2].PreventedWith = []int64{5}

	run := func() *Result {
		e, err := New(students, TeamSizePlan{4, 3, 3}, orderedConfig(), smallParameters())
		require.NoError(t, err)
		result, err := e.Run(context.Background(), nil)
		require.NoError(t, err)
		return result
	}

	require.Empty(t, cmp.Diff(run(), run()))
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	students := orderedStudents(1, 2, 3, 4)
	var cfgErr *ConfigurationError

	for name, mutate := range map[string]func(*Parameters){
		"population":       func(p *Parameters) { p.PopulationSize = 1 },
		"tournament":       func(p *Parameters) { p.TournamentSize = 1 },
		"elites":           func(p *Parameters) { p.NumElites = p.PopulationSize },
		"top":              func(p *Parameters) { p.TopGenomeLikelihood = 0 },
		"mutation":         func(p *Parameters) { p.MutationLikelihood = 1 },
		"generations":      func(p *Parameters) { p.MaxGenerations = p.MinGenerations - 1 },
		"window":           func(p *Parameters) { p.StabilityWindow = 0 },
		"workers":          func(p *Parameters) { p.Workers = -1 },
		"huge population":  func(p *Parameters) { p.PopulationSize = 1_000_000_000 },
		"huge tournament":  func(p *Parameters) { p.TournamentSize = p.PopulationSize + 1 },
		"huge generations": func(p *Parameters) { p.MaxGenerations = 1_000_000_000_000_000 },
		"huge workers":     func(p *Parameters) { p.Workers = 100000 },
		"ancestors":        func(p *Parameters) { p.AncestorGenerations = maxAncestorGenerations + 1 },
	} {
		t.Run(name, func(t *testing.T) {
			params := smallParameters()
			mutate(&params)
			_, err := New(students, TeamSizePlan{2, 2}, orderedConfig(), params)
			require.ErrorAs(t, err, &cfgErr)
		})
	}

	_, err := New(students, TeamSizePlan{3, 3}, orderedConfig(), smallParameters())
	require.ErrorAs(t, err, &cfgErr)

	_, err = New(nil, TeamSizePlan{2}, orderedConfig(), smallParameters())
	require.ErrorIs(t, err, ErrEmptyRoster)
}

func TestAddStartingGenomeRejectsInvalidGenome(t *testing.T) {
	e, err := New(orderedStudents(1, 2, 3, 4), TeamSizePlan{2, 2}, orderedConfig(), smallParameters())
	require.NoError(t, err)

	require.Error(t, e.AddStartingGenome(Genome{0, 1, 2}))
	require.Error(t, e.AddStartingGenome(Genome{0, 1, 1, 3}))
	require.NoError(t, e.AddStartingGenome(Genome{3, 2, 1, 0}))
	require.Equal(t, [][]int64{{4, 3}, {2, 1}}, e.Teams(Genome{3, 2, 1, 0}))
}
