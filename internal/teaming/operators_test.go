package teaming

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMateProducesPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	plans := []TeamSizePlan{{1}, {2, 2}, {3, 2, 4, 1}, {5, 5, 5, 4, 4}}

	for _, plan := range plans {
		n := plan.Total()
		bounds := boundaries(plan)
		taken := make([]bool, n)
		mom, dad, child := make(Genome, n), make(Genome, n), make(Genome, n)

		for trial := 0; trial < 200; trial++ {
			randomize(mom, rng)
			randomize(dad, rng)
			mate(child, mom, dad, bounds, rng, taken)

			require.True(t, isPermutation(child), "plan=%v mom=%v dad=%v child=%v", plan, mom, dad, child)
			require.NotContains(t, taken, true)

			// child 至少完整继承了 mom 的一个队伍
			inherited := false
			for team := 0; team < len(plan); team++ {
				if slices.Equal(child[bounds[team]:bounds[team+1]], mom[bounds[team]:bounds[team+1]]) {
					inherited = true
					break
				}
			}
			require.True(t, inherited)
		}
	}
}

func TestMateKeepsDadOrder(t *testing.T) {
	bounds := boundaries(TeamSizePlan{2, 2, 2})
	mom := Genome{0, 1, 2, 3, 4, 5}
	dad := Genome{5, 4, 3, 2, 1, 0}
	child := make(Genome, 6)

	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 50; trial++ {
		mate(child, mom, dad, bounds, rng, make([]bool, 6))
		require.True(t, isPermutation(child))

		// 不属于 mom 整段的学生应保持 dad 中的相对顺序（降序）
		var rest []int
		for pos, member := range child {
			if member != mom[pos] {
				rest = append(rest, member)
			}
		}
		require.True(t, slices.IsSortedFunc(rest, func(a, b int) int { return b - a }))
	}
}

func TestMutatePreservesPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	g := make(Genome, 30)
	for trial := 0; trial < 200; trial++ {
		randomize(g, rng)
		mutate(g, rng, 0.9)
		require.True(t, isPermutation(g))
	}

	randomize(g, rng)
	before := slices.Clone(g)
	mutate(g, rng, 0)
	require.Equal(t, before, g)
}

func TestTournament(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	sample := make([]int, 8)
	for trial := 0; trial < 500; trial++ {
		first, second := tournament(rng, 100, 0.33, sample, nil)
		require.GreaterOrEqual(t, first, 0)
		require.Less(t, first, 100)
		require.GreaterOrEqual(t, second, 0)
		require.Less(t, second, 100)
		require.Contains(t, sample, first)
		require.Contains(t, sample, second)
	}

	// 概率为 1 时总是选中抽样中排名最靠前的两个位置
	for trial := 0; trial < 100; trial++ {
		first, second := tournament(rng, 1000, 1, sample, nil)
		require.Equal(t, sample[0], first)
		require.Equal(t, sample[1], second)
	}
}

func TestTournamentSkipsRelatedParents(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	sample := make([]int, 8)
	// 奇偶性相同的排名视为近亲
	related := func(a, b int) bool { return a%2 == b%2 }

	for trial := 0; trial < 200; trial++ {
		first, second := tournament(rng, 1000, 1, sample, related)
		require.Equal(t, sample[0], first)

		hasUnrelated := false
		for _, rank := range sample[1:] {
			if !related(first, rank) {
				hasUnrelated = true
			}
		}
		if hasUnrelated {
			require.False(t, related(first, second), "sample %v", sample)
		}
	}

	// 整个抽样都是近亲时仍然返回两个抽样位置
	first, second := tournament(rng, 1000, 0.5, sample, func(int, int) bool { return true })
	require.Contains(t, sample, first)
	require.Contains(t, sample, second)
}

func TestLineage(t *testing.T) {
	l := newLineage(4, 2)
	require.Equal(t, 6, l.slots)
	for i := 0; i < 4; i++ {
		l.unknown(l.current, i, 1)
	}
	require.False(t, l.related(0, 1))
	require.True(t, l.related(2, 2))

	// 下一代：0 与 1 是同一个母亲，2 是精英复制，3 是随机注入
	l.inherit(0, 0, 1, 1)
	l.inherit(1, 0, 2, 1)
	l.inherit(2, 3, 3, 1)
	l.unknown(l.next, 3, 2)
	l.swap()

	require.True(t, l.related(0, 1))
	require.False(t, l.related(0, 2))
	require.False(t, l.related(1, 3))
	require.Equal(t, []int64{l.genomeID(1, 3), l.genomeID(1, 3)}, l.ancestors(l.current, 2)[:2])

	// 再下一代：祖父母一层仍然相同，父母不同也算近亲
	l.inherit(0, 0, 2, 2)
	l.inherit(1, 1, 3, 2)
	l.unknown(l.next, 2, 3)
	l.unknown(l.next, 3, 3)
	l.swap()

	require.True(t, l.related(0, 1))
	require.False(t, l.related(2, 3))

	off := newLineage(4, 0)
	off.inherit(0, 1, 1, 1)
	require.False(t, off.related(0, 0))
}

func TestChunksCoverRange(t *testing.T) {
	for _, tc := range []struct{ n, workers int }{{10, 3}, {3, 8}, {100, 1}, {7, 7}} {
		parts := chunks(tc.n, tc.workers)
		require.LessOrEqual(t, len(parts), tc.workers)
		next := 0
		for _, c := range parts {
			require.Equal(t, next, c[0])
			require.Greater(t, c[1], c[0])
			next = c[1]
		}
		require.Equal(t, tc.n, next)
	}
}
