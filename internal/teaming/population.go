package teaming

import (
	"math/rand"
	"slices"

	"golang.org/x/sync/errgroup"
)

// population: 当前一代的基因组与评分，以及下一代的缓冲区
type population struct {
	genomes []Genome
	next    []Genome
	scores  []TeamScores
	order   []int // 按适应度从高到低排列的基因组下标
	lineage *lineage
}

func newPopulation(size, numStudents, numTeams, ancestorGenerations int) *population {
	p := &population{
		genomes: make([]Genome, size),
		next:    make([]Genome, size),
		scores:  make([]TeamScores, size),
		order:   make([]int, size),
		lineage: newLineage(size, ancestorGenerations),
	}
	for i := 0; i < size; i++ {
		p.genomes[i] = make(Genome, numStudents)
		p.next[i] = make(Genome, numStudents)
		p.scores[i] = TeamScores{
			Scores:    make([]float64, numTeams),
			Penalties: make([]int, numTeams),
		}
	}
	return p
}

func (p *population) size() int {
	return len(p.genomes)
}

// randomize 把 g 重置为一个随机排列
func randomize(g Genome, rng *rand.Rand) {
	for i := range g {
		g[i] = i
	}
	rng.Shuffle(len(g), func(i, j int) {
		g[i], g[j] = g[j], g[i]
	})
}

// chunks 把 [0, n) 切成 workers 段连续的区间
func chunks(n, workers int) [][2]int {
	workers = max(1, min(workers, n))
	out := make([][2]int, 0, workers)
	step := n / workers
	extra := n % workers
	start := 0
	for w := 0; w < workers; w++ {
		end := start + step
		if w < extra {
			end++
		}
		out = append(out, [2]int{start, end})
		start = end
	}
	return out
}

// evaluate 并行地为所有基因组评分，然后按适应度排序
func (p *population) evaluate(scorer *Scorer, workers int) error {
	var g errgroup.Group
	for _, c := range chunks(p.size(), workers) {
		g.Go(func() error {
			sc := scorer.newScratch()
			for i := c[0]; i < c[1]; i++ {
				scorer.scoreInto(p.genomes[i], sc, &p.scores[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range p.order {
		p.order[i] = i
	}
	// 适应度相同时按下标排序，保证固定随机种子下结果可复现
	slices.SortStableFunc(p.order, func(a, b int) int {
		fa, fb := p.scores[a].Fitness, p.scores[b].Fitness
		switch {
		case fa > fb:
			return -1
		case fa < fb:
			return 1
		default:
			return 0
		}
	})
	return nil
}

// top 返回排名前 k 的基因组下标
func (p *population) top(k int) []int {
	return p.order[:min(k, len(p.order))]
}

// ranked 返回排名第 rank 的基因组
func (p *population) ranked(rank int) (Genome, *TeamScores) {
	idx := p.order[rank]
	return p.genomes[idx], &p.scores[idx]
}

// relatedRanks 判断排名为 a 和 b 的两个基因组是否近亲
func (p *population) relatedRanks(a, b int) bool {
	return p.lineage.related(p.order[a], p.order[b])
}

// swap 用下一代替换当前一代
func (p *population) swap() {
	p.genomes, p.next = p.next, p.genomes
	p.lineage.swap()
}
