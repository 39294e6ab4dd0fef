package teaming

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// 遗传算法参数
type Parameters struct {
	PopulationSize      int     `json:"populationSize"`      // 种群大小
	TournamentSize      int     `json:"tournamentSize"`      // 每次锦标赛抽取的基因组数量
	NumElites           int     `json:"numElites"`           // 精英数量
	RandomInjection     int     `json:"randomInjection"`     // 每一代注入的随机基因组数量
	TopGenomeLikelihood float64 `json:"topGenomeLikelihood"` // 锦标赛中选中排名最靠前者的概率
	MutationLikelihood  float64 `json:"mutationLikelihood"`  // 变异概率
	MinGenerations      int     `json:"minGenerations"`      // 最少迭代次数
	MaxGenerations      int     `json:"maxGenerations"`      // 最大迭代次数
	StabilityWindow     int     `json:"stabilityWindow"`     // 判断收敛时回看的代数
	StabilityThreshold  float64 `json:"stabilityThreshold"`  // 回看窗口内最佳适应度的相对变化小于这个值时视为收敛
	Workers             int     `json:"workers"`             // 并行的 goroutine 数量，0 表示 GOMAXPROCS
	AncestorGenerations int     `json:"ancestorGenerations"` // 选择父母时回看的祖先代数，有共同祖先的不交配，0 表示不检查
	Seed                int64   `json:"seed"`                // 随机种子，0 表示使用当前时间
}

func DefaultParameters() Parameters {
	return Parameters{
		PopulationSize:      30000,
		TournamentSize:      60,
		NumElites:           3,
		RandomInjection:     10,
		TopGenomeLikelihood: 0.33,
		MutationLikelihood:  0.5,
		MinGenerations:      40,
		MaxGenerations:      500,
		StabilityWindow:     25,
		StabilityThreshold:  0.01,
		AncestorGenerations: 3,
	}
}

// 参数上限，超过后单个任务的内存或运行时间不可控
const (
	maxPopulationSize      = 200000
	maxGenerations         = 100000
	maxWorkers             = 256
	maxAncestorGenerations = 5
)

func (p *Parameters) validate() error {
	switch {
	case p.PopulationSize < 2 || p.PopulationSize > maxPopulationSize:
		return configError("populationSize", fmt.Errorf("种群大小 %d 不在 2~%d 之间", p.PopulationSize, maxPopulationSize))
	case p.TournamentSize < 2 || p.TournamentSize > p.PopulationSize:
		return configError("tournamentSize", fmt.Errorf("锦标赛大小 %d 不在 2~%d 之间", p.TournamentSize, p.PopulationSize))
	case p.NumElites < 0 || p.RandomInjection < 0:
		return configError("numElites", errors.New("精英数量和随机注入数量不能为负数"))
	case p.NumElites+p.RandomInjection >= p.PopulationSize:
		return configError("numElites", fmt.Errorf("精英数量与随机注入数量之和必须小于种群大小 %d", p.PopulationSize))
	case p.TopGenomeLikelihood <= 0 || p.TopGenomeLikelihood > 1:
		return configError("topGenomeLikelihood", fmt.Errorf("概率 %v 不在 (0, 1] 之间", p.TopGenomeLikelihood))
	case p.MutationLikelihood < 0 || p.MutationLikelihood >= 1:
		return configError("mutationLikelihood", fmt.Errorf("概率 %v 不在 [0, 1) 之间", p.MutationLikelihood))
	case p.MinGenerations < 1 || p.MaxGenerations < p.MinGenerations || p.MaxGenerations > maxGenerations:
		return configError("generations", fmt.Errorf("最少迭代次数 %d 与最大迭代次数 %d 不合法，最多 %d 代", p.MinGenerations, p.MaxGenerations, maxGenerations))
	case p.StabilityWindow < 1:
		return configError("stabilityWindow", fmt.Errorf("回看窗口 %d 至少为 1", p.StabilityWindow))
	case p.StabilityThreshold < 0:
		return configError("stabilityThreshold", errors.New("收敛阈值不能为负数"))
	case p.Workers < 0 || p.Workers > maxWorkers:
		return configError("workers", fmt.Errorf("goroutine 数量 %d 不在 0~%d 之间", p.Workers, maxWorkers))
	case p.AncestorGenerations < 0 || p.AncestorGenerations > maxAncestorGenerations:
		return configError("ancestorGenerations", fmt.Errorf("祖先代数 %d 不在 0~%d 之间", p.AncestorGenerations, maxAncestorGenerations))
	}
	return nil
}

type Engine struct {
	roster   *Roster
	scorer   *Scorer
	plan     TeamSizePlan
	params   Parameters
	starting []Genome
}

// New 校验全部输入，任何配置错误都会在运行之前返回 *ConfigurationError
func New(students []Student, plan TeamSizePlan, cfg ScoringConfig, params Parameters) (*Engine, error) {
	roster, err := NewRoster(students, len(cfg.Attributes))
	if err != nil {
		return nil, err
	}

	scorer, err := NewScorer(roster, plan, cfg)
	if err != nil {
		return nil, err
	}

	if err := params.validate(); err != nil {
		return nil, err
	}
	if params.Workers == 0 {
		params.Workers = runtime.GOMAXPROCS(0)
	}
	if params.Seed == 0 {
		params.Seed = time.Now().UnixNano()
	}

	return &Engine{
		roster: roster,
		scorer: scorer,
		plan:   scorer.Plan(),
		params: params,
	}, nil
}

func (e *Engine) Roster() *Roster {
	return e.roster
}

func (e *Engine) Scorer() *Scorer {
	return e.scorer
}

// Parameters 返回补全默认值之后的参数，其中的 Seed 可以用来复现这次运行
func (e *Engine) Parameters() Parameters {
	return e.params
}

// AddStartingGenome 把一个已知的分组放入初始种群
func (e *Engine) AddStartingGenome(g Genome) error {
	if len(g) != e.roster.Len() {
		return fmt.Errorf("基因组长度 %d 与学生人数 %d 不一致", len(g), e.roster.Len())
	}
	seen := make([]bool, len(g))
	for _, member := range g {
		if member < 0 || member >= len(g) || seen[member] {
			return errors.New("基因组不是学生下标的排列")
		}
		seen[member] = true
	}
	if len(e.starting) >= e.params.PopulationSize {
		return fmt.Errorf("初始基因组数量不能超过种群大小 %d", e.params.PopulationSize)
	}
	e.starting = append(e.starting, append(Genome{}, g...))
	return nil
}

// Teams 把基因组按队伍计划拆分成学生 ID
func (e *Engine) Teams(g Genome) [][]int64 {
	teams := make([][]int64, 0, len(e.plan))
	pos := 0
	for _, size := range e.plan {
		team := make([]int64, 0, size)
		for _, member := range g[pos : pos+size] {
			team = append(team, e.roster.students[member].ID)
		}
		teams = append(teams, team)
		pos += size
	}
	return teams
}

// Run 运行遗传算法直到收敛、达到最大迭代次数或 ctx 被取消
// progress 可以为 nil；每一代结束时尝试发送一次进度，通道已满时直接丢弃
func (e *Engine) Run(ctx context.Context, progress chan<- Progress) (*Result, error) {
	rng := rand.New(rand.NewSource(e.params.Seed))
	pop := newPopulation(e.params.PopulationSize, e.roster.Len(), len(e.plan), e.params.AncestorGenerations)
	bounds := boundaries(e.plan)

	if err := e.initialize(pop, rng); err != nil {
		return nil, err
	}
	if err := pop.evaluate(e.scorer, e.params.Workers); err != nil {
		return nil, err
	}

	var (
		best       Genome
		bestScores TeamScores
		history    = make([]float64, 0, min(e.params.MaxGenerations, 1024))
		reason     TerminationReason
		gen        int
	)

	for {
		gen++

		// 精英保证了每一代的最佳适应度不会下降，这里仍然显式地记录历史最佳
		genome, scores := pop.ranked(0)
		if best == nil || scores.Fitness > bestScores.Fitness {
			best = append(best[:0], genome...)
			bestScores = copyScores(scores)
		}
		history = append(history, bestScores.Fitness)
		stable := isStable(history, e.params.StabilityWindow, e.params.StabilityThreshold)

		publish(progress, Progress{
			Generation:         gen,
			BestFitness:        bestScores.Fitness,
			Stable:             stable,
			UnpenalizedPresent: bestScores.TotalPenalties() == 0,
		})

		if gen >= e.params.MinGenerations {
			if gen >= e.params.MaxGenerations {
				reason = ReachedMaxGenerations
				break
			}
			if stable {
				reason = StabilityDetected
				break
			}
		}
		if ctx.Err() != nil {
			reason = Cancelled
			break
		}

		if err := e.breed(pop, rng, bounds, gen); err != nil {
			return nil, err
		}
		pop.swap()
		if err := pop.evaluate(e.scorer, e.params.Workers); err != nil {
			return nil, err
		}
	}

	slog.Debug("分组完成", "generations", gen, "reason", reason, "fitness", bestScores.Fitness, "seed", e.params.Seed)

	return &Result{
		Genome:      best,
		Teams:       e.Teams(best),
		Plan:        append(TeamSizePlan{}, e.plan...),
		Scores:      bestScores,
		Generations: gen,
		Reason:      reason,
	}, nil
}

// chunkSeeds 从主随机数生成器中为每个分段取一个种子，保证固定种子和 goroutine 数量时结果可复现
func chunkSeeds(rng *rand.Rand, n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}
	return seeds
}

func (e *Engine) initialize(pop *population, rng *rand.Rand) error {
	parts := chunks(pop.size(), e.params.Workers)
	seeds := chunkSeeds(rng, len(parts))

	var g errgroup.Group
	for w, c := range parts {
		g.Go(func() error {
			local := rand.New(rand.NewSource(seeds[w]))
			for i := c[0]; i < c[1]; i++ {
				// 初始种群是第 1 代，祖先都未知
				pop.lineage.unknown(pop.lineage.current, i, 1)
				if i < len(e.starting) {
					copy(pop.genomes[i], e.starting[i])
					continue
				}
				randomize(pop.genomes[i], local)
			}
			return nil
		})
	}
	return g.Wait()
}

// breed 由第 gen 代生成下一代：先复制精英，再注入随机基因组，剩下的通过锦标赛选择和交叉产生并进行变异
func (e *Engine) breed(pop *population, rng *rand.Rand, bounds []int, gen int) error {
	parts := chunks(pop.size(), e.params.Workers)
	seeds := chunkSeeds(rng, len(parts))
	elites := pop.top(e.params.NumElites)
	injectEnd := e.params.NumElites + e.params.RandomInjection

	var g errgroup.Group
	for w, c := range parts {
		g.Go(func() error {
			local := rand.New(rand.NewSource(seeds[w]))
			sample := make([]int, e.params.TournamentSize)
			taken := make([]bool, e.roster.Len())

			for i := c[0]; i < c[1]; i++ {
				child := pop.next[i]
				switch {
				case i < len(elites):
					copy(child, pop.genomes[elites[i]])
					pop.lineage.inherit(i, elites[i], elites[i], gen)
				case i < injectEnd:
					randomize(child, local)
					pop.lineage.unknown(pop.lineage.next, i, gen+1)
				default:
					momRank, dadRank := tournament(local, pop.size(), e.params.TopGenomeLikelihood, sample, pop.relatedRanks)
					mom, _ := pop.ranked(momRank)
					dad, _ := pop.ranked(dadRank)
					pop.lineage.inherit(i, pop.order[momRank], pop.order[dadRank], gen)
					mate(child, mom, dad, bounds, local, taken)
					mutate(child, local, e.params.MutationLikelihood)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func isStable(history []float64, window int, threshold float64) bool {
	n := len(history)
	if n <= window {
		return false
	}
	current, previous := history[n-1], history[n-1-window]
	return math.Abs(current-previous) <= threshold*math.Abs(current)
}

func publish(progress chan<- Progress, p Progress) {
	if progress == nil {
		return
	}
	select {
	case progress <- p:
	default:
	}
}

func copyScores(s *TeamScores) TeamScores {
	return TeamScores{
		Scores:    append([]float64{}, s.Scores...),
		Penalties: append([]int{}, s.Penalties...),
		Fitness:   s.Fitness,
	}
}
