package teaming

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Scorer: 给定基因组计算每个队伍的得分和整体适应度，构造后只读，可以被多个 goroutine 共享
type Scorer struct {
	roster     *Roster
	plan       TeamSizePlan
	cfg        ScoringConfig
	criteria   []attributeCriterion
	numFactors int

	scheduleScored bool
	checkRequired  bool
	checkPrevented bool
	checkRequested bool
}

// scratch: 每个 worker 独占的临时缓冲区
type scratch struct {
	values []int
	teamOf []int // 学生下标 -> 所在队伍
}

func NewScorer(roster *Roster, plan TeamSizePlan, cfg ScoringConfig) (*Scorer, error) {
	if roster == nil || roster.Len() == 0 {
		return nil, configError("roster", ErrEmptyRoster)
	}
	if len(plan) == 0 {
		return nil, configError("plan", &SizeMismatchError{Students: roster.Len(), Planned: 0})
	}
	if _, err := NewCustomPlan(roster.Len(), plan); err != nil {
		return nil, configError("plan", err)
	}
	if len(cfg.Attributes) != roster.NumAttributes() {
		return nil, configError("attributes", fmt.Errorf("评分配置有 %d 个属性，学生名单有 %d 个属性", len(cfg.Attributes), roster.NumAttributes()))
	}

	s := &Scorer{
		roster:         roster,
		plan:           append(TeamSizePlan{}, plan...),
		cfg:            cfg,
		criteria:       make([]attributeCriterion, len(cfg.Attributes)),
		scheduleScored: cfg.ScheduleWeight > 0,
		checkRequired:  roster.hasRequired(),
		checkPrevented: roster.hasPrevented(),
		checkRequested: roster.hasRequested() && cfg.RequestedTeammatesNeeded > 0,
	}

	for i, rule := range cfg.Attributes {
		if rule.Weight < 0 {
			return nil, configError("attributes", fmt.Errorf("属性 %d 的权重不能为负数", i))
		}
		scorer, err := newAttributeScorer(rule.Kind, roster.ranges[i])
		if err != nil {
			return nil, configError("attributes", err)
		}
		s.criteria[i] = attributeCriterion{
			index:  i,
			rule:   rule,
			scorer: scorer,
			scored: rule.Weight > 0 && rule.Diversity != Ignored,
		}
		if s.criteria[i].scored {
			s.numFactors++
		}
	}

	if cfg.ScheduleWeight < 0 {
		return nil, configError("scheduleWeight", errors.New("时间表权重不能为负数"))
	}
	if s.scheduleScored {
		if cfg.BlocksPerDay < 1 || cfg.BlocksPerDay > 64 {
			return nil, configError("blocksPerDay", fmt.Errorf("每天的时间块数量 %d 不在 1~64 之间", cfg.BlocksPerDay))
		}
		if cfg.MeetingBlockSize < 1 || cfg.MeetingBlockSize > cfg.BlocksPerDay {
			return nil, configError("meetingBlockSize", fmt.Errorf("会议时长 %d 不合法", cfg.MeetingBlockSize))
		}
		if cfg.DesiredOverlap < 1 || cfg.MinOverlap < 0 || cfg.MinOverlap > cfg.DesiredOverlap {
			return nil, configError("overlap", fmt.Errorf("最少重叠 %d 与期望重叠 %d 不合法", cfg.MinOverlap, cfg.DesiredOverlap))
		}
		if cfg.ExtraOverlapCredit < 0 || cfg.ExtraOverlapCredit > 0.5 {
			return nil, configError("extraOverlapCredit", fmt.Errorf("额外重叠得分比例 %v 不在 [0, 0.5] 之间", cfg.ExtraOverlapCredit))
		}
		s.numFactors++
	}

	if s.numFactors == 0 {
		return nil, configError("weights", ErrNoScoringFactors)
	}

	return s, nil
}

func (s *Scorer) Plan() TeamSizePlan {
	return s.plan
}

func (s *Scorer) NumFactors() int {
	return s.numFactors
}

func (s *Scorer) newScratch() *scratch {
	return &scratch{
		values: make([]int, 0, 16),
		teamOf: make([]int, s.roster.Len()),
	}
}

func (s *Scorer) newTeamScores() TeamScores {
	return TeamScores{
		Scores:    make([]float64, len(s.plan)),
		Penalties: make([]int, len(s.plan)),
	}
}

// Score 计算基因组的评分，同一基因组多次调用结果完全一致
func (s *Scorer) Score(genome Genome) TeamScores {
	out := s.newTeamScores()
	s.scoreInto(genome, s.newScratch(), &out)
	return out
}

func (s *Scorer) scoreInto(genome Genome, sc *scratch, out *TeamScores) {
	pos := 0
	for team, size := range s.plan {
		for _, member := range genome[pos : pos+size] {
			sc.teamOf[member] = team
		}
		pos += size
	}

	pos = 0
	for team, size := range s.plan {
		members := genome[pos : pos+size]
		pos += size

		total, penalties := 0.0, 0
		for i := range s.criteria {
			c := &s.criteria[i]
			if !c.scored && !c.rule.hasRules() {
				continue
			}
			sc.values = s.collectValues(sc.values[:0], members, c.index)
			v, p := c.evaluate(sc.values)
			total += v
			penalties += p
		}

		if s.scheduleScored {
			v, p := s.scheduleScore(members)
			total += v
			penalties += p
		}

		penalties += s.identityPenalties(members)
		penalties += s.teammatePenalties(members, team, sc.teamOf)

		out.Scores[team] = 100 * (total/float64(s.numFactors) - s.cfg.PenaltyPoint*float64(penalties))
		out.Penalties[team] = penalties
	}

	out.Fitness = Fitness(out.Scores, s.plan)
}

func (s *Scorer) collectValues(dst []int, members []int, attr int) []int {
	for _, member := range members {
		for _, v := range s.roster.students[member].Attributes[attr] {
			if v != Unknown {
				dst = append(dst, v)
			}
		}
	}
	slices.Sort(dst)
	return dst
}

func (s *Scorer) identityPenalties(members []int) int {
	if len(members) < 2 {
		return 0
	}

	numWomen, numMen, numNonbinary, numURM := 0, 0, 0, 0
	for _, member := range members {
		student := &s.roster.students[member]
		if student.hasGender(GenderWoman) {
			numWomen++
		}
		if student.hasGender(GenderMan) {
			numMen++
		}
		if student.hasGender(GenderNonbinary) {
			numNonbinary++
		}
		if student.URM {
			numURM++
		}
	}

	penalties := 0
	if s.cfg.IsolatedWomenPrevented && numWomen == 1 {
		penalties++
	}
	if s.cfg.IsolatedMenPrevented && numMen == 1 {
		penalties++
	}
	if s.cfg.IsolatedNonbinaryPrevented && numNonbinary == 1 {
		penalties++
	}
	if s.cfg.IsolatedURMPrevented && numURM == 1 {
		penalties++
	}
	if s.cfg.SingleGenderPrevented && (numWomen == 0 || numMen == 0) {
		penalties++
	}
	return penalties
}

func (s *Scorer) teammatePenalties(members []int, team int, teamOf []int) int {
	penalties := 0
	for _, member := range members {
		if s.checkRequired {
			for _, other := range s.roster.required[member] {
				if teamOf[other] != team {
					penalties++
				}
			}
		}
		if s.checkPrevented {
			for _, other := range s.roster.prevented[member] {
				if teamOf[other] == team {
					penalties++
				}
			}
		}
		if s.checkRequested && len(s.roster.requested[member]) > 0 {
			found := 0
			for _, other := range s.roster.requested[member] {
				if teamOf[other] == team {
					found++
				}
			}
			if found < min(len(s.roster.requested[member]), s.cfg.RequestedTeammatesNeeded) {
				penalties++
			}
		}
	}
	return penalties
}

// Fitness 把各队伍得分合成一个适应度
// 所有参与计分的队伍得分都为正时使用调和平均，让低分队伍的影响更大；
// 否则使用算术平均，并向负无穷方向再扣除其绝对值的一半
func Fitness(scores []float64, plan TeamSizePlan) float64 {
	harmonicSum, regularSum := 0.0, 0.0
	numScored := 0
	allPositive := true

	for team, score := range scores {
		// 没有被惩罚的单人队伍得分为 0，没有意义，不计入
		if team < len(plan) && plan[team] == 1 && score == 0 {
			continue
		}
		numScored++
		regularSum += score
		if score <= 0 {
			allPositive = false
		} else {
			harmonicSum += 1 / score
		}
	}

	if numScored == 0 {
		return 0
	}
	if allPositive {
		return float64(numScored) / harmonicSum
	}

	mean := regularSum / float64(numScored)
	return mean - math.Abs(mean)/2
}
