package teaming

import (
	"fmt"
	"slices"
)

// attributeScorer 根据队伍中（已排序、不含 Unknown 的）属性取值计算 [0, 1] 之间的多样性得分
type attributeScorer interface {
	spread(sorted []int) float64
}

type orderedScorer struct{ rng attributeRange }

// 取值跨度占 75%，不同取值的数量占 25%
func (s orderedScorer) spread(sorted []int) float64 {
	return 0.75*ratio(sorted[len(sorted)-1]-sorted[0], s.rng.max-s.rng.min) +
		0.25*ratio(countUnique(sorted)-1, s.rng.unique-1)
}

type categoricalScorer struct{ rng attributeRange }

func (s categoricalScorer) spread(sorted []int) float64 {
	return ratio(countUnique(sorted)-1, s.rng.unique-1)
}

type timezoneScorer struct{ rng attributeRange }

func (s timezoneScorer) spread(sorted []int) float64 {
	return ratio(sorted[len(sorted)-1]-sorted[0], s.rng.max-s.rng.min)
}

func ratio(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func countUnique(sorted []int) int {
	if len(sorted) == 0 {
		return 0
	}
	unique := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			unique++
		}
	}
	return unique
}

func newAttributeScorer(kind AttributeKind, rng attributeRange) (attributeScorer, error) {
	switch kind {
	case KindOrdered, KindMultiOrdered:
		return orderedScorer{rng: rng}, nil
	case KindCategorical, KindMultiCategorical:
		return categoricalScorer{rng: rng}, nil
	case KindTimezone:
		return timezoneScorer{rng: rng}, nil
	default:
		return nil, fmt.Errorf("未知的属性类型 %q", kind)
	}
}

// attributeCriterion: 一个属性的评分策略与规则，构造时确定
type attributeCriterion struct {
	index  int
	rule   AttributeRule
	scorer attributeScorer
	scored bool // 权重大于 0 且不被忽略时才计入评分
}

// evaluate 返回该属性对队伍的加权得分和惩罚点数，values 必须是队伍中已排序的已知取值
func (c *attributeCriterion) evaluate(values []int) (float64, int) {
	penalties := 0
	if c.rule.hasRules() {
		for _, pair := range c.rule.IncompatiblePairs {
			n := countValue(values, pair[0])
			if pair[0] == pair[1] {
				penalties += n * (n - 1) / 2
			} else {
				penalties += n * countValue(values, pair[1])
			}
		}
		for _, required := range c.rule.RequiredValues {
			if countValue(values, required) == 0 {
				penalties++
			}
		}
	}

	if !c.scored || len(values) == 0 {
		return 0, penalties
	}

	var score float64
	switch c.rule.Diversity {
	case Ignored:
		score = 0
	case Homogeneous:
		score = 1 - c.scorer.spread(values)
	default:
		score = c.scorer.spread(values)
	}
	return score * c.rule.Weight, penalties
}

func countValue(sorted []int, v int) int {
	lo, found := slices.BinarySearch(sorted, v)
	if !found {
		return 0
	}
	hi := lo
	for hi < len(sorted) && sorted[hi] == v {
		hi++
	}
	return hi - lo
}
