package teaming

import (
	"math/rand"
	"slices"
)

// tournament 从种群中随机抽取 len(sample) 个排名，返回两个不同抽样位置上的排名作为父母
// 排名越靠前越容易被选中：每个位置以 topProb 的概率被选中，否则顺延到下一个
// related 不为 nil 时，父亲与母亲近亲则顺延到下一个抽样位置，最多绕一圈
func tournament(rng *rand.Rand, popSize int, topProb float64, sample []int, related func(a, b int) bool) (int, int) {
	for i := range sample {
		sample[i] = rng.Intn(popSize)
	}
	slices.Sort(sample)

	last := len(sample) - 1
	first := 0
	for first < last && rng.Float64() >= topProb {
		first++
	}

	second := 0
	for {
		if second != first && rng.Float64() < topProb {
			break
		}
		second = (second + 1) % len(sample)
	}

	if related != nil {
		for tries := 1; tries < len(sample) && related(sample[first], sample[second]); tries++ {
			second = (second + 1) % len(sample)
			if second == first {
				second = (second + 1) % len(sample)
			}
		}
	}

	return sample[first], sample[second]
}
