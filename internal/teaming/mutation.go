package teaming

import "math/rand"

// mutate 以 likelihood 的概率交换两个随机位置上的学生，交换后再次掷骰，直到失败为止
func mutate(g Genome, rng *rand.Rand, likelihood float64) {
	for rng.Float64() < likelihood {
		i, j := rng.Intn(len(g)), rng.Intn(len(g))
		g[i], g[j] = g[j], g[i]
	}
}
