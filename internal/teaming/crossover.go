package teaming

import "math/rand"

// boundaries 返回每个队伍在基因组中的起始位置，最后一个元素为学生总数
func boundaries(plan TeamSizePlan) []int {
	out := make([]int, len(plan)+1)
	for i, size := range plan {
		out[i+1] = out[i] + size
	}
	return out
}

// mate 以队伍边界为单位做顺序交叉：child 继承 mom 在两个边界之间的整段队伍，
// 其余位置按 dad 中的顺序填入剩下的学生；taken 是长度为学生总数的临时标记，调用结束后会被清空
func mate(child, mom, dad Genome, bounds []int, rng *rand.Rand, taken []bool) {
	numTeams := len(bounds) - 1
	a := rng.Intn(numTeams + 1)
	b := rng.Intn(numTeams)
	if b >= a {
		b++
	}
	if a > b {
		a, b = b, a
	}
	start, end := bounds[a], bounds[b]

	for _, member := range mom[start:end] {
		taken[member] = true
	}

	pos := 0
	for _, member := range dad {
		if taken[member] {
			continue
		}
		if pos == start {
			pos = end
		}
		child[pos] = member
		pos++
	}
	copy(child[start:end], mom[start:end])

	for _, member := range mom[start:end] {
		taken[member] = false
	}
}
