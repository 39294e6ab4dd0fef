package teaming

import "slices"

// lineage 记录每个基因组往上若干代的祖先 ID，用来避免近亲交配
// 第 g 代祖先（0 为父母）占 [2^(g+1)-2, 2^(g+2)-2)，前一半来自母亲，后一半来自父亲
type lineage struct {
	generations int
	slots       int
	size        int
	current     []int64
	next        []int64
}

func newLineage(size, generations int) *lineage {
	slots := 0
	if generations > 0 {
		slots = 1<<(generations+1) - 2
	}
	return &lineage{
		generations: generations,
		slots:       slots,
		size:        size,
		current:     make([]int64, size*slots),
		next:        make([]int64, size*slots),
	}
}

// genomeID: 第 gen 代第 i 个基因组的 ID，所有代中唯一且为正
func (l *lineage) genomeID(gen, i int) int64 {
	return int64(gen)*int64(l.size) + int64(i) + 1
}

func (l *lineage) ancestors(buf []int64, i int) []int64 {
	return buf[i*l.slots : (i+1)*l.slots]
}

// level 返回第 g 代祖先在数组中的区间
func level(g int) (int, int) {
	start := 1<<(g+1) - 2
	return start, start + 1<<(g+1)
}

// unknown 为随机产生的基因组填入互不相同的负数祖先，使它与任何基因组都不相关
func (l *lineage) unknown(buf []int64, i, gen int) {
	dst := l.ancestors(buf, i)
	base := l.genomeID(gen, i) * int64(l.slots)
	for k := range dst {
		dst[k] = -(base + int64(k))
	}
}

// related 判断当前一代中下标为 a 和 b 的基因组是否在同一代上有共同祖先
func (l *lineage) related(a, b int) bool {
	if l.slots == 0 {
		return false
	}
	if a == b {
		return true
	}
	mom, dad := l.ancestors(l.current, a), l.ancestors(l.current, b)
	for g := 0; g < l.generations; g++ {
		start, end := level(g)
		for _, ancestor := range mom[start:end] {
			if slices.Contains(dad[start:end], ancestor) {
				return true
			}
		}
	}
	return false
}

// inherit 把 mom 和 dad 的祖先上移一代写入下一代第 child 个基因组
// 精英以 mom == dad 的方式复制自己
func (l *lineage) inherit(child, mom, dad, gen int) {
	if l.slots == 0 {
		return
	}
	dst := l.ancestors(l.next, child)
	dst[0] = l.genomeID(gen, mom)
	dst[1] = l.genomeID(gen, dad)

	momAncestors, dadAncestors := l.ancestors(l.current, mom), l.ancestors(l.current, dad)
	for g := 1; g < l.generations; g++ {
		start, end := level(g)
		prevStart, prevEnd := level(g - 1)
		half := start + (end-start)/2
		copy(dst[start:half], momAncestors[prevStart:prevEnd])
		copy(dst[half:end], dadAncestors[prevStart:prevEnd])
	}
}

func (l *lineage) swap() {
	l.current, l.next = l.next, l.current
}
