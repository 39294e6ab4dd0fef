package teaming

import "math/bits"

const DaysPerWeek = 7

// Availability: 每天一个 uint64，第 b 位为 1 表示该天第 b 个时间块有空
type Availability [DaysPerWeek]uint64

func (a *Availability) Set(day, block int) {
	a[day] |= 1 << uint(block)
}

func (a Availability) IsAvailable(day, block int) bool {
	return a[day]&(1<<uint(block)) != 0
}

func (a Availability) Intersect(b Availability) Availability {
	var out Availability
	for day := range a {
		out[day] = a[day] & b[day]
	}
	return out
}

// FullAvailability 返回每天前 blocksPerDay 个时间块都有空的时间表
func FullAvailability(blocksPerDay int) Availability {
	var out Availability
	mask := dayMask(blocksPerDay)
	for day := range out {
		out[day] = mask
	}
	return out
}

func dayMask(blocksPerDay int) uint64 {
	if blocksPerDay >= 64 {
		return ^uint64(0)
	}
	return (1 << uint(blocksPerDay)) - 1
}

// CountMeetingWindows 统计不重叠的、长度为 blockSize 的连续空闲时间段数量，不跨天
func (a Availability) CountMeetingWindows(blocksPerDay, blockSize int) int {
	if blockSize <= 0 {
		return 0
	}

	mask := dayMask(blocksPerDay)
	count := 0
	for _, word := range a {
		word &= mask
		for word != 0 {
			// 跳到下一段连续空闲时间的开头
			word >>= uint(bits.TrailingZeros64(word))
			run := bits.TrailingZeros64(^word)
			count += run / blockSize
			if run >= 64 {
				break
			}
			word >>= uint(run)
		}
	}
	return count
}
