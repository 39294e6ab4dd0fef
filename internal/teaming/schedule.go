package teaming

import "math"

// scheduleScore 对队伍中有时间表的成员求交，按共同空闲时间段数量计分
func (s *Scorer) scheduleScore(members []int) (float64, int) {
	if len(members) < 2 {
		return 0, 0
	}

	team := FullAvailability(s.cfg.BlocksPerDay)
	known := 0
	for _, member := range members {
		student := &s.roster.students[member]
		if student.ScheduleUnknown {
			continue
		}
		team = team.Intersect(student.Availability)
		known++
	}
	// 少于两个人有明确的时间表时不计分，避免把没填时间表的学生凑在一起刷分
	if known < 2 {
		return 0, 0
	}

	overlaps := team.CountMeetingWindows(s.cfg.BlocksPerDay, s.cfg.MeetingBlockSize)
	desired := float64(s.cfg.DesiredOverlap)

	var score float64
	penalties := 0
	switch {
	case overlaps > s.cfg.DesiredOverlap:
		score = desired + extraCredit(s.cfg.ExtraOverlapCredit, overlaps-s.cfg.DesiredOverlap)
	case overlaps < s.cfg.MinOverlap:
		score = 0
		penalties++
	default:
		score = float64(overlaps)
	}

	return score / desired * s.cfg.ScheduleWeight, penalties
}

// extraCredit: 超出部分第 n 个时间段得 ratio^n 分，总和 ratio(1-ratio^k)/(1-ratio) 小于 ratio/(1-ratio)
// ratio 小于 0.5 时额外得分总和不到一个时间段，不会抵消惩罚
func extraCredit(ratio float64, excess int) float64 {
	if ratio <= 0 || excess <= 0 {
		return 0
	}
	return ratio * (1 - math.Pow(ratio, float64(excess))) / (1 - ratio)
}
