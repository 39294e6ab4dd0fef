package utils

import (
	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/teaming"
)

// DefaultScoringOptions 所有属性以权重 1 追求多样性，其余使用默认配置
func DefaultScoringOptions(roster *domain.Roster) domain.ScoringOptions {
	defaults := teaming.DefaultScoringConfig()
	opts := domain.ScoringOptions{
		Attributes:               make([]domain.AttributeScoring, len(roster.Attributes)),
		ScheduleWeight:           defaults.ScheduleWeight,
		MinOverlap:               defaults.MinOverlap,
		DesiredOverlap:           defaults.DesiredOverlap,
		MeetingBlockSize:         defaults.MeetingBlockSize,
		ExtraOverlapCredit:       defaults.ExtraOverlapCredit,
		RequestedTeammatesNeeded: defaults.RequestedTeammatesNeeded,
		PenaltyPoint:             defaults.PenaltyPoint,
	}
	for i := range opts.Attributes {
		opts.Attributes[i] = domain.AttributeScoring{
			Weight:    1,
			Diversity: teaming.Heterogeneous,
		}
	}
	return opts
}

// BuildScoringConfig 把名单的属性类型与评分配置合并成引擎的评分配置
func BuildScoringConfig(roster *domain.Roster, opts *domain.ScoringOptions) teaming.ScoringConfig {
	cfg := teaming.ScoringConfig{
		Attributes:                 make([]teaming.AttributeRule, len(opts.Attributes)),
		ScheduleWeight:             opts.ScheduleWeight,
		BlocksPerDay:               roster.BlocksPerDay,
		MinOverlap:                 opts.MinOverlap,
		DesiredOverlap:             opts.DesiredOverlap,
		MeetingBlockSize:           opts.MeetingBlockSize,
		ExtraOverlapCredit:         opts.ExtraOverlapCredit,
		IsolatedWomenPrevented:     opts.IsolatedWomenPrevented,
		IsolatedMenPrevented:       opts.IsolatedMenPrevented,
		IsolatedNonbinaryPrevented: opts.IsolatedNonbinaryPrevented,
		IsolatedURMPrevented:       opts.IsolatedURMPrevented,
		SingleGenderPrevented:      opts.SingleGenderPrevented,
		RequestedTeammatesNeeded:   opts.RequestedTeammatesNeeded,
		PenaltyPoint:               opts.PenaltyPoint,
	}
	for i, scoring := range opts.Attributes {
		var kind teaming.AttributeKind
		if i < len(roster.Attributes) {
			kind = roster.Attributes[i].Kind
		}
		cfg.Attributes[i] = teaming.AttributeRule{
			Kind:              kind,
			Weight:            scoring.Weight,
			Diversity:         scoring.Diversity,
			RequiredValues:    scoring.RequiredValues,
			IncompatiblePairs: scoring.IncompatiblePairs,
		}
	}
	return cfg
}

// BuildTeamingStudents 把学生记录转换成引擎使用的学生，学生 ID 使用记录的 ID
// 队友要求中不在 students 里的学号会被忽略（例如不在同一个班级）
func BuildTeamingStudents(students []domain.StudentRecord) []teaming.Student {
	idByNumber := make(map[string]int64, len(students))
	for _, student := range students {
		idByNumber[student.StudentNumber] = student.ID
	}
	resolve := func(numbers []string) []int64 {
		ids := make([]int64, 0, len(numbers))
		for _, number := range numbers {
			if id, ok := idByNumber[number]; ok {
				ids = append(ids, id)
			}
		}
		return ids
	}

	out := make([]teaming.Student, len(students))
	for i, student := range students {
		out[i] = teaming.Student{
			ID:              student.ID,
			Genders:         student.Genders,
			URM:             student.URM,
			Section:         student.Section,
			Attributes:      student.Attributes,
			ScheduleUnknown: student.ScheduleUnknown(),
			RequiredWith:    resolve(student.RequiredWith),
			PreventedWith:   resolve(student.PreventedWith),
			RequestedWith:   resolve(student.RequestedWith),
		}
		for day, blocks := range student.Availability {
			if day >= teaming.DaysPerWeek {
				break
			}
			for _, block := range blocks {
				out[i].Availability.Set(day, block)
			}
		}
	}
	return out
}

// BuildTeamingResult 把引擎的结果转换成可以保存的分组结果
func BuildTeamingResult(jobID int64, seed int64, result *teaming.Result) *domain.TeamingResult {
	teams := make([]domain.TeamingResultTeam, len(result.Teams))
	for i, members := range result.Teams {
		teams[i] = domain.TeamingResultTeam{
			Index:      i,
			StudentIDs: members,
			Score:      result.Scores.Scores[i],
			Penalties:  result.Scores.Penalties[i],
		}
	}
	return &domain.TeamingResult{
		JobID:       jobID,
		Teams:       teams,
		Fitness:     result.Scores.Fitness,
		Generations: result.Generations,
		Reason:      result.Reason,
		Seed:        seed,
	}
}
