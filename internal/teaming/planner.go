package teaming

// TeamSizeOptions: 无法整除时给出的两种分法
type TeamSizeOptions struct {
	Smaller TeamSizePlan `json:"smaller"` // 每队人数都不超过理想人数
	Larger  TeamSizePlan `json:"larger"`  // 每队人数都不少于理想人数
}

// Divisible 表示两种分法相同
func (o TeamSizeOptions) Divisible() bool {
	if len(o.Smaller) != len(o.Larger) {
		return false
	}
	for i := range o.Smaller {
		if o.Smaller[i] != o.Larger[i] {
			return false
		}
	}
	return true
}

// PlanTeamSizes 根据学生人数和理想队伍人数计算队伍划分
func PlanTeamSizes(numStudents, idealSize int) (TeamSizeOptions, error) {
	if numStudents <= 0 {
		return TeamSizeOptions{}, ErrEmptyRoster
	}
	// 理想人数正好是 N/2 时仍然允许，得到两个队伍（例如 8 人分成 [4,4]）
	if idealSize < 1 || idealSize > numStudents/2 {
		return TeamSizeOptions{}, &InvalidTeamSizeError{Size: idealSize, Students: numStudents}
	}

	numTeams := max(1, numStudents/idealSize)
	if numStudents%idealSize == 0 {
		plan := make(TeamSizePlan, numTeams)
		for i := range plan {
			plan[i] = idealSize
		}
		return TeamSizeOptions{Smaller: plan, Larger: plan}, nil
	}

	return TeamSizeOptions{
		Smaller: dealRoundRobin(numStudents, numTeams+1),
		Larger:  dealRoundRobin(numStudents, numTeams),
	}, nil
}

// dealRoundRobin 把学生依次发到每个队伍，较大的队伍排在前面
func dealRoundRobin(numStudents, numTeams int) TeamSizePlan {
	plan := make(TeamSizePlan, numTeams)
	for student := 0; student < numStudents; student++ {
		plan[student%numTeams]++
	}
	return plan
}

// NewCustomPlan 校验自定义的队伍人数
func NewCustomPlan(numStudents int, sizes []int) (TeamSizePlan, error) {
	if numStudents <= 0 {
		return nil, ErrEmptyRoster
	}
	for _, size := range sizes {
		if size < 1 {
			return nil, &InvalidTeamSizeError{Size: size, Students: numStudents}
		}
	}

	plan := append(TeamSizePlan{}, sizes...)
	if plan.Total() != numStudents {
		return nil, &SizeMismatchError{Students: numStudents, Planned: plan.Total()}
	}
	return plan, nil
}
