package teaming

// Unknown 表示学生没有填写该属性
const Unknown = -1

type Gender string

const (
	GenderWoman     Gender = "woman"
	GenderMan       Gender = "man"
	GenderNonbinary Gender = "nonbinary"
	GenderUnknown   Gender = "unknown"
)

type AttributeKind string

const (
	KindOrdered          AttributeKind = "ordered"
	KindMultiOrdered     AttributeKind = "multiordered"
	KindCategorical      AttributeKind = "categorical"
	KindMultiCategorical AttributeKind = "multicategorical"
	KindTimezone         AttributeKind = "timezone" // 唯一值为相对 UTC 的分钟数
)

type DiversityMode string

const (
	Heterogeneous DiversityMode = "heterogeneous"
	Homogeneous   DiversityMode = "homogeneous"
	Ignored       DiversityMode = "ignored"
)

// Student: 引擎只读的学生信息
type Student struct {
	ID              int64
	Genders         []Gender
	URM             bool
	Section         string
	Attributes      [][]int // 每个属性一个取值数组，多选属性可以有多个值
	Availability    Availability
	ScheduleUnknown bool // 没有填写时间表的学生不参与时间表求交
	RequiredWith    []int64
	PreventedWith   []int64
	RequestedWith   []int64
}

func (s *Student) hasGender(g Gender) bool {
	for _, gender := range s.Genders {
		if gender == g {
			return true
		}
	}
	return false
}

// AttributeRule: 单个属性的评分规则
type AttributeRule struct {
	Kind              AttributeKind
	Weight            float64
	Diversity         DiversityMode
	RequiredValues    []int    // 每个队伍中必须出现的取值
	IncompatiblePairs [][2]int // 不能出现在同一队伍中的取值对
}

func (a *AttributeRule) hasRules() bool {
	return len(a.RequiredValues) > 0 || len(a.IncompatiblePairs) > 0
}

// ScoringConfig: 一次运行中不可变的评分配置
type ScoringConfig struct {
	Attributes []AttributeRule

	ScheduleWeight     float64
	BlocksPerDay       int     // 每天的时间块数量（半小时粒度为 48）
	MinOverlap         int     // 少于这个数量的共同空闲时间段会被惩罚
	DesiredOverlap     int     // 超过这个数量的部分按 ExtraOverlapCredit 递减计分
	MeetingBlockSize   int     // 一次会议需要的连续时间块数量
	ExtraOverlapCredit float64 // 超出部分每多一个时间段，得分乘以这个比例，取值 [0, 0.5]

	IsolatedWomenPrevented     bool
	IsolatedMenPrevented       bool
	IsolatedNonbinaryPrevented bool
	IsolatedURMPrevented       bool
	SingleGenderPrevented      bool

	RequestedTeammatesNeeded int // 每个学生至少需要满足的期望队友数量

	PenaltyPoint float64 // 每个惩罚点扣除的归一化分数
}

// DefaultScoringConfig 返回不含属性规则的默认评分配置
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		ScheduleWeight:           1,
		BlocksPerDay:             48,
		MinOverlap:               4,
		DesiredOverlap:           8,
		MeetingBlockSize:         2,
		ExtraOverlapCredit:       0.5,
		RequestedTeammatesNeeded: 1,
		PenaltyPoint:             1,
	}
}

// TeamSizePlan: 各队伍的人数，总和等于学生人数
type TeamSizePlan []int

func (p TeamSizePlan) Total() int {
	total := 0
	for _, size := range p {
		total += size
	}
	return total
}

// Genome: 学生下标的一个排列，按 TeamSizePlan 切分成队伍
type Genome []int

// TeamScores: 一个基因组的评分结果
type TeamScores struct {
	Scores    []float64
	Penalties []int
	Fitness   float64
}

func (ts *TeamScores) TotalPenalties() int {
	total := 0
	for _, p := range ts.Penalties {
		total += p
	}
	return total
}

type TerminationReason string

const (
	ReachedMaxGenerations TerminationReason = "max_generations"
	StabilityDetected     TerminationReason = "stable"
	Cancelled             TerminationReason = "cancelled"
)

// Progress: 每一代结束时推送给调用方的进度
type Progress struct {
	Generation         int     `json:"generation"`
	BestFitness        float64 `json:"bestFitness"`
	Stable             bool    `json:"stable"`
	UnpenalizedPresent bool    `json:"unpenalizedPresent"`
}

// Result: 优化结束后的最佳分组
type Result struct {
	Genome      Genome
	Teams       [][]int64 // 按队伍拆分后的学生 ID
	Plan        TeamSizePlan
	Scores      TeamScores
	Generations int
	Reason      TerminationReason
}
