package domain

import (
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/team-former/backend/internal/teaming"
)

type TeamingJobStatus string

const (
	TeamingJobPending   TeamingJobStatus = "pending"
	TeamingJobRunning   TeamingJobStatus = "running"
	TeamingJobCompleted TeamingJobStatus = "completed"
	TeamingJobCancelled TeamingJobStatus = "cancelled"
	TeamingJobFailed    TeamingJobStatus = "failed"
)

// Finished 表示任务已经不会再被 worker 处理
func (s TeamingJobStatus) Finished() bool {
	return s == TeamingJobCompleted || s == TeamingJobCancelled || s == TeamingJobFailed
}

type AttributeScoring struct {
	Weight            float64               `json:"weight" validate:"min=0"`
	Diversity         teaming.DiversityMode `json:"diversity" validate:"required,oneof=heterogeneous homogeneous ignored"`
	RequiredValues    []int                 `json:"requiredValues" validate:"dive,min=0"`
	IncompatiblePairs [][2]int              `json:"incompatiblePairs"`
}

// ScoringOptions: 提交任务时的评分配置，属性的类型来自名单
type ScoringOptions struct {
	Attributes                 []AttributeScoring `json:"attributes" validate:"dive"`
	ScheduleWeight             float64            `json:"scheduleWeight" validate:"min=0"`
	MinOverlap                 int                `json:"minOverlap" validate:"min=0"`
	DesiredOverlap             int                `json:"desiredOverlap" validate:"min=1,gtefield=MinOverlap"`
	MeetingBlockSize           int                `json:"meetingBlockSize" validate:"min=1"`
	ExtraOverlapCredit         float64            `json:"extraOverlapCredit" validate:"min=0,max=0.5"`
	IsolatedWomenPrevented     bool               `json:"isolatedWomenPrevented"`
	IsolatedMenPrevented       bool               `json:"isolatedMenPrevented"`
	IsolatedNonbinaryPrevented bool               `json:"isolatedNonbinaryPrevented"`
	IsolatedURMPrevented       bool               `json:"isolatedURMPrevented"`
	SingleGenderPrevented      bool               `json:"singleGenderPrevented"`
	RequestedTeammatesNeeded   int                `json:"requestedTeammatesNeeded" validate:"min=0"`
	PenaltyPoint               float64            `json:"penaltyPoint" validate:"gt=0"`
}

type TeamingJob struct {
	ID          int64                     `json:"id"`
	RosterID    int64                     `json:"rosterID"`
	Section     string                    `json:"section"` // 为空表示整个名单一起分组
	TeamSizes   []int                     `json:"teamSizes"`
	Scoring     ScoringOptions            `json:"scoring"`
	Parameters  teaming.Parameters        `json:"parameters"`
	Status      TeamingJobStatus          `json:"status"`
	Message     string                    `json:"message"`
	Generations int                       `json:"generations"`
	Reason      teaming.TerminationReason `json:"reason"`
	CreatedBy   int64                     `json:"createdBy"`
	CreatedAt   time.Time                 `json:"createdAt"`
	StartedAt   *time.Time                `json:"startedAt"`
	FinishedAt  *time.Time                `json:"finishedAt"`
	Version     int32                     `json:"-"`
}

// TeamingJobMessage: 发送到 teaming_queue 的消息
type TeamingJobMessage struct {
	JobID int64 `json:"jobID"`
}

func TeamingProgressKey(jobID int64) string {
	return fmt.Sprintf("teaming_job_%d_progress", jobID)
}

func TeamingCancelKey(jobID int64) string {
	return fmt.Sprintf("teaming_job_%d_cancel", jobID)
}
