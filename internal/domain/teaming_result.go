package domain

import (
	"time"

	"github.com/sysu-ecnc-dev/team-former/backend/internal/teaming"
)

type TeamingResultTeam struct {
	Index      int     `json:"index"`
	StudentIDs []int64 `json:"studentIDs"` // StudentRecord 的 ID
	Score      float64 `json:"score"`
	Penalties  int     `json:"penalties"`
}

type TeamingResult struct {
	ID          int64                     `json:"id"`
	JobID       int64                     `json:"jobID"`
	Teams       []TeamingResultTeam       `json:"teams"`
	Fitness     float64                   `json:"fitness"`
	Generations int                       `json:"generations"`
	Reason      teaming.TerminationReason `json:"reason"`
	Seed        int64                     `json:"seed"`
	CreatedAt   time.Time                 `json:"createdAt"`
	Version     int32                     `json:"-"`
}
