package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/teaming"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/utils"
)

func (h *Handler) GetRosterTeamingJobs(w http.ResponseWriter, r *http.Request) {
	roster := r.Context().Value(RosterCtx).(*domain.Roster)

	jobs, err := h.repository.GetTeamingJobsByRosterID(r.Context(), roster.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取分组任务列表成功", jobs)
}

func (h *Handler) CreateTeamingJob(w http.ResponseWriter, r *http.Request) {
	roster := r.Context().Value(RosterCtx).(*domain.Roster)
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		Section      string          `json:"section"`
		TeamSizes    []int           `json:"teamSizes" validate:"required_without=IdealSize,dive,min=1"`
		IdealSize    int             `json:"idealSize" validate:"omitempty,min=1"`
		PreferLarger bool            `json:"preferLarger"` // 使用理想人数且无法整除时，选择人数较多的分法
		Scoring      json.RawMessage `json:"scoring"`      // 缺省时所有属性以权重 1 追求多样性
		Parameters   json.RawMessage `json:"parameters"`   // 只需要给出与默认值不同的参数
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	students := roster.StudentsInSection(req.Section)
	if len(students) == 0 {
		h.errorResponse(w, r, "班级不存在")
		return
	}

	scoring := utils.DefaultScoringOptions(roster)
	if len(req.Scoring) > 0 {
		if err := json.Unmarshal(req.Scoring, &scoring); err != nil {
			h.badRequest(w, r, err)
			return
		}
	}
	if err := h.validate.Struct(scoring); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateScoringOptions(roster, &scoring); err != nil {
		h.badRequest(w, r, err)
		return
	}

	params := h.config.TeamingParameters()
	if len(req.Parameters) > 0 {
		if err := json.Unmarshal(req.Parameters, &params); err != nil {
			h.badRequest(w, r, err)
			return
		}
	}

	teamSizes := req.TeamSizes
	if len(teamSizes) == 0 {
		options, err := teaming.PlanTeamSizes(len(students), req.IdealSize)
		if err != nil {
			h.badRequest(w, r, err)
			return
		}
		teamSizes = options.Smaller
		if req.PreferLarger {
			teamSizes = options.Larger
		}
	}

	// 在入队之前构造一次引擎，让所有配置错误都在这里返回给用户
	plan, err := teaming.NewCustomPlan(len(students), teamSizes)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	if _, err := teaming.New(utils.BuildTeamingStudents(students), plan, utils.BuildScoringConfig(roster, &scoring), params); err != nil {
		h.badRequest(w, r, err)
		return
	}

	job := &domain.TeamingJob{
		RosterID:   roster.ID,
		Section:    req.Section,
		TeamSizes:  plan,
		Scoring:    scoring,
		Parameters: params,
		Status:     domain.TeamingJobPending,
		CreatedBy:  myInfo.ID,
	}

	if err := h.repository.CreateTeamingJob(r.Context(), job); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.publishJSON(r.Context(), domain.TeamingQueue, domain.TeamingJobMessage{JobID: job.ID}); err != nil {
		// 没有进入队列的任务永远不会被处理，直接标记为失败
		now := time.Now()
		job.Status = domain.TeamingJobFailed
		job.Message = "任务无法进入队列"
		job.FinishedAt = &now
		if updateErr := h.repository.UpdateTeamingJob(r.Context(), job); updateErr != nil {
			slog.Error("无法更新分组任务状态", "jobID", job.ID, "error", updateErr)
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "分组任务已提交", job)
}

func (h *Handler) GetTeamingJob(w http.ResponseWriter, r *http.Request) {
	job := r.Context().Value(TeamingJobCtx).(*domain.TeamingJob)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	// 进度只在 worker 运行期间存在
	var progress *teaming.Progress
	data, err := h.redisClient.Get(ctx, domain.TeamingProgressKey(job.ID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		h.internalServerError(w, r, err)
		return
	default:
		progress = &teaming.Progress{}
		if err := json.Unmarshal(data, progress); err != nil {
			h.internalServerError(w, r, err)
			return
		}
	}

	h.successResponse(w, r, "获取分组任务成功", map[string]any{
		"job":      job,
		"progress": progress,
	})
}

// CancelTeamingJob 只设置取消标记，worker 在两代之间发现后结束并保存当前最好的分组
func (h *Handler) CancelTeamingJob(w http.ResponseWriter, r *http.Request) {
	job := r.Context().Value(TeamingJobCtx).(*domain.TeamingJob)

	if job.Status.Finished() {
		h.errorResponse(w, r, "分组任务已结束")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	expiration := time.Duration(h.config.Worker.ProgressExpiration) * time.Second
	if err := h.redisClient.Set(ctx, domain.TeamingCancelKey(job.ID), "1", expiration).Err(); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "已请求取消分组任务", nil)
}

type teamMember struct {
	ID            int64  `json:"id"`
	StudentNumber string `json:"studentNumber"`
	FullName      string `json:"fullName"`
	Email         string `json:"email"`
	Section       string `json:"section"`
}

type teamView struct {
	domain.TeamingResultTeam
	Members []teamMember `json:"members"`
}

func (h *Handler) GetTeamingResult(w http.ResponseWriter, r *http.Request) {
	job := r.Context().Value(TeamingJobCtx).(*domain.TeamingJob)

	result, err := h.repository.GetTeamingResultByJobID(r.Context(), job.ID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "分组结果不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	roster, err := h.repository.GetRosterByID(r.Context(), job.RosterID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	students := make(map[int64]*domain.StudentRecord, len(roster.Students))
	for i := range roster.Students {
		students[roster.Students[i].ID] = &roster.Students[i]
	}

	teams := make([]teamView, 0, len(result.Teams))
	for _, team := range result.Teams {
		view := teamView{TeamingResultTeam: team, Members: make([]teamMember, 0, len(team.StudentIDs))}
		for _, id := range team.StudentIDs {
			student, ok := students[id]
			if !ok {
				continue
			}
			view.Members = append(view.Members, teamMember{
				ID:            student.ID,
				StudentNumber: student.StudentNumber,
				FullName:      student.FullName,
				Email:         student.Email,
				Section:       student.Section,
			})
		}
		teams = append(teams, view)
	}

	h.successResponse(w, r, "获取分组结果成功", map[string]any{
		"result": result,
		"teams":  teams,
	})
}
