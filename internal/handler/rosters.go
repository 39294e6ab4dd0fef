package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/teaming"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/utils"
)

func (h *Handler) CreateRoster(w http.ResponseWriter, r *http.Request) {
	sub := r.Context().Value(SubCtxKey).(string)
	createdBy, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	var req struct {
		Name         string `json:"name" validate:"required"`
		Description  string `json:"description"`
		BlocksPerDay int    `json:"blocksPerDay" validate:"required,min=1,max=64"`
		Attributes   []struct {
			Name    string                `json:"name" validate:"required"`
			Kind    teaming.AttributeKind `json:"kind" validate:"required,oneof=ordered multiordered categorical multicategorical timezone"`
			Options []string              `json:"options"`
		} `json:"attributes" validate:"dive"`
		Students []struct {
			StudentNumber string           `json:"studentNumber" validate:"required"`
			FullName      string           `json:"fullName"`
			Email         string           `json:"email" validate:"omitempty,email"`
			Section       string           `json:"section"`
			Genders       []teaming.Gender `json:"genders"`
			URM           bool             `json:"urm"`
			Attributes    [][]int          `json:"attributes"`
			Availability  [][]int          `json:"availability" validate:"max=7"`
			RequiredWith  []string         `json:"requiredWith"`
			PreventedWith []string         `json:"preventedWith"`
			RequestedWith []string         `json:"requestedWith"`
		} `json:"students" validate:"required,min=2,dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	roster := &domain.Roster{
		Name:         req.Name,
		Description:  req.Description,
		BlocksPerDay: req.BlocksPerDay,
		Attributes:   make([]domain.AttributeDefinition, 0, len(req.Attributes)),
		Students:     make([]domain.StudentRecord, 0, len(req.Students)),
		CreatedBy:    createdBy,
	}
	for _, attr := range req.Attributes {
		roster.Attributes = append(roster.Attributes, domain.AttributeDefinition{
			Name:    attr.Name,
			Kind:    attr.Kind,
			Options: attr.Options,
		})
	}
	for _, student := range req.Students {
		roster.Students = append(roster.Students, domain.StudentRecord{
			StudentNumber: student.StudentNumber,
			FullName:      student.FullName,
			Email:         student.Email,
			Section:       student.Section,
			Genders:       student.Genders,
			URM:           student.URM,
			Attributes:    student.Attributes,
			Availability:  student.Availability,
			RequiredWith:  student.RequiredWith,
			PreventedWith: student.PreventedWith,
			RequestedWith: student.RequestedWith,
		})
	}

	if err := utils.ValidateRosterAttributes(roster); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateRosterStudents(roster); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.CreateRoster(r.Context(), roster); err != nil {
		if !h.constraintViolation(w, r, err) {
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "创建名单成功", roster)
}

func (h *Handler) GetAllRosters(w http.ResponseWriter, r *http.Request) {
	rosters, err := h.repository.GetAllRosters(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取名单列表成功", rosters)
}

func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	roster := r.Context().Value(RosterCtx).(*domain.Roster)
	h.successResponse(w, r, "获取名单成功", roster)
}

func (h *Handler) DeleteRoster(w http.ResponseWriter, r *http.Request) {
	roster := r.Context().Value(RosterCtx).(*domain.Roster)

	if err := h.repository.DeleteRoster(r.Context(), roster.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "名单不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除名单成功", nil)
}

// GetTeamSizeOptions 根据理想人数给出两种队伍划分，section 为空时使用整个名单
func (h *Handler) GetTeamSizeOptions(w http.ResponseWriter, r *http.Request) {
	roster := r.Context().Value(RosterCtx).(*domain.Roster)

	idealSize, err := strconv.Atoi(r.URL.Query().Get("idealSize"))
	if err != nil {
		h.errorResponse(w, r, "理想人数无效")
		return
	}

	section := r.URL.Query().Get("section")
	students := roster.StudentsInSection(section)
	if len(students) == 0 {
		h.errorResponse(w, r, "班级不存在")
		return
	}

	options, err := teaming.PlanTeamSizes(len(students), idealSize)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.successResponse(w, r, "获取队伍划分成功", map[string]any{
		"numStudents": len(students),
		"smaller":     options.Smaller,
		"larger":      options.Larger,
		"divisible":   options.Divisible(),
	})
}
