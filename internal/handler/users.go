package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

var assignableRoles = []domain.Role{domain.RoleAssistant, domain.RoleInstructor, domain.RoleAdmin}

// GetAllUserInfo 支持 ?role= 只列出某种角色，例如提交任务前挑选教师
func (h *Handler) GetAllUserInfo(w http.ResponseWriter, r *http.Request) {
	users, err := h.repository.GetAllUsers(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if role := r.URL.Query().Get("role"); role != "" {
		if !slices.Contains(assignableRoles, domain.Role(role)) {
			h.errorResponse(w, r, "角色不存在")
			return
		}
		users = filterUsersByRole(users, domain.Role(role))
	}

	h.successResponse(w, r, "获取用户列表成功", users)
}

func filterUsersByRole(users []*domain.User, role domain.Role) []*domain.User {
	return slices.DeleteFunc(users, func(u *domain.User) bool { return u.Role != role })
}

// CreateUser 使用随机密码创建账户，密码通过邮件发给用户本人
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required"`
		FullName string `json:"fullName" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Role     string `json:"role" validate:"required,oneof=助教 教师 管理员"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	password := utils.GenerateRandomPassword(h.config.NewUser.PasswordLength)
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user := &domain.User{
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
		FullName:     req.FullName,
		Email:        req.Email,
		Role:         domain.Role(req.Role),
	}
	if err := h.repository.CreateUser(r.Context(), user); err != nil {
		if !h.constraintViolation(w, r, err) {
			h.internalServerError(w, r, err)
		}
		return
	}

	// 账户已经创建，邮件没有进入队列时管理员可以重置密码
	mail := domain.MailMessage{
		Type: domain.MailTypeCreateUser,
		To:   user.Email,
		Data: domain.CreateUserMailData{FullName: user.FullName, Username: user.Username, Password: password},
	}
	if err := h.publishJSON(r.Context(), domain.EmailQueue, mail); err != nil {
		slog.Error("无法发送新用户邮件", "username", user.Username, "error", err)
	}

	h.successResponse(w, r, "用户创建成功", user)
}

func (h *Handler) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)
	h.successResponse(w, r, "获取用户信息成功", user)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName *string `json:"fullName" validate:"omitempty,min=1"`
		Email    *string `json:"email" validate:"omitempty,email"`
		Role     *string `json:"role" validate:"omitempty,oneof=助教 教师 管理员"`
		IsActive *bool   `json:"isActive"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user := r.Context().Value(UserInfoCtx).(*domain.User)
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Role != nil {
		user.Role = domain.Role(*req.Role)
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	h.saveUser(w, r, user, "更新用户信息成功", "更新用户信息失败，请重试")
}

// DeleteUser 不允许删除自己；用户创建的名单和任务保留，创建者置空
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)
	if strconv.FormatInt(user.ID, 10) == r.Context().Value(SubCtxKey).(string) {
		h.errorResponse(w, r, "不能删除自己的账户")
		return
	}

	if err := h.repository.DeleteUser(r.Context(), user.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除用户成功", nil)
}

// UpdateUserPassword 由管理员直接重置密码，规则与用户自己修改时相同
func (h *Handler) UpdateUserPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password" validate:"required,min=8"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user := r.Context().Value(UserInfoCtx).(*domain.User)
	user.PasswordHash = string(hashedPassword)
	h.saveUser(w, r, user, "修改密码成功", "修改密码失败，请重试")
}

// saveUser 写回用户，版本冲突时提示重试
func (h *Handler) saveUser(w http.ResponseWriter, r *http.Request, user *domain.User, okMsg, conflictMsg string) {
	err := h.repository.UpdateUser(r.Context(), user)
	switch {
	case err == nil:
		h.successResponse(w, r, okMsg, user)
	case errors.Is(err, sql.ErrNoRows):
		h.errorResponse(w, r, conflictMsg)
	case !h.constraintViolation(w, r, err):
		h.internalServerError(w, r, err)
	}
}
