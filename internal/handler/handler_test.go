package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/config"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/teaming"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 1
	h, err := NewHandler(cfg, nil, nil, nil)
	require.NoError(t, err)
	return h
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func signedToken(t *testing.T, secret string, userID int64, role domain.Role) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Subject:   strconv.FormatInt(userID, 10),
		},
	})
	ss, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return ss
}

func TestAuthRejectsMissingCookie(t *testing.T) {
	h := newTestHandler(t)
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	h.auth(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rosters", nil))

	require.False(t, called)
	resp := decode(t, rec)
	require.False(t, resp.Success)
	require.Equal(t, "用户未登录", resp.Message)
}

func TestAuthRejectsForeignToken(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/rosters", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: signedToken(t, "other-secret", 1, domain.RoleAdmin)})

	rec := httptest.NewRecorder()
	h.auth(http.NotFoundHandler()).ServeHTTP(rec, req)

	require.Equal(t, "无效的令牌", decode(t, rec).Message)
}

func TestAuthAndRequiredRole(t *testing.T) {
	h := newTestHandler(t)
	var sub string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub = r.Context().Value(SubCtxKey).(string)
		h.successResponse(w, r, "ok", nil)
	})
	chain := h.auth(h.RequiredRole([]domain.Role{domain.RoleInstructor, domain.RoleAdmin})(next))

	req := httptest.NewRequest(http.MethodPost, "/rosters", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: signedToken(t, "test-secret", 9, domain.RoleInstructor)})
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	require.True(t, decode(t, rec).Success)
	require.Equal(t, "9", sub)

	req = httptest.NewRequest(http.MethodPost, "/rosters", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: signedToken(t, "test-secret", 10, domain.RoleAssistant)})
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	require.Equal(t, "权限不足", decode(t, rec).Message)
}

func TestTeamSizeOptions(t *testing.T) {
	h := newTestHandler(t)
	roster := &domain.Roster{ID: 1}
	for i := 0; i < 14; i++ {
		section := "1班"
		if i >= 11 {
			section = "2班"
		}
		roster.Students = append(roster.Students, domain.StudentRecord{ID: int64(i + 1), Section: section})
	}

	get := func(query string) Response {
		req := httptest.NewRequest(http.MethodGet, "/rosters/1/team-sizes?"+query, nil)
		req = req.WithContext(context.WithValue(req.Context(), RosterCtx, roster))
		rec := httptest.NewRecorder()
		h.GetTeamSizeOptions(rec, req)
		return decode(t, rec)
	}

	resp := get("idealSize=4&section=1班")
	require.True(t, resp.Success, resp.Message)
	data := resp.Data.(map[string]any)
	require.EqualValues(t, 11, data["numStudents"])
	require.Equal(t, []any{6.0, 5.0}, data["larger"])
	require.Equal(t, []any{4.0, 4.0, 3.0}, data["smaller"])
	require.Equal(t, false, data["divisible"])

	resp = get("idealSize=7")
	require.True(t, resp.Success)
	require.Equal(t, true, resp.Data.(map[string]any)["divisible"])

	require.False(t, get("idealSize=4&section=3班").Success)
	require.False(t, get("idealSize=abc").Success)
	require.False(t, get("idealSize=8").Success)
}

func TestBadRequestTranslatesValidationErrors(t *testing.T) {
	h := newTestHandler(t)
	var req struct {
		Username string `json:"username" validate:"required"`
	}
	err := h.validate.Struct(req)
	require.Error(t, err)

	rec := httptest.NewRecorder()
	h.badRequest(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil), err)
	resp := decode(t, rec)
	require.False(t, resp.Success)
	require.Contains(t, resp.Message, "Username")
	require.Contains(t, resp.Message, "必填")
}

func TestCreateTeamingJobRejectsOversizedParameters(t *testing.T) {
	h := newTestHandler(t)
	defaults := teaming.DefaultParameters()
	h.config.Teaming.PopulationSize = defaults.PopulationSize
	h.config.Teaming.TournamentSize = defaults.TournamentSize
	h.config.Teaming.NumElites = defaults.NumElites
	h.config.Teaming.RandomInjection = defaults.RandomInjection
	h.config.Teaming.TopGenomeLikelihood = defaults.TopGenomeLikelihood
	h.config.Teaming.MutationLikelihood = defaults.MutationLikelihood
	h.config.Teaming.MinGenerations = defaults.MinGenerations
	h.config.Teaming.MaxGenerations = defaults.MaxGenerations
	h.config.Teaming.StabilityWindow = defaults.StabilityWindow
	h.config.Teaming.StabilityThreshold = defaults.StabilityThreshold
	h.config.Teaming.AncestorGenerations = defaults.AncestorGenerations

	roster := &domain.Roster{ID: 1}
	for i := 0; i < 4; i++ {
		roster.Students = append(roster.Students, domain.StudentRecord{ID: int64(i + 1), Section: "1班"})
	}

	// 参数在入队之前就被拒绝，不会访问数据库和队列
	for name, params := range map[string]string{
		"populationSize": `{"populationSize":1000000000}`,
		"generations":    `{"maxGenerations":1000000000000000}`,
		"workers":        `{"workers":100000}`,
	} {
		t.Run(name, func(t *testing.T) {
			body := `{"teamSizes":[2,2],"parameters":` + params + `}`
			req := httptest.NewRequest(http.MethodPost, "/rosters/1/teaming-jobs", strings.NewReader(body))
			ctx := context.WithValue(req.Context(), RosterCtx, roster)
			ctx = context.WithValue(ctx, MyInfoCtx, &domain.User{ID: 1})
			rec := httptest.NewRecorder()
			h.CreateTeamingJob(rec, req.WithContext(ctx))

			resp := decode(t, rec)
			require.False(t, resp.Success)
			require.Contains(t, resp.Message, name)
		})
	}
}

func TestConstraintViolation(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	err := fmt.Errorf("插入失败: %w", &pgconn.PgError{Code: "23505", ConstraintName: "rosters_name_key"})
	require.True(t, h.constraintViolation(rec, httptest.NewRequest(http.MethodPost, "/rosters", nil), err))
	require.Equal(t, "名单名称已存在", decode(t, rec).Message)

	rec = httptest.NewRecorder()
	require.False(t, h.constraintViolation(rec, httptest.NewRequest(http.MethodPost, "/rosters", nil), &pgconn.PgError{ConstraintName: "other_key"}))
	require.False(t, h.constraintViolation(rec, httptest.NewRequest(http.MethodPost, "/rosters", nil), errors.New("boom")))
	require.Zero(t, rec.Body.Len())
}

func TestFilterUsersByRole(t *testing.T) {
	users := []*domain.User{
		{ID: 1, Role: domain.RoleAdmin},
		{ID: 2, Role: domain.RoleInstructor},
		{ID: 3, Role: domain.RoleAssistant},
		{ID: 4, Role: domain.RoleInstructor},
	}
	instructors := filterUsersByRole(users, domain.RoleInstructor)
	require.Len(t, instructors, 2)
	require.Equal(t, int64(2), instructors[0].ID)
	require.Equal(t, int64(4), instructors[1].ID)
}

func TestDeleteUserRejectsSelf(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodDelete, "/users/5", nil)
	ctx := context.WithValue(req.Context(), UserInfoCtx, &domain.User{ID: 5})
	ctx = context.WithValue(ctx, SubCtxKey, "5")

	rec := httptest.NewRecorder()
	h.DeleteUser(rec, req.WithContext(ctx))
	require.Equal(t, "不能删除自己的账户", decode(t, rec).Message)
}
