package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/config"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/repository"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	mqChannel   *amqp.Channel
	redisClient *redis.Client

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, mqCh *amqp.Channel, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		mqChannel:   mqCh,
		redisClient: rdb,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/", h.UpdateUser)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Delete("/", h.DeleteUser)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/password", h.UpdateUserPassword)
			})
		})

		// 助教只能查看名单和分组结果
		staff := h.RequiredRole([]domain.Role{domain.RoleInstructor, domain.RoleAdmin})

		r.Route("/rosters", func(r chi.Router) {
			r.With(staff).Post("/", h.CreateRoster)
			r.Get("/", h.GetAllRosters)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.roster)
				r.Get("/", h.GetRoster)
				r.With(staff).Delete("/", h.DeleteRoster)
				r.Get("/team-sizes", h.GetTeamSizeOptions)
				r.Route("/teaming-jobs", func(r chi.Router) {
					r.Get("/", h.GetRosterTeamingJobs)
					r.With(staff).With(h.myInfo).Post("/", h.CreateTeamingJob)
				})
			})
		})

		r.Route("/teaming-jobs/{id}", func(r chi.Router) {
			r.Use(h.teamingJob)
			r.Get("/", h.GetTeamingJob)
			r.With(staff).Post("/cancel", h.CancelTeamingJob)
			r.Get("/result", h.GetTeamingResult)
		})
	})
}
