package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	amqp "github.com/rabbitmq/amqp091-go"
)

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("服务器内部错误", "method", r.Method, "path", r.URL.Path, "error", err)
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
		http.Error(w, "服务器内部错误", http.StatusInternalServerError)
	}
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, msg string) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: false,
		Message: msg,
		Data:    nil,
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		h.errorResponse(w, r, err.Error())
		return
	}

	h.errorResponse(w, r, validationErrors[0].Translate(h.translator))
}

// 唯一约束名到提示信息，约束名见 migrations
var constraintMessages = map[string]string{
	"users_username_key": "用户名已存在",
	"users_email_key":    "邮箱已存在",
	"rosters_name_key":   "名单名称已存在",

	"roster_students_roster_id_student_number_key": "学号重复",
}

// constraintViolation 在 err 违反了已知的唯一约束时写出提示并返回 true
func (h *Handler) constraintViolation(w http.ResponseWriter, r *http.Request, err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	msg, ok := constraintMessages[pgErr.ConstraintName]
	if !ok {
		return false
	}
	h.errorResponse(w, r, msg)
	return true
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.writeJSON(w, r, http.StatusInternalServerError, Response{
		Success: false,
		Message: "服务器内部错误",
		Data:    nil,
	})
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

// publishJSON 把 v 序列化后发送到指定的队列
func (h *Handler) publishJSON(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return h.mqChannel.PublishWithContext(
		ctx,
		"",
		queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
