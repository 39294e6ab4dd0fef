package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sysu-ecnc-dev/team-former/backend/internal/config"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/connect"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/handler"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/repository"
	"golang.org/x/crypto/bcrypt"

	"github.com/jackc/pgx/v5/pgconn"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := connect.Postgres(cfg)
	if err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}
	defer dbpool.Close()

	/**********************************************
	 * 创建 repository
	 **********************************************/
	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 确保数据库中存在初始管理员
	 **********************************************/
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.InitialAdmin.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("无法生成初始管理员密码哈希", "error", err)
		return
	}
	initialAdmin := &domain.User{
		Username:     cfg.InitialAdmin.Username,
		PasswordHash: string(passwordHash),
		FullName:     cfg.InitialAdmin.FullName,
		Email:        cfg.InitialAdmin.Email,
		Role:         domain.RoleAdmin,
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.QueryTimeout)*time.Second)
	defer cancel()
	if err := repo.CreateUser(ctx, initialAdmin); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "users_username_key":
				// 如果返回这个错误，说明数据库中已经存在初始管理员，不处理
			default:
				logger.Error("无法创建初始管理员", "error", err)
				return
			}
		default:
			logger.Error("无法创建初始管理员", "error", err)
			return
		}
	}

	/**********************************************
	 * 连接 rabbitmq
	 **********************************************/
	// api 只负责发送，两个队列都在这里声明
	conn, ch, err := connect.RabbitMQ(cfg, domain.EmailQueue, domain.TeamingQueue)
	if err != nil {
		logger.Error("无法连接到 rabbitmq", "error", err)
		return
	}
	defer conn.Close()
	defer ch.Close()

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb, err := connect.Redis(cfg)
	if err != nil {
		logger.Error("无法连接到 redis", "error", err)
		return
	}
	defer rdb.Close()

	/**********************************************
	 * 创建 handler
	 **********************************************/
	handler, err := handler.NewHandler(cfg, repo, ch, rdb)
	if err != nil {
		logger.Error("无法创建 handler", "error", err)
		return
	}
	handler.RegisterRoutes()

	/**********************************************
	 * 启动 HTTP 服务器
	 **********************************************/
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      handler.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("正在启动服务器...", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("无法启动服务器", "error", err)
			return
		}
	}()

	<-quit
	logger.Info("正在关闭服务器...")

	ctx, cancel = context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("关闭服务器失败", "error", err)
	}
	logger.Info("服务器已成功关闭")
}
