package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/config"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/connect"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/repository"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/runner"
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
	 * 连接数据库、redis 和 RabbitMQ
	 **********************************************/
	dbpool, err := connect.Postgres(cfg)
	if err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}
	defer dbpool.Close()

	repo := repository.NewRepository(cfg, dbpool)

	rdb, err := connect.Redis(cfg)
	if err != nil {
		logger.Error("无法连接到 redis", "error", err)
		return
	}
	defer rdb.Close()

	// 完成通知会发送到 email_queue
	conn, ch, err := connect.RabbitMQ(cfg, domain.TeamingQueue, domain.EmailQueue)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", "error", err)
		return
	}
	defer conn.Close()
	defer ch.Close()

	// 分组任务会占满 CPU，每个 worker 同时只处理 Prefetch 个任务
	if err := ch.Qos(cfg.Worker.Prefetch, 0, false); err != nil {
		logger.Error("无法设置预取数量", "error", err)
		return
	}

	consumerTag := "teaming-worker-" + uuid.NewString()
	msgs, err := ch.Consume(
		domain.TeamingQueue,
		consumerTag,
		false, // 手动确认，任务结束后才 ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Error("无法消费消息", "error", err)
		return
	}

	operationTimeout := time.Duration(cfg.Redis.OperationExpiration) * time.Second
	rn := runner.New(
		repo,
		runner.NewRedisProgress(rdb, time.Duration(cfg.Worker.ProgressExpiration)*time.Second, operationTimeout),
		runner.NewMailNotifier(ch, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second),
		runner.Options{
			CancelPollInterval: time.Duration(cfg.Worker.CancelPollInterval) * time.Second,
			ProgressBuffer:     cfg.Worker.ProgressBuffer,
		},
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Error("消息通道已关闭")
					return
				}
				handleMessage(ctx, logger, rn, msg)
			}
		}
	}()

	logger.Info("等待分组任务...（按 CTRL+C 退出）", "consumer", consumerTag)
	<-sigChan

	slog.Info("正在关闭 teaming worker...")
	cancel()
	wg.Wait()
	slog.Info("teaming worker 已成功关闭")
}

func handleMessage(ctx context.Context, logger *slog.Logger, rn *runner.Runner, msg amqp.Delivery) {
	var jobMessage domain.TeamingJobMessage
	if err := json.Unmarshal(msg.Body, &jobMessage); err != nil {
		logger.Error("任务消息反序列化失败", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	logger.Info("收到分组任务", "jobID", jobMessage.JobID, "redelivered", msg.Redelivered)
	if err := rn.Run(ctx, jobMessage.JobID); err != nil {
		if ctx.Err() != nil {
			logger.Info("worker 正在退出，分组任务重新入队", "jobID", jobMessage.JobID)
			_ = msg.Nack(false, true)
			return
		}
		// 第一次失败时重新入队，再次失败就丢弃
		logger.Error("分组任务处理失败", "jobID", jobMessage.JobID, "error", err)
		_ = msg.Nack(false, !msg.Redelivered)
		return
	}

	_ = msg.Ack(false)
}
