// Package connect 根据配置建立各个进程共用的外部连接
package connect

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres 创建连接池并 ping 一次
// sql.Open 只是创建连接池对象，并不会立即连接到数据库
func Postgres(cfg *config.Config) (*sql.DB, error) {
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("无法创建数据库连接池: %w", err)
	}

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()
	if err := dbpool.PingContext(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("无法连接到数据库: %w", err)
	}

	return dbpool, nil
}

func Redis(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Redis.ConnectTimeout)*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("无法连接到 redis: %w", err)
	}

	return rdb, nil
}

// RabbitMQ 建立连接和通道，并声明所有给出的持久化队列
// 调用方负责关闭返回的通道和连接
func RabbitMQ(cfg *config.Config, queues ...string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("无法连接到 rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("无法建立通道: %w", err)
	}

	for _, queue := range queues {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, nil, fmt.Errorf("无法声明队列 %s: %w", queue, err)
		}
	}

	return conn, ch, nil
}
