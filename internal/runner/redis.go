package runner

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/teaming"
)

// RedisProgress 把进度和取消标记保存在 redis 中，api 从同样的 key 读取
type RedisProgress struct {
	client     *redis.Client
	expiration time.Duration
	timeout    time.Duration
}

func NewRedisProgress(client *redis.Client, expiration, timeout time.Duration) *RedisProgress {
	return &RedisProgress{
		client:     client,
		expiration: expiration,
		timeout:    timeout,
	}
}

func (p *RedisProgress) SetProgress(ctx context.Context, jobID int64, progress teaming.Progress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.client.Set(ctx, domain.TeamingProgressKey(jobID), data, p.expiration).Err()
}

func (p *RedisProgress) Cancelled(ctx context.Context, jobID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.client.Get(ctx, domain.TeamingCancelKey(jobID)).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

// Clear 删除取消标记，进度保留到过期为止
func (p *RedisProgress) Clear(ctx context.Context, jobID int64) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.client.Del(ctx, domain.TeamingCancelKey(jobID)).Err()
}
