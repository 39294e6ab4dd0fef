package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/team-former/backend/internal/config"
)

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

// queryContext 为单条查询加上配置中的超时时间
func (r *Repository) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
}

func (r *Repository) transactionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
}

// jsonb 把 v 编码成字符串，作为 JSONB 列的参数
func jsonb(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// jsonColumn: 扫描 JSONB 列之后再解码到 dst
type jsonColumn struct {
	dst any
}

func (c jsonColumn) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, c.dst)
	case string:
		return json.Unmarshal([]byte(v), c.dst)
	default:
		return fmt.Errorf("不支持的 JSONB 列类型 %T", src)
	}
}
