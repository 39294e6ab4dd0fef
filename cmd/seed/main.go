package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/team-former/backend/internal/config"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/connect"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/repository"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/seed"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/teaming"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/utils"
)

func main() {
	var op int
	var n int
	var sections int
	var file string
	var randomSeed int64

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机用户, 2: 插入随机名单, 3: 从 CSV 导入名单)")
	flag.IntVar(&n, "n", 5, "要插入的用户数量或随机名单中的学生数量")
	flag.IntVar(&sections, "sections", 1, "随机名单中的班级数量")
	flag.StringVar(&file, "file", "", "要导入的 CSV 文件，为空时使用配置中的 SEED_ROSTER_FILE")
	flag.Int64Var(&randomSeed, "seed", 0, "随机种子，0 表示使用当前时间")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", "error", err)
		os.Exit(1)
	}

	dbpool, err := connect.Postgres(cfg)
	if err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}
	defer dbpool.Close()

	repo := repository.NewRepository(cfg, dbpool)

	if randomSeed == 0 {
		randomSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(randomSeed))

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的用户数量")
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			user, err := utils.GenerateRandomUser(rng, cfg.Seed.User.Password, cfg.Email.UserDomain)
			if err != nil {
				slog.Error("无法生成随机用户", "error", err)
				continue
			}

			if err := repo.CreateUser(context.Background(), user); err != nil {
				slog.Error("无法插入用户", "username", user.Username, "error", err)
				continue
			}

			cnt++
		}

		slog.Info("插入用户成功", "count", cnt)
	case 2:
		if n < 2 || sections < 1 {
			slog.Error("请输入合法的学生数量和班级数量")
			return
		}

		roster := utils.GenerateRandomRoster(rng, n, sections, cfg.Email.UserDomain)
		if err := repo.CreateRoster(context.Background(), roster); err != nil {
			slog.Error("无法插入随机名单", "error", err)
			return
		}

		slog.Info("插入随机名单成功", "id", roster.ID, "name", roster.Name, "students", len(roster.Students), "seed", randomSeed)
	case 3:
		if file == "" {
			file = cfg.Seed.RosterFile
		}

		roster, err := seed.SeedRosterFromCSV(context.Background(), repo, file, teaming.DefaultScoringConfig().BlocksPerDay)
		if err != nil {
			slog.Error("无法导入名单", "file", file, "error", err)
			return
		}

		slog.Info("导入名单成功", "id", roster.ID, "name", roster.Name, "students", len(roster.Students))
	default:
		slog.Error("指定的操作非法")
	}
}
