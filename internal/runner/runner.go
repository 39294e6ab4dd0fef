package runner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/teaming"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/utils"
	"golang.org/x/sync/errgroup"
)

// Store: worker 需要的持久化操作，由 *repository.Repository 实现
type Store interface {
	GetTeamingJobByID(ctx context.Context, id int64) (*domain.TeamingJob, error)
	UpdateTeamingJob(ctx context.Context, job *domain.TeamingJob) error
	GetRosterByID(ctx context.Context, id int64) (*domain.Roster, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	InsertTeamingResult(ctx context.Context, result *domain.TeamingResult) error
}

// ProgressStore 保存运行中的进度和取消标记
type ProgressStore interface {
	SetProgress(ctx context.Context, jobID int64, p teaming.Progress) error
	Cancelled(ctx context.Context, jobID int64) (bool, error)
	Clear(ctx context.Context, jobID int64) error
}

type Notifier interface {
	Notify(ctx context.Context, msg domain.MailMessage) error
}

type Options struct {
	CancelPollInterval time.Duration
	ProgressBuffer     int
}

type Runner struct {
	store    Store
	progress ProgressStore
	notifier Notifier
	opts     Options
}

func New(store Store, progress ProgressStore, notifier Notifier, opts Options) *Runner {
	if opts.CancelPollInterval <= 0 {
		opts.CancelPollInterval = 2 * time.Second
	}
	if opts.ProgressBuffer < 1 {
		opts.ProgressBuffer = 1
	}
	return &Runner{
		store:    store,
		progress: progress,
		notifier: notifier,
		opts:     opts,
	}
}

// Run 处理一个分组任务
// 返回 nil 表示消息可以确认；返回错误时任务没有进入终态，可以重新投递
func (rn *Runner) Run(ctx context.Context, jobID int64) error {
	job, err := rn.store.GetTeamingJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Warn("分组任务不存在，忽略", "jobID", jobID)
			return nil
		}
		return err
	}
	if job.Status.Finished() {
		slog.Info("分组任务已结束，忽略", "jobID", jobID, "status", job.Status)
		return nil
	}

	cancelled, err := rn.progress.Cancelled(ctx, job.ID)
	if err != nil {
		return err
	}
	if cancelled {
		return rn.finish(ctx, job, "", domain.TeamingJobCancelled, "任务在开始前被取消", nil)
	}

	roster, err := rn.store.GetRosterByID(ctx, job.RosterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rn.finish(ctx, job, "", domain.TeamingJobFailed, "名单不存在", nil)
		}
		return err
	}

	engine, err := newEngine(roster, job)
	if err != nil {
		return rn.finish(ctx, job, roster.Name, domain.TeamingJobFailed, err.Error(), nil)
	}

	now := time.Now()
	job.Status = domain.TeamingJobRunning
	job.StartedAt = &now
	if err := rn.store.UpdateTeamingJob(ctx, job); err != nil {
		return fmt.Errorf("无法标记任务为运行中: %w", err)
	}

	slog.Info("开始分组", "jobID", job.ID, "students", engine.Roster().Len(), "teams", len(job.TeamSizes), "seed", engine.Parameters().Seed)

	result, err := rn.runEngine(ctx, job.ID, engine)
	if err != nil {
		return rn.finish(ctx, job, roster.Name, domain.TeamingJobFailed, err.Error(), nil)
	}
	// worker 正在退出，任务保持运行中状态等待重新投递
	if ctx.Err() != nil {
		return ctx.Err()
	}

	saved := utils.BuildTeamingResult(job.ID, engine.Parameters().Seed, result)
	if err := rn.store.InsertTeamingResult(ctx, saved); err != nil {
		return fmt.Errorf("无法保存分组结果: %w", err)
	}

	status := domain.TeamingJobCompleted
	message := "分组完成"
	if result.Reason == teaming.Cancelled {
		status = domain.TeamingJobCancelled
		message = "任务被取消，已保存当前最好的分组"
	}
	job.Generations = result.Generations
	job.Reason = result.Reason
	return rn.finish(ctx, job, roster.Name, status, message, saved)
}

func newEngine(roster *domain.Roster, job *domain.TeamingJob) (*teaming.Engine, error) {
	students := roster.StudentsInSection(job.Section)
	if len(students) == 0 {
		return nil, fmt.Errorf("班级 %s 中没有学生", job.Section)
	}
	if err := utils.ValidateScoringOptions(roster, &job.Scoring); err != nil {
		return nil, err
	}

	plan, err := teaming.NewCustomPlan(len(students), job.TeamSizes)
	if err != nil {
		return nil, err
	}
	return teaming.New(utils.BuildTeamingStudents(students), plan, utils.BuildScoringConfig(roster, &job.Scoring), job.Parameters)
}

// runEngine 运行引擎，同时把进度写入 ProgressStore 并轮询取消标记
func (rn *Runner) runEngine(ctx context.Context, jobID int64, engine *teaming.Engine) (*teaming.Result, error) {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	progress := make(chan teaming.Progress, rn.opts.ProgressBuffer)
	done := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error {
		for p := range progress {
			if err := rn.progress.SetProgress(ctx, jobID, p); err != nil {
				slog.Warn("无法保存分组进度", "jobID", jobID, "error", err)
			}
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(rn.opts.CancelPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return nil
			case <-ticker.C:
				cancelled, err := rn.progress.Cancelled(ctx, jobID)
				if err != nil {
					slog.Warn("无法读取取消标记", "jobID", jobID, "error", err)
					continue
				}
				if cancelled {
					slog.Info("收到取消请求", "jobID", jobID)
					cancelRun()
					return nil
				}
			}
		}
	})

	result, err := engine.Run(runCtx, progress)
	close(progress)
	close(done)
	_ = g.Wait()

	return result, err
}

func (rn *Runner) finish(ctx context.Context, job *domain.TeamingJob, rosterName string, status domain.TeamingJobStatus, message string, result *domain.TeamingResult) error {
	now := time.Now()
	job.Status = status
	job.Message = message
	job.FinishedAt = &now
	if err := rn.store.UpdateTeamingJob(ctx, job); err != nil {
		return fmt.Errorf("无法更新任务状态: %w", err)
	}

	if err := rn.progress.Clear(ctx, job.ID); err != nil {
		slog.Warn("无法清除取消标记", "jobID", job.ID, "error", err)
	}

	slog.Info("分组任务结束", "jobID", job.ID, "status", status, "generations", job.Generations, "reason", job.Reason)
	rn.notify(ctx, job, rosterName, result)
	return nil
}

// notify 通知任务的创建者，失败时只记录日志
func (rn *Runner) notify(ctx context.Context, job *domain.TeamingJob, rosterName string, result *domain.TeamingResult) {
	user, err := rn.store.GetUserByID(ctx, job.CreatedBy)
	if err != nil {
		slog.Warn("无法获取任务创建者", "jobID", job.ID, "userID", job.CreatedBy, "error", err)
		return
	}

	data := domain.TeamingCompleteMailData{
		FullName:    user.FullName,
		RosterName:  rosterName,
		Section:     job.Section,
		JobID:       job.ID,
		Status:      job.Status,
		Message:     job.Message,
		Generations: job.Generations,
	}
	if result != nil {
		data.NumTeams = len(result.Teams)
		data.Fitness = result.Fitness
	}

	msg := domain.MailMessage{
		Type: domain.MailTypeTeamingComplete,
		To:   user.Email,
		Data: data,
	}
	if err := rn.notifier.Notify(ctx, msg); err != nil {
		slog.Warn("无法发送分组完成通知", "jobID", job.ID, "error", err)
	}
}
