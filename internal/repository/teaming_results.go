package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
)

// InsertTeamingResult 同一个任务只保留最新的一份结果
func (r *Repository) InsertTeamingResult(ctx context.Context, result *domain.TeamingResult) error {
	ctx, cancel := r.transactionContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM teaming_results WHERE job_id = $1`, result.JobID); err != nil {
		return err
	}

	teams, err := jsonb(result.Teams)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO teaming_results (job_id, teams, fitness, generations, reason, seed)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, version
	`
	args := []any{result.JobID, teams, result.Fitness, result.Generations, result.Reason, result.Seed}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&result.ID, &result.CreatedAt, &result.Version); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) GetTeamingResultByJobID(ctx context.Context, jobID int64) (*domain.TeamingResult, error) {
	query := `
		SELECT id, teams, fitness, generations, reason, seed, created_at, version
		FROM teaming_results WHERE job_id = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	result := &domain.TeamingResult{JobID: jobID}
	dst := []any{&result.ID, jsonColumn{&result.Teams}, &result.Fitness, &result.Generations, &result.Reason, &result.Seed, &result.CreatedAt, &result.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, jobID).Scan(dst...); err != nil {
		return nil, err
	}

	return result, nil
}
