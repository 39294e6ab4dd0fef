package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
)

const teamingJobColumns = `
	id,
	roster_id,
	section,
	team_sizes,
	scoring,
	parameters,
	status,
	message,
	generations,
	reason,
	COALESCE(created_by, 0),
	created_at,
	started_at,
	finished_at,
	version
`

func teamingJobDst(job *domain.TeamingJob) []any {
	return []any{
		&job.ID,
		&job.RosterID,
		&job.Section,
		jsonColumn{&job.TeamSizes},
		jsonColumn{&job.Scoring},
		jsonColumn{&job.Parameters},
		&job.Status,
		&job.Message,
		&job.Generations,
		&job.Reason,
		&job.CreatedBy,
		&job.CreatedAt,
		&job.StartedAt,
		&job.FinishedAt,
		&job.Version,
	}
}

func (r *Repository) CreateTeamingJob(ctx context.Context, job *domain.TeamingJob) error {
	query := `
		INSERT INTO teaming_jobs (roster_id, section, team_sizes, scoring, parameters, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, version
	`

	args := []any{job.RosterID, job.Section}
	for _, v := range []any{job.TeamSizes, job.Scoring, job.Parameters} {
		encoded, err := jsonb(v)
		if err != nil {
			return err
		}
		args = append(args, encoded)
	}
	args = append(args, job.Status, job.CreatedBy)

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&job.ID, &job.CreatedAt, &job.Version)
}

func (r *Repository) GetTeamingJobByID(ctx context.Context, id int64) (*domain.TeamingJob, error) {
	query := `SELECT ` + teamingJobColumns + ` FROM teaming_jobs WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	job := &domain.TeamingJob{}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(teamingJobDst(job)...); err != nil {
		return nil, err
	}

	return job, nil
}

func (r *Repository) GetTeamingJobsByRosterID(ctx context.Context, rosterID int64) ([]*domain.TeamingJob, error) {
	query := `SELECT ` + teamingJobColumns + ` FROM teaming_jobs WHERE roster_id = $1 ORDER BY id DESC`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, rosterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]*domain.TeamingJob, 0)
	for rows.Next() {
		job := &domain.TeamingJob{}
		if err := rows.Scan(teamingJobDst(job)...); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return jobs, nil
}

// UpdateTeamingJob 只更新任务的运行状态，版本号不一致时返回 sql.ErrNoRows
func (r *Repository) UpdateTeamingJob(ctx context.Context, job *domain.TeamingJob) error {
	query := `
		UPDATE teaming_jobs
		SET
			status = $1,
			message = $2,
			generations = $3,
			reason = $4,
			started_at = $5,
			finished_at = $6,
			version = version + 1
		WHERE id = $7 AND version = $8
		RETURNING version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{job.Status, job.Message, job.Generations, job.Reason, job.StartedAt, job.FinishedAt, job.ID, job.Version}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&job.Version)
}
