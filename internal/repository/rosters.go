package repository

import (
	"context"
	"database/sql"

	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
)

// CreateRoster 在一个事务中插入名单以及其中的所有学生
func (r *Repository) CreateRoster(ctx context.Context, roster *domain.Roster) error {
	ctx, cancel := r.transactionContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	attributes, err := jsonb(roster.Attributes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO rosters (name, description, blocks_per_day, attributes, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, version
	`
	// 通过 seed 导入的名单没有创建者
	createdBy := sql.NullInt64{Int64: roster.CreatedBy, Valid: roster.CreatedBy != 0}
	args := []any{roster.Name, roster.Description, roster.BlocksPerDay, attributes, createdBy}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&roster.ID, &roster.CreatedAt, &roster.Version); err != nil {
		return err
	}

	query = `
		INSERT INTO roster_students (
			roster_id,
			student_number,
			full_name,
			email,
			section,
			genders,
			urm,
			attributes,
			availability,
			required_with,
			prevented_with,
			requested_with
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range roster.Students {
		student := &roster.Students[i]
		student.RosterID = roster.ID

		args, err := studentArgs(student)
		if err != nil {
			return err
		}
		if err := stmt.QueryRowContext(ctx, args...).Scan(&student.ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func studentArgs(student *domain.StudentRecord) ([]any, error) {
	encoded := make([]any, 0, 6)
	for _, v := range []any{student.Genders, student.Attributes, student.Availability, student.RequiredWith, student.PreventedWith, student.RequestedWith} {
		column, err := jsonb(v)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, column)
	}

	args := []any{student.RosterID, student.StudentNumber, student.FullName, student.Email, student.Section, encoded[0], student.URM}
	return append(args, encoded[1:]...), nil
}

func (r *Repository) GetAllRosters(ctx context.Context) ([]*domain.RosterMeta, error) {
	query := `
		SELECT
			r.id,
			r.name,
			r.description,
			COALESCE(r.created_by, 0),
			r.created_at,
			COUNT(s.id),
			COALESCE(ARRAY_TO_JSON(ARRAY_AGG(DISTINCT s.section) FILTER (WHERE s.id IS NOT NULL)), '[]')
		FROM rosters r
		LEFT JOIN roster_students s ON s.roster_id = r.id
		GROUP BY r.id
		ORDER BY r.id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rosters := make([]*domain.RosterMeta, 0)
	for rows.Next() {
		meta := &domain.RosterMeta{}
		dst := []any{&meta.ID, &meta.Name, &meta.Description, &meta.CreatedBy, &meta.CreatedAt, &meta.NumStudents, jsonColumn{&meta.Sections}}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		rosters = append(rosters, meta)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rosters, nil
}

func (r *Repository) GetRosterByID(ctx context.Context, id int64) (*domain.Roster, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		SELECT name, description, blocks_per_day, attributes, COALESCE(created_by, 0), created_at, version
		FROM rosters WHERE id = $1
	`
	roster := &domain.Roster{ID: id}
	dst := []any{&roster.Name, &roster.Description, &roster.BlocksPerDay, jsonColumn{&roster.Attributes}, &roster.CreatedBy, &roster.CreatedAt, &roster.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	query = `
		SELECT
			id,
			student_number,
			full_name,
			email,
			section,
			genders,
			urm,
			attributes,
			availability,
			required_with,
			prevented_with,
			requested_with
		FROM roster_students
		WHERE roster_id = $1
		ORDER BY id
	`
	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roster.Students = make([]domain.StudentRecord, 0)
	for rows.Next() {
		student := domain.StudentRecord{RosterID: id}
		dst := []any{
			&student.ID,
			&student.StudentNumber,
			&student.FullName,
			&student.Email,
			&student.Section,
			jsonColumn{&student.Genders},
			&student.URM,
			jsonColumn{&student.Attributes},
			jsonColumn{&student.Availability},
			jsonColumn{&student.RequiredWith},
			jsonColumn{&student.PreventedWith},
			jsonColumn{&student.RequestedWith},
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		roster.Students = append(roster.Students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return roster, nil
}

// DeleteRoster 学生、分组任务和分组结果通过外键级联删除
func (r *Repository) DeleteRoster(ctx context.Context, id int64) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, `DELETE FROM rosters WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
