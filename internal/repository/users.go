package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
)

const userColumns = `id, username, password_hash, full_name, email, role, is_active, created_at, version`

func userDst(user *domain.User) []any {
	return []any{&user.ID, &user.Username, &user.PasswordHash, &user.FullName, &user.Email, &user.Role, &user.IsActive, &user.CreatedAt, &user.Version}
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	user := &domain.User{}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(userDst(user)...); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	user := &domain.User{}
	if err := r.dbpool.QueryRowContext(ctx, query, username).Scan(userDst(user)...); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET
			password_hash = $1,
			full_name = $2,
			email = $3,
			role = $4,
			is_active = $5,
			version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING username, created_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{user.PasswordHash, user.FullName, user.Email, user.Role, user.IsActive, user.ID, user.Version}
	dst := []any{&user.Username, &user.CreatedAt, &user.Version}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...)
}

func (r *Repository) GetAllUsers(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user := &domain.User{}
		if err := rows.Scan(userDst(user)...); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, password_hash, full_name, email, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{user.Username, user.PasswordHash, user.FullName, user.Email, user.Role}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.Version)
}
