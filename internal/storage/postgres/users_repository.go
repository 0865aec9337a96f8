package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gatherhub/server/internal/domain/users"
)

var _ users.Repository = (*UserRepository)(nil)

const userColumns = `id, email, password_hash, first_name, last_name, is_staff, is_superuser, created_at`

func (r *UserRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *UserRepository) Create(ctx context.Context, params users.CreateUserParams) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO users (email, password_hash, first_name, last_name, is_staff, is_superuser)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+userColumns,
		params.Email,
		params.PasswordHash,
		params.FirstName,
		params.LastName,
		params.IsStaff,
		params.IsSuperuser,
	)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, users.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, params users.UpdateUserParams) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `
UPDATE users
   SET email = COALESCE($2, email),
       password_hash = COALESCE($3, password_hash),
       first_name = COALESCE($4, first_name),
       last_name = COALESCE($5, last_name)
 WHERE id = $1
RETURNING `+userColumns,
		id,
		params.Email,
		params.PasswordHash,
		params.FirstName,
		params.LastName,
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}
		if isUniqueViolation(err) {
			return nil, users.ErrEmailTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*users.User, error) {
	var user users.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.IsStaff,
		&user.IsSuperuser,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
