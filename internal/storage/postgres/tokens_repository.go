package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gatherhub/server/internal/domain/users"
)

var _ users.TokenRepository = (*TokenRepository)(nil)

func (r *TokenRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

// GetOrCreate is the atomic find-or-insert: the unique constraint on user_id
// makes concurrent logins by the same user converge on one token. The no-op
// DO UPDATE makes the winning row visible to RETURNING either way.
func (r *TokenRepository) GetOrCreate(ctx context.Context, userID, candidate string) (string, error) {
	var key string
	err := r.queryer().QueryRow(ctx, `
INSERT INTO auth_tokens (key, user_id)
VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET key = auth_tokens.key
RETURNING key
`, candidate, userID).Scan(&key)
	if err != nil {
		return "", fmt.Errorf("get or create token: %w", err)
	}
	return key, nil
}

func (r *TokenRepository) GetUserByToken(ctx context.Context, key string) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.is_staff, u.is_superuser, u.created_at
  FROM auth_tokens t
  JOIN users u ON u.id = t.user_id
 WHERE t.key = $1
`, key)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	return user, nil
}

func (r *TokenRepository) GetByUser(ctx context.Context, userID string) (string, error) {
	var key string
	err := r.queryer().QueryRow(ctx, `SELECT key FROM auth_tokens WHERE user_id = $1`, userID).Scan(&key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", users.ErrInvalidToken
		}
		return "", fmt.Errorf("lookup token by user: %w", err)
	}
	return key, nil
}

func (r *TokenRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.queryer().Exec(ctx, `DELETE FROM auth_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
