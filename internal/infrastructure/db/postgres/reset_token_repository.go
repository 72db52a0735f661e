package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/insurex/insurance-auth/internal/core/domain"
)

// ResetTokenRepository stores at most one row per user, enforced by the
// unique user_id constraint.
type ResetTokenRepository struct {
	db DBTX
}

func NewResetTokenRepository(db DBTX) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

func (r *ResetTokenRepository) ReplaceForUser(ctx context.Context, t *domain.PasswordResetToken) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id := uuid.NewString()
	query := `
		INSERT INTO password_reset_tokens (id, token, user_id, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET id = EXCLUDED.id,
		    token = EXCLUDED.token,
		    expires_at = EXCLUDED.expires_at,
		    used = EXCLUDED.used,
		    created_at = EXCLUDED.created_at
	`
	if _, err := r.db.ExecContext(ctx, query, id, t.Token, t.UserID, t.ExpiresAt, t.Used, t.CreatedAt); err != nil {
		return fmt.Errorf("replace reset token: %w", err)
	}
	t.ID = id
	return nil
}

const selectResetToken = `
		SELECT id, token, user_id, expires_at, used, created_at
		FROM password_reset_tokens
	`

func (r *ResetTokenRepository) FindByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	return r.findOne(ctx, selectResetToken+`WHERE token = $1`, token)
}

func (r *ResetTokenRepository) FindByUser(ctx context.Context, userID string) (*domain.PasswordResetToken, error) {
	return r.findOne(ctx, selectResetToken+`WHERE user_id = $1`, userID)
}

func (r *ResetTokenRepository) findOne(ctx context.Context, query string, arg any) (*domain.PasswordResetToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var t domain.PasswordResetToken
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&t.ID, &t.Token, &t.UserID, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrResetTokenNotFound
		}
		return nil, fmt.Errorf("find reset token: %w", err)
	}
	return &t, nil
}

// MarkUsed only updates a row that is still unused, so concurrent callers
// race on the row lock and exactly one sees a row affected.
func (r *ResetTokenRepository) MarkUsed(ctx context.Context, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `UPDATE password_reset_tokens SET used = TRUE WHERE token = $1 AND used = FALSE`
	res, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return false, fmt.Errorf("mark reset token used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark reset token used: %w", err)
	}
	return n == 1, nil
}

func (r *ResetTokenRepository) Release(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `UPDATE password_reset_tokens SET used = FALSE WHERE token = $1 AND used = TRUE`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("release reset token: %w", err)
	}
	return nil
}

func (r *ResetTokenRepository) Delete(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete reset token: %w", err)
	}
	return nil
}
