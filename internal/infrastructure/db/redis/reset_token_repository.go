package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/insurex/insurance-auth/internal/core/domain"
)

// Expired tokens are kept this long past expiry so a late reset attempt is
// answered with "expired" rather than "not found".
const defaultRetention = 24 * time.Hour

const (
	tokenKeyPrefix = "reset:token:"
	userKeyPrefix  = "reset:user:"
)

// replaceScript drops the user's previous token and stores the new one.
// KEYS[1]=user key, KEYS[2]=new token key.
// ARGV: token prefix, token, user_id, expires_at ms, created_at ms, ttl ms.
var replaceScript = redis.NewScript(`
local old = redis.call('GET', KEYS[1])
if old then
	redis.call('DEL', ARGV[1] .. old)
end
redis.call('HSET', KEYS[2], 'user_id', ARGV[3], 'expires_at', ARGV[4], 'used', '0', 'created_at', ARGV[5])
redis.call('PEXPIRE', KEYS[2], ARGV[6])
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[6])
return 1
`)

// markUsedScript flips used from 0 to 1. Returns 1 only for the caller that
// performed the flip.
var markUsedScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'used') == '0' then
	redis.call('HSET', KEYS[1], 'used', '1')
	return 1
end
return 0
`)

// releaseScript flips used back from 1 to 0 without recreating a token that
// has since been removed.
var releaseScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'used') == '1' then
	redis.call('HSET', KEYS[1], 'used', '0')
end
return 1
`)

// deleteScript removes a token and clears the user pointer if it still
// refers to that token. KEYS[1]=token key; ARGV: user prefix, token.
var deleteScript = redis.NewScript(`
local uid = redis.call('HGET', KEYS[1], 'user_id')
redis.call('DEL', KEYS[1])
if uid then
	local ukey = ARGV[1] .. uid
	if redis.call('GET', ukey) == ARGV[2] then
		redis.call('DEL', ukey)
	end
end
return 1
`)

// ResetTokenRepository keeps reset tokens in Redis hashes keyed by token,
// plus a per-user pointer to the user's current token.
//
//	reset:token:<token> -> {user_id, expires_at, used, created_at}
//	reset:user:<user_id> -> <token>
type ResetTokenRepository struct {
	client    *redis.Client
	retention time.Duration
	now       func() time.Time
}

func NewResetTokenRepository(client *redis.Client) *ResetTokenRepository {
	return &ResetTokenRepository{
		client:    client,
		retention: defaultRetention,
		now:       time.Now,
	}
}

func (r *ResetTokenRepository) ReplaceForUser(ctx context.Context, t *domain.PasswordResetToken) error {
	ttl := t.ExpiresAt.Sub(r.now()) + r.retention
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	err := replaceScript.Run(ctx, r.client,
		[]string{userKeyPrefix + t.UserID, tokenKeyPrefix + t.Token},
		tokenKeyPrefix,
		t.Token,
		t.UserID,
		t.ExpiresAt.UnixMilli(),
		t.CreatedAt.UnixMilli(),
		ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("replace reset token: %w", err)
	}
	t.ID = t.Token
	return nil
}

func (r *ResetTokenRepository) FindByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	fields, err := r.client.HGetAll(ctx, tokenKeyPrefix+token).Result()
	if err != nil {
		return nil, fmt.Errorf("find reset token: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrResetTokenNotFound
	}

	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("reset token %q: bad expires_at: %w", token, err)
	}
	createdAt, _ := strconv.ParseInt(fields["created_at"], 10, 64)

	return &domain.PasswordResetToken{
		ID:        token,
		Token:     token,
		UserID:    fields["user_id"],
		ExpiresAt: time.UnixMilli(expiresAt).UTC(),
		Used:      fields["used"] == "1",
		CreatedAt: time.UnixMilli(createdAt).UTC(),
	}, nil
}

func (r *ResetTokenRepository) FindByUser(ctx context.Context, userID string) (*domain.PasswordResetToken, error) {
	token, err := r.client.Get(ctx, userKeyPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrResetTokenNotFound
		}
		return nil, fmt.Errorf("find reset token for user: %w", err)
	}
	return r.FindByToken(ctx, token)
}

func (r *ResetTokenRepository) MarkUsed(ctx context.Context, token string) (bool, error) {
	n, err := markUsedScript.Run(ctx, r.client, []string{tokenKeyPrefix + token}).Int()
	if err != nil {
		return false, fmt.Errorf("mark reset token used: %w", err)
	}
	return n == 1, nil
}

func (r *ResetTokenRepository) Release(ctx context.Context, token string) error {
	if err := releaseScript.Run(ctx, r.client, []string{tokenKeyPrefix + token}).Err(); err != nil {
		return fmt.Errorf("release reset token: %w", err)
	}
	return nil
}

func (r *ResetTokenRepository) Delete(ctx context.Context, token string) error {
	err := deleteScript.Run(ctx, r.client, []string{tokenKeyPrefix + token}, userKeyPrefix, token).Err()
	if err != nil {
		return fmt.Errorf("delete reset token: %w", err)
	}
	return nil
}
