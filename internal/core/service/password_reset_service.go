package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insurex/insurance-auth/internal/core/domain"
	"github.com/insurex/insurance-auth/internal/core/ports"
)

const (
	defaultResetTTL   = time.Hour
	resetMailSubject  = "InsureX - Password Reset Request"
	resetPasswordPath = "/reset-password"
)

var resetMailBody = template.Must(template.New("reset").Parse(`Hello,

You have requested to reset your password for your InsureX account.

Please click the link below to reset your password:
{{ .Link }}

This link will expire in {{ .Validity }}.

If you did not request this password reset, please ignore this email.

Best regards,
InsureX Team
`))

// ResetConfig configures the password-reset flow.
type ResetConfig struct {
	// AppURL is the public frontend base URL the reset link points to.
	AppURL string
	// TTL is how long an issued token stays usable. Defaults to one hour.
	TTL time.Duration
}

// PasswordResetService issues, validates and consumes reset tokens.
type PasswordResetService struct {
	users    ports.UserRepository
	tokens   ports.ResetTokenRepository
	hasher   ports.PasswordHasher
	mailer   ports.MailSender
	cfg      ResetConfig
	log      zerolog.Logger
	now      func() time.Time
	newToken func() string
}

func NewPasswordResetService(
	users ports.UserRepository,
	tokens ports.ResetTokenRepository,
	hasher ports.PasswordHasher,
	mailer ports.MailSender,
	cfg ResetConfig,
	log zerolog.Logger,
) *PasswordResetService {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultResetTTL
	}
	return &PasswordResetService{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		mailer:   mailer,
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: uuid.NewString,
	}
}

// Initiate replaces any token the user holds with a fresh one and mails the
// reset link. When the mail cannot be sent the fresh token is withdrawn and a
// previously live token, if any, is put back.
func (s *PasswordResetService) Initiate(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("initiate reset: find user: %w", err)
	}

	prior, err := s.tokens.FindByUser(ctx, user.ID)
	if err != nil && !errors.Is(err, domain.ErrResetTokenNotFound) {
		return fmt.Errorf("initiate reset: find current token: %w", err)
	}

	now := s.now()
	reset := &domain.PasswordResetToken{
		Token:     s.newToken(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.cfg.TTL),
		Used:      false,
		CreatedAt: now,
	}
	if err := s.tokens.ReplaceForUser(ctx, reset); err != nil {
		return fmt.Errorf("initiate reset: store token: %w", err)
	}

	body, err := s.renderMail(reset.Token)
	if err != nil {
		s.rollback(ctx, reset, prior)
		return fmt.Errorf("initiate reset: %w", err)
	}

	if err := s.mailer.Send(ctx, user.Email, resetMailSubject, body); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("password reset email failed")
		s.rollback(ctx, reset, prior)
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}

	s.log.Info().Str("user_id", user.ID).Time("expires_at", reset.ExpiresAt).Msg("password reset initiated")
	return nil
}

// Reset consumes token and stores newPassword for its owner. Checks run in
// order: existence, expiry, use. Only one concurrent caller can consume a
// token; the others observe domain.ErrResetTokenUsed.
func (s *PasswordResetService) Reset(ctx context.Context, token, newPassword string) error {
	reset, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrResetTokenNotFound) {
			return domain.ErrResetTokenNotFound
		}
		return fmt.Errorf("reset password: find token: %w", err)
	}

	switch reset.State(s.now()) {
	case domain.ResetStateExpired:
		return domain.ErrResetTokenExpired
	case domain.ResetStateUsed:
		return domain.ErrResetTokenUsed
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	claimed, err := s.tokens.MarkUsed(ctx, token)
	if err != nil {
		return fmt.Errorf("reset password: claim token: %w", err)
	}
	if !claimed {
		// Either another caller won, or the token was replaced meanwhile.
		if _, err := s.tokens.FindByToken(ctx, token); errors.Is(err, domain.ErrResetTokenNotFound) {
			return domain.ErrResetTokenNotFound
		}
		return domain.ErrResetTokenUsed
	}

	if err := s.users.UpdatePassword(ctx, reset.UserID, hash); err != nil {
		s.log.Error().Err(err).Str("user_id", reset.UserID).Msg("password update after token claim failed")
		if rerr := s.tokens.Release(ctx, token); rerr != nil {
			s.log.Error().Err(rerr).Str("user_id", reset.UserID).Msg("failed to release reset token")
		}
		return fmt.Errorf("reset password: update password: %w", err)
	}

	s.log.Info().Str("user_id", reset.UserID).Msg("password reset completed")
	return nil
}

// Validate reports whether token exists, is not expired and is not used.
func (s *PasswordResetService) Validate(ctx context.Context, token string) (bool, error) {
	reset, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrResetTokenNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("validate reset token: %w", err)
	}
	return reset.State(s.now()) == domain.ResetStateLive, nil
}

func (s *PasswordResetService) renderMail(token string) (string, error) {
	link := strings.TrimRight(s.cfg.AppURL, "/") + resetPasswordPath + "?token=" + url.QueryEscape(token)

	var buf bytes.Buffer
	err := resetMailBody.Execute(&buf, struct {
		Link     string
		Validity string
	}{
		Link:     link,
		Validity: humanDuration(s.cfg.TTL),
	})
	if err != nil {
		return "", fmt.Errorf("render reset email: %w", err)
	}
	return buf.String(), nil
}

// rollback withdraws an undelivered token. A prior token that was still live
// takes its place again; ReplaceForUser drops the fresh one in the process.
func (s *PasswordResetService) rollback(ctx context.Context, fresh, prior *domain.PasswordResetToken) {
	if prior != nil && prior.State(s.now()) == domain.ResetStateLive {
		if err := s.tokens.ReplaceForUser(ctx, prior); err != nil {
			s.log.Warn().Err(err).Str("user_id", prior.UserID).Msg("failed to restore previous reset token")
		}
		return
	}
	if err := s.tokens.Delete(ctx, fresh.Token); err != nil {
		s.log.Warn().Err(err).Msg("failed to discard undelivered reset token")
	}
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
