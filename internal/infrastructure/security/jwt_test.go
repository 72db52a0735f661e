package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurex/insurance-auth/internal/core/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func newTestCodec(t *testing.T, clock *fakeClock) *JWTCodec {
	t.Helper()
	c, err := NewJWTCodec(testSecret, time.Hour, WithIssuer("insurex-auth"), WithClock(clock.Now))
	require.NoError(t, err)
	return c
}

func testPrincipal() domain.Principal {
	return domain.Principal{
		UserID:    "64f0c1a2b3c4d5e6f7a8b9c0",
		Email:     "alice@x.com",
		Role:      domain.RoleAgent,
		Authority: string(domain.RoleAgent),
	}
}

func TestNewJWTCodec_RejectsWeakSecret(t *testing.T) {
	for _, secret := range []string{"", "short", strings.Repeat("a", minSecretLen-1)} {
		_, err := NewJWTCodec(secret, time.Hour)
		assert.ErrorIs(t, err, domain.ErrWeakSecret, "secret %q", secret)
	}
}

func TestJWTCodec_IssueVerifyRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	codec := newTestCodec(t, clock)

	token, exp, err := codec.Issue(testPrincipal())
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, clock.t.Add(time.Hour), exp)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", claims.Subject)
	assert.Equal(t, "64f0c1a2b3c4d5e6f7a8b9c0", claims.UserID)
	assert.Equal(t, domain.RoleAgent, claims.Role)
	assert.True(t, claims.IssuedAt.Equal(clock.t))
	assert.True(t, claims.ExpiresAt.Equal(exp))
}

func TestJWTCodec_WireClaimNames(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	token, _, err := codec.Issue(testPrincipal())
	require.NoError(t, err)

	raw := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, raw)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", raw["sub"])
	assert.Equal(t, "64f0c1a2b3c4d5e6f7a8b9c0", raw["user_id"])
	assert.Equal(t, "ROLE_AGENT", raw["user_role"])
	assert.Equal(t, "insurex-auth", raw["iss"])
	assert.Contains(t, raw, "iat")
	assert.Contains(t, raw, "exp")
}

func TestJWTCodec_ExpiredTokenIsExpiredNotInvalid(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	codec := newTestCodec(t, clock)

	token, exp, err := codec.Issue(testPrincipal())
	require.NoError(t, err)

	for _, after := range []time.Duration{time.Second, time.Minute, 48 * time.Hour} {
		clock.t = exp.Add(after)
		_, err := codec.Verify(token)
		assert.ErrorIs(t, err, domain.ErrExpiredToken, "after %s", after)
		assert.NotErrorIs(t, err, domain.ErrInvalidToken, "after %s", after)
	}
}

func TestJWTCodec_TamperedTokenIsInvalid(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	token, _, err := codec.Issue(testPrincipal())
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		b := []byte(token)
		switch b[i] {
		case '.':
			b[i] = 'A'
		case 'A':
			b[i] = 'B'
		default:
			b[i] = 'A'
		}
		_, err := codec.Verify(string(b))
		require.ErrorIs(t, err, domain.ErrInvalidToken, "tampered byte %d", i)
	}
}

func TestJWTCodec_RejectsForeignKeyAndAlgorithm(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	other, err := NewJWTCodec(strings.Repeat("z", minSecretLen), time.Hour)
	require.NoError(t, err)
	foreign, _, err := other.Issue(testPrincipal())
	require.NoError(t, err)

	_, err = codec.Verify(foreign)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: "u1",
		Role:   "ROLE_ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "mallory@x.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Verify(unsigned)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = codec.Verify("not-a-token")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestJWTCodec_MissingExpiryIsInvalid(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           "u1",
		Role:             "ROLE_ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "a@x.com"},
	})
	signed, err := noExp.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = codec.Verify(signed)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.NoError(t, h.Compare(hash, "s3cret"))
	assert.Error(t, h.Compare(hash, "wrong"))

	assert.Equal(t, 10, NewBcryptHasher(99).cost)
}
