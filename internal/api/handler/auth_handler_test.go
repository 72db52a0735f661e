package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/insurex/insurance-auth/internal/core/domain"
	"github.com/insurex/insurance-auth/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	loginFn    func(ctx context.Context, email, password string) (*ports.LoginResult, error)
	listFn     func(ctx context.Context) ([]*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.listFn(ctx)
}

type stubResetService struct {
	initiateFn func(ctx context.Context, email string) error
	resetFn    func(ctx context.Context, token, newPassword string) error
	validateFn func(ctx context.Context, token string) (bool, error)
}

func (s *stubResetService) Initiate(ctx context.Context, email string) error {
	return s.initiateFn(ctx, email)
}

func (s *stubResetService) Reset(ctx context.Context, token, newPassword string) error {
	return s.resetFn(ctx, token, newPassword)
}

func (s *stubResetService) Validate(ctx context.Context, token string) (bool, error) {
	return s.validateFn(ctx, token)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpErrorCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			if in.Email != "alice@x.com" || in.Password != "pass123" || len(in.Roles) != 1 || in.Roles[0] != "agent" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: "u1", Email: in.Email, Role: domain.RoleAgent}, nil
		},
	}
	h := NewAuthHandler(stub, &stubResetService{})

	c, rec := jsonRequest(e, http.MethodPost, "/auth/register", `{"email":"alice@x.com","password":"pass123","roles":["agent"]}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Message != "User registered successfully!" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestAuthHandler_Register_EmailTaken(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			return nil, domain.ErrEmailTaken
		},
	}
	h := NewAuthHandler(stub, &stubResetService{})

	c, _ := jsonRequest(e, http.MethodPost, "/auth/register", `{"email":"bob@x.com","password":"pw"}`)
	if err := h.Register(c); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub, &stubResetService{})

	c, _ := jsonRequest(e, http.MethodPost, "/auth/register", "not-json")
	if code := httpErrorCode(t, h.Register(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}

	c, _ = jsonRequest(e, http.MethodPost, "/auth/register", `{"email":"not-an-email","password":"pw"}`)
	err := h.Register(c)
	if code := httpErrorCode(t, err); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
	if !strings.Contains(err.Error(), "email must be a valid email") {
		t.Fatalf("expected json field name in message, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newTestEcho()
	expires := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.LoginResult, error) {
			if email != "alice@x.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &ports.LoginResult{
				Token: "token123", ExpiresAt: expires, UserID: "u1",
				Email: email, Roles: []string{"ROLE_CUSTOMER"},
			}, nil
		},
	}
	h := NewAuthHandler(stub, &stubResetService{})

	c, rec := jsonRequest(e, http.MethodPost, "/auth/login", `{"email":"alice@x.com","password":"secret"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token123" || resp["id"] != "u1" || resp["email"] != "alice@x.com" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	roles, ok := resp["roles"].([]any)
	if !ok || len(roles) != 1 || roles[0] != "ROLE_CUSTOMER" {
		t.Fatalf("unexpected roles: %+v", resp["roles"])
	}
}

func TestAuthHandler_Login_Failed(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.LoginResult, error) {
			return nil, domain.ErrAuthenticationFailed
		},
	}
	h := NewAuthHandler(stub, &stubResetService{})

	c, _ := jsonRequest(e, http.MethodPost, "/auth/login", `{"email":"alice@x.com","password":"bad"}`)
	if err := h.Login(c); !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.LoginResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub, &stubResetService{})

	c, _ := jsonRequest(e, http.MethodPost, "/auth/login", `{"email":"alice@x.com"}`)
	if code := httpErrorCode(t, h.Login(c)); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
}

func TestAuthHandler_ForgotPassword(t *testing.T) {
	e := newTestEcho()
	var got string
	reset := &stubResetService{
		initiateFn: func(ctx context.Context, email string) error {
			got = email
			return nil
		},
	}
	h := NewAuthHandler(&stubAuthService{}, reset)

	c, rec := jsonRequest(e, http.MethodPost, "/auth/forgot-password", `{"email":"alice@x.com"}`)
	if err := h.ForgotPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || got != "alice@x.com" {
		t.Fatalf("expected 200 for alice, got %d %q", rec.Code, got)
	}
}

func TestAuthHandler_ForgotPassword_Errors(t *testing.T) {
	for _, want := range []error{domain.ErrUserNotFound, domain.ErrDeliveryFailed} {
		e := newTestEcho()
		reset := &stubResetService{
			initiateFn: func(ctx context.Context, email string) error { return want },
		}
		h := NewAuthHandler(&stubAuthService{}, reset)

		c, _ := jsonRequest(e, http.MethodPost, "/auth/forgot-password", `{"email":"alice@x.com"}`)
		if err := h.ForgotPassword(c); !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
	}
}

func TestAuthHandler_ResetPassword(t *testing.T) {
	e := newTestEcho()
	reset := &stubResetService{
		resetFn: func(ctx context.Context, token, newPassword string) error {
			if token != "tok" || newPassword != "newpass" {
				t.Fatalf("unexpected args: %s %s", token, newPassword)
			}
			return nil
		},
	}
	h := NewAuthHandler(&stubAuthService{}, reset)

	c, rec := jsonRequest(e, http.MethodPost, "/auth/reset-password", `{"token":"tok","new_password":"newpass"}`)
	if err := h.ResetPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_ResetPassword_TokenErrors(t *testing.T) {
	for _, want := range []error{domain.ErrResetTokenNotFound, domain.ErrResetTokenExpired, domain.ErrResetTokenUsed} {
		e := newTestEcho()
		reset := &stubResetService{
			resetFn: func(ctx context.Context, token, newPassword string) error { return want },
		}
		h := NewAuthHandler(&stubAuthService{}, reset)

		c, _ := jsonRequest(e, http.MethodPost, "/auth/reset-password", `{"token":"tok","new_password":"newpass"}`)
		if err := h.ResetPassword(c); !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
	}
}

func TestAuthHandler_ValidateResetToken(t *testing.T) {
	reset := &stubResetService{
		validateFn: func(ctx context.Context, token string) (bool, error) {
			return token == "live", nil
		},
	}
	h := NewAuthHandler(&stubAuthService{}, reset)

	cases := []struct {
		query string
		code  int
		valid bool
	}{
		{"?token=live", http.StatusOK, true},
		{"?token=dead", http.StatusBadRequest, false},
		{"", http.StatusBadRequest, false},
	}
	for _, tc := range cases {
		e := newTestEcho()
		req := httptest.NewRequest(http.MethodGet, "/auth/validate-reset-token"+tc.query, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := h.ValidateResetToken(c); err != nil {
			t.Fatalf("%q: handler error: %v", tc.query, err)
		}
		if rec.Code != tc.code {
			t.Fatalf("%q: expected %d, got %d", tc.query, tc.code, rec.Code)
		}
		var resp validateTokenResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if resp.Valid != tc.valid {
			t.Fatalf("%q: expected valid=%v", tc.query, tc.valid)
		}
	}
}

func TestAuthHandler_Me(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{}, &stubResetService{})
	p := domain.Principal{UserID: "u1", Email: "alice@x.com", Role: domain.RoleAdmin, Authority: "ROLE_ADMIN"}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(domain.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	if err := h.Me(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var got domain.Principal
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got != p {
		t.Fatalf("unexpected principal: %+v", got)
	}

	anon := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	if err := h.Me(e.NewContext(anon, httptest.NewRecorder())); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthHandler_ListUsers_HidesHashes(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		listFn: func(ctx context.Context) ([]*domain.User, error) {
			return []*domain.User{{ID: "u1", Email: "a@x.com", PasswordHash: "$2a$10$secret", Role: domain.RoleAdmin}}, nil
		},
	}
	h := NewAuthHandler(stub, &stubResetService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/users", nil)
	rec := httptest.NewRecorder()
	if err := h.ListUsers(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"role":"ROLE_ADMIN"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
