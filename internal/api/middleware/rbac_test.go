package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/insurex/insurance-auth/internal/core/domain"
)

func newCtx(p *domain.Principal) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if p != nil {
		req = req.WithContext(domain.WithPrincipal(req.Context(), *p))
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRequireRole_Allows(t *testing.T) {
	admin := domain.Principal{UserID: "1", Role: domain.RoleAdmin, Authority: "ROLE_ADMIN"}
	c := newCtx(&admin)

	called := false
	handler := RequireRole(domain.RoleAdmin, domain.RoleAgent)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next handler not called")
	}
}

func TestRequireRole_Forbids(t *testing.T) {
	customer := domain.Principal{UserID: "2", Role: domain.RoleCustomer, Authority: "ROLE_CUSTOMER"}
	c := newCtx(&customer)

	handler := RequireRole(domain.RoleAdmin)(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	if err := handler(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRequireRole_Anonymous(t *testing.T) {
	handler := RequireRole(domain.RoleAdmin)(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	if err := handler(newCtx(nil)); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestRequireAuthenticated(t *testing.T) {
	handler := RequireAuthenticated()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := handler(newCtx(nil)); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if err := handler(newCtx(&alice)); err != nil {
		t.Fatalf("expected pass-through, got %v", err)
	}
}
