package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignParse_RoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, err := m.Sign("king", []string{"creator", "customer"})
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.Username != "king" {
		t.Errorf("expected username king, got %s", claims.Username)
	}
	if !claims.HasRole("creator") || !claims.HasRole("customer") {
		t.Errorf("roles lost: %v", claims.Roles)
	}
	if claims.HasRole("admin") {
		t.Error("unexpected role admin")
	}
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", time.Hour).Sign("king", nil)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := NewManager("secret-b", time.Hour).Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got: %v", err)
	}
}

func TestParse_Expired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)
	token, err := m.Sign("king", nil)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := m.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got: %v", err)
	}
}

func TestParse_Garbage(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	if _, err := m.Parse("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got: %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := FromContext(r.Context())
		if !ok || claims.Username != "queen" {
			t.Error("claims missing from request context")
		}
		w.WriteHeader(http.StatusNoContent)
	})
	handler := m.Middleware(next)

	t.Run("no token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := m.Sign("queen", []string{"creator"})
		if err != nil {
			t.Fatalf("sign failed: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rr.Code)
		}
	})
}

func TestRequireRole(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := m.Middleware(RequireRole("creator")(next))

	t.Run("missing role", func(t *testing.T) {
		token, _ := m.Sign("james", []string{"customer"})
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rr.Code)
		}
	})

	t.Run("has role", func(t *testing.T) {
		token, _ := m.Sign("queen", []string{"creator"})
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rr.Code)
		}
	})
}
