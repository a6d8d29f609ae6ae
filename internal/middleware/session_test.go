package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/taskkart/backend/internal/models"
)

type fakeAuth struct {
	userID  uuid.UUID
	isAdmin bool
	err     error
}

func (f *fakeAuth) Register(context.Context, string, string, string) (*models.UserProfile, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAuth) Login(context.Context, string, string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeAuth) ValidateToken(context.Context, string) (uuid.UUID, bool, error) {
	return f.userID, f.isAdmin, f.err
}

func TestSessionAuth(t *testing.T) {
	userID := uuid.New()
	mw := SessionAuth(&fakeAuth{userID: userID, isAdmin: true})

	var got *Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromCtx(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if got == nil || got.UserID != userID || !got.IsAdmin {
		t.Fatalf("session not propagated: %+v", got)
	}
}

func TestSessionAuthMissingHeader(t *testing.T) {
	mw := SessionAuth(&fakeAuth{userID: uuid.New()})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec.Code)
	}
}

func TestSessionAuthInvalidToken(t *testing.T) {
	mw := SessionAuth(&fakeAuth{err: errors.New("expired")})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with an invalid token")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer expiredtoken")
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireAdmin(next)

	// Non-admin session is rejected.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", nil)
	req = req.WithContext(WithSession(req.Context(), &Session{UserID: uuid.New()}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin status: got %d, want 403", rec.Code)
	}

	// Admin session passes through.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/tasks", nil)
	req = req.WithContext(WithSession(req.Context(), &Session{UserID: uuid.New(), IsAdmin: true}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin status: got %d, want 204", rec.Code)
	}

	// No session at all.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/tasks", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("missing session status: got %d, want 403", rec.Code)
	}
}
