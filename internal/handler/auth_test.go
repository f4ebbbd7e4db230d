package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/orderin/api/internal/apperr"
	"github.com/orderin/api/internal/auth"
	"github.com/orderin/api/internal/handler"
)

// --- Mock Authenticator ---

type mockAuthenticator struct {
	loginFn   func(ctx context.Context, username, password, role string) (auth.Session, string, error)
	sessionFn func(ctx context.Context, claims *auth.Claims) (auth.Session, error)
	logoutFn  func(ctx context.Context, claims *auth.Claims) error
}

func (m *mockAuthenticator) Login(ctx context.Context, username, password, role string) (auth.Session, string, error) {
	return m.loginFn(ctx, username, password, role)
}

func (m *mockAuthenticator) Session(ctx context.Context, claims *auth.Claims) (auth.Session, error) {
	return m.sessionFn(ctx, claims)
}

func (m *mockAuthenticator) Logout(ctx context.Context, claims *auth.Claims) error {
	return m.logoutFn(ctx, claims)
}

var cashierSession = auth.Session{
	ID:        "sess-1",
	User:      auth.User{ID: "u-1", Username: "cashier", Role: "cashier"},
	IssuedAt:  testNow,
	ExpiresAt: testNow.Add(12 * time.Hour),
}

var cashierClaims = &auth.Claims{
	UserID:           "u-1",
	Username:         "cashier",
	Role:             "cashier",
	RegisteredClaims: jwt.RegisteredClaims{ID: "sess-1"},
}

func authRouter(a handler.Authenticator, claims *auth.Claims) http.Handler {
	h := handler.NewAuthHandler(a)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		if claims != nil {
			r.Use(injectClaims(claims))
		}
		h.RegisterSessionRoutes(r)
	})
	return r
}

// --- Login tests ---

func TestLogin_Success(t *testing.T) {
	var gotUser, gotRole string
	a := &mockAuthenticator{
		loginFn: func(_ context.Context, username, _, role string) (auth.Session, string, error) {
			gotUser, gotRole = username, role
			return cashierSession, "signed-token", nil
		},
	}

	rr := doJSON(t, authRouter(a, nil), "POST", "/auth/login", map[string]string{
		"username": "  cashier ", "password": "cashier123", "role": "cashier",
	})
	expectStatus(t, rr, http.StatusOK)

	if gotUser != "cashier" || gotRole != "cashier" {
		t.Errorf("login args: got %q/%q, want cashier/cashier", gotUser, gotRole)
	}
	resp := decodeResponse(t, rr)
	if resp["access_token"] != "signed-token" {
		t.Errorf("access_token: got %v, want signed-token", resp["access_token"])
	}
	user := resp["user"].(map[string]interface{})
	if user["role"] != "cashier" {
		t.Errorf("user.role: got %v, want cashier", user["role"])
	}
}

func TestLogin_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad credentials", apperr.ErrAuth, http.StatusUnauthorized},
		{"missing fields", apperr.Validation("username", "username and password are required"), http.StatusBadRequest},
		{"session store down", apperr.Transient("save session", errors.New("dial tcp")), http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &mockAuthenticator{
				loginFn: func(context.Context, string, string, string) (auth.Session, string, error) {
					return auth.Session{}, "", tt.err
				},
			}
			rr := doJSON(t, authRouter(a, nil), "POST", "/auth/login", map[string]string{
				"username": "cashier", "password": "x", "role": "cashier",
			})
			expectStatus(t, rr, tt.want)
		})
	}
}

func TestLogin_InvalidBody(t *testing.T) {
	a := &mockAuthenticator{}
	rr := doJSON(t, authRouter(a, nil), "POST", "/auth/login", "not an object")
	expectStatus(t, rr, http.StatusBadRequest)
}

// --- Session tests ---

func TestLogout(t *testing.T) {
	var loggedOut string
	a := &mockAuthenticator{
		logoutFn: func(_ context.Context, c *auth.Claims) error {
			loggedOut = c.ID
			return nil
		},
	}

	rr := doJSON(t, authRouter(a, cashierClaims), "POST", "/auth/logout", nil)
	expectStatus(t, rr, http.StatusNoContent)
	if loggedOut != "sess-1" {
		t.Errorf("logged out session: got %q, want sess-1", loggedOut)
	}
}

func TestLogout_NoClaims(t *testing.T) {
	rr := doJSON(t, authRouter(&mockAuthenticator{}, nil), "POST", "/auth/logout", nil)
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestMe(t *testing.T) {
	a := &mockAuthenticator{
		sessionFn: func(context.Context, *auth.Claims) (auth.Session, error) {
			return cashierSession, nil
		},
	}

	rr := doJSON(t, authRouter(a, cashierClaims), "GET", "/auth/me", nil)
	expectStatus(t, rr, http.StatusOK)

	resp := decodeResponse(t, rr)
	user := resp["user"].(map[string]interface{})
	if user["username"] != "cashier" {
		t.Errorf("username: got %v, want cashier", user["username"])
	}
}

func TestMe_SessionGone(t *testing.T) {
	a := &mockAuthenticator{
		sessionFn: func(context.Context, *auth.Claims) (auth.Session, error) {
			return auth.Session{}, apperr.NotFound("session", "sess-1")
		},
	}

	rr := doJSON(t, authRouter(a, cashierClaims), "GET", "/auth/me", nil)
	expectStatus(t, rr, http.StatusNotFound)
}
