package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/orderin/api/internal/auth"
	"github.com/orderin/api/internal/middleware"
)

// Authenticator defines the auth operations needed by auth handlers.
// Satisfied by *auth.Service; narrow interface for testability.
type Authenticator interface {
	Login(ctx context.Context, username, password, role string) (auth.Session, string, error)
	Session(ctx context.Context, claims *auth.Claims) (auth.Session, error)
	Logout(ctx context.Context, claims *auth.Claims) error
}

// AuthHandler handles staff login and session endpoints.
type AuthHandler struct {
	auth Authenticator
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(a Authenticator) *AuthHandler {
	return &AuthHandler{auth: a}
}

// RegisterRoutes registers the public login endpoint.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
}

// RegisterSessionRoutes registers endpoints that need an authenticated
// request context.
func (h *AuthHandler) RegisterSessionRoutes(r chi.Router) {
	r.Post("/auth/logout", h.Logout)
	r.Get("/auth/me", h.Me)
}

// --- Request / Response types ---

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        userResponse `json:"user"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type sessionResponse struct {
	User      userResponse `json:"user"`
	IssuedAt  time.Time    `json:"issued_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// --- Handlers ---

// Login handles username + password authentication for the requested role.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, token, err := h.auth.Login(r.Context(), strings.TrimSpace(req.Username), req.Password, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		ExpiresAt:   sess.ExpiresAt,
		User:        toUserResponse(sess.User),
	})
}

// Logout ends the caller's session. The token stops working immediately.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	if err := h.auth.Logout(r.Context(), claims); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller's open session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	sess, err := h.auth.Session(r.Context(), claims)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		User:      toUserResponse(sess.User),
		IssuedAt:  sess.IssuedAt,
		ExpiresAt: sess.ExpiresAt,
	})
}

// --- Helpers ---

func toUserResponse(u auth.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Role: u.Role}
}
