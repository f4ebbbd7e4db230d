// Package auth authenticates staff (cashier and owner), issues JWT access
// tokens and keeps the matching sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/orderin/api/internal/apperr"
	"github.com/orderin/api/internal/clock"
	"github.com/orderin/api/internal/enum"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// StoredUser is a user row with its bcrypt hash.
type StoredUser struct {
	User
	PasswordHash string
}

// UserStore looks up staff accounts.
// Satisfied by *postgres.UserStore; narrow interface for testability.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (StoredUser, error)
}

type demoCredential struct {
	username, password, role string
}

// demoCredentials are accepted when the user store is absent, unreachable
// or rejects the login.
var demoCredentials = []demoCredential{
	{"cashier", "cashier123", enum.UserRoleCashier},
	{"owner", "owner123", enum.UserRoleOwner},
}

// DemoUserID gives demo accounts a stable identity across restarts.
func DemoUserID(username string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("orderin:user:"+username)).String()
}

type Option func(*Service)

func WithClock(c clock.Clock) Option        { return func(s *Service) { s.clock = c } }
func WithLogger(l *zap.Logger) Option       { return func(s *Service) { s.log = l.Named("auth") } }
func WithSessionTTL(d time.Duration) Option { return func(s *Service) { s.ttl = d } }
func WithUserStore(u UserStore) Option      { return func(s *Service) { s.users = u } }

type Service struct {
	secret   string
	sessions SessionStore
	users    UserStore
	clock    clock.Clock
	log      *zap.Logger
	ttl      time.Duration
}

func NewService(secret string, sessions SessionStore, opts ...Option) *Service {
	s := &Service{
		secret:   secret,
		sessions: sessions,
		clock:    clock.System(),
		log:      zap.NewNop(),
		ttl:      12 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login checks credentials for the requested role and opens a new session.
// A failed login returns ErrAuth and leaves existing sessions untouched.
func (s *Service) Login(ctx context.Context, username, password, role string) (Session, string, error) {
	if username == "" || password == "" {
		return Session{}, "", apperr.Validation("username", "username and password are required")
	}
	if role != enum.UserRoleCashier && role != enum.UserRoleOwner {
		return Session{}, "", apperr.Validation("role", "must be cashier or owner")
	}

	user, err := s.authenticate(ctx, username, password, role)
	if err != nil {
		s.log.Info("login rejected", zap.String("username", username), zap.String("role", role))
		return Session{}, "", err
	}

	now := s.clock.Now()
	sess := Session{
		ID:        uuid.NewString(),
		User:      user,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	token, err := GenerateToken(s.secret, sess)
	if err != nil {
		return Session{}, "", fmt.Errorf("sign token: %w", err)
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return Session{}, "", err
	}

	s.log.Info("login", zap.String("username", user.Username), zap.String("role", user.Role), zap.String("session_id", sess.ID))
	return sess, token, nil
}

func (s *Service) authenticate(ctx context.Context, username, password, role string) (User, error) {
	if s.users != nil {
		u, err := s.users.GetUserByUsername(ctx, username)
		switch {
		case err == nil:
			if u.Role == role && bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil {
				return u.User, nil
			}
		case errors.Is(err, apperr.ErrNotFound):
		default:
			s.log.Warn("user store unavailable, trying demo credentials", zap.Error(err))
		}
	}

	for _, c := range demoCredentials {
		if c.username == username && c.password == password && c.role == role {
			return User{ID: DemoUserID(username), Username: username, Role: role}, nil
		}
	}
	return User{}, apperr.ErrAuth
}

// Verify validates the token and checks that its session is still open.
func (s *Service) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := parseAt(s.secret, token, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrAuth, err)
	}
	if _, err := s.sessions.Get(ctx, claims.ID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: session ended", apperr.ErrAuth)
		}
		return nil, err
	}
	return claims, nil
}

// Session returns the open session behind claims.
func (s *Service) Session(ctx context.Context, claims *Claims) (Session, error) {
	return s.sessions.Get(ctx, claims.ID)
}

// Logout invalidates the session. Logging out twice is not an error.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if err := s.sessions.Delete(ctx, claims.ID); err != nil {
		return err
	}
	s.log.Info("logout", zap.String("username", claims.Username), zap.String("session_id", claims.ID))
	return nil
}
