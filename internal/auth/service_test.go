package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/orderin/api/internal/apperr"
	"github.com/orderin/api/internal/auth"
	"github.com/orderin/api/internal/clock"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

var epoch = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

// --- Mock store ---

type mockUserStore struct {
	users map[string]auth.StoredUser
	err   error
}

func (m *mockUserStore) GetUserByUsername(_ context.Context, username string) (auth.StoredUser, error) {
	if m.err != nil {
		return auth.StoredUser{}, m.err
	}
	u, ok := m.users[username]
	if !ok {
		return auth.StoredUser{}, apperr.NotFound("user", username)
	}
	return u, nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func newService(t *testing.T, opts ...auth.Option) (*auth.Service, *auth.MemorySessionStore, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(epoch)
	sessions := auth.NewMemorySessionStore(clk)
	opts = append([]auth.Option{auth.WithClock(clk), auth.WithSessionTTL(time.Hour)}, opts...)
	return auth.NewService(testSecret, sessions, opts...), sessions, clk
}

// --- Login tests ---

func TestLogin_DemoCredentials(t *testing.T) {
	svc, sessions, _ := newService(t)

	tests := []struct {
		username, password, role string
	}{
		{"cashier", "cashier123", "cashier"},
		{"owner", "owner123", "owner"},
	}
	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			sess, token, err := svc.Login(context.Background(), tt.username, tt.password, tt.role)
			if err != nil {
				t.Fatalf("login: %v", err)
			}
			if token == "" {
				t.Fatal("expected token")
			}
			if sess.User.Role != tt.role {
				t.Errorf("role: got %q, want %q", sess.User.Role, tt.role)
			}
			if sess.User.ID != auth.DemoUserID(tt.username) {
				t.Errorf("user ID: got %q, want %q", sess.User.ID, auth.DemoUserID(tt.username))
			}
			if !sess.ExpiresAt.Equal(epoch.Add(time.Hour)) {
				t.Errorf("expires at: got %v, want %v", sess.ExpiresAt, epoch.Add(time.Hour))
			}
		})
	}
	if sessions.Len() != 2 {
		t.Errorf("sessions: got %d, want 2", sessions.Len())
	}
}

func TestLogin_DemoCredentialsWrongRole(t *testing.T) {
	svc, _, _ := newService(t)

	_, _, err := svc.Login(context.Background(), "cashier", "cashier123", "owner")
	if !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("error: got %v, want ErrAuth", err)
	}
}

func TestLogin_InvalidInput(t *testing.T) {
	svc, _, _ := newService(t)

	_, _, err := svc.Login(context.Background(), "", "x", "cashier")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty username: got %v, want ErrValidation", err)
	}
	_, _, err = svc.Login(context.Background(), "cashier", "cashier123", "kitchen")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad role: got %v, want ErrValidation", err)
	}
}

func TestLogin_UserStore(t *testing.T) {
	store := &mockUserStore{users: map[string]auth.StoredUser{
		"rina": {User: auth.User{ID: "u-rina", Username: "rina", Role: "cashier"}, PasswordHash: hashPassword(t, "s3cret")},
	}}
	svc, _, _ := newService(t, auth.WithUserStore(store))

	sess, _, err := svc.Login(context.Background(), "rina", "s3cret", "cashier")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.User.ID != "u-rina" {
		t.Errorf("user ID: got %q, want u-rina", sess.User.ID)
	}

	_, _, err = svc.Login(context.Background(), "rina", "wrong", "cashier")
	if !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("wrong password: got %v, want ErrAuth", err)
	}

	// Unknown users still get the demo fallback.
	if _, _, err := svc.Login(context.Background(), "owner", "owner123", "owner"); err != nil {
		t.Errorf("demo fallback: %v", err)
	}
}

func TestLogin_UserStoreDownFallsBackToDemo(t *testing.T) {
	store := &mockUserStore{err: errors.New("connection refused")}
	svc, _, _ := newService(t, auth.WithUserStore(store))

	if _, _, err := svc.Login(context.Background(), "cashier", "cashier123", "cashier"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "cashier", "nope", "cashier"); !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("error: got %v, want ErrAuth", err)
	}
}

func TestLogin_FailureKeepsExistingSession(t *testing.T) {
	svc, sessions, _ := newService(t)
	ctx := context.Background()

	_, token, err := svc.Login(ctx, "cashier", "cashier123", "cashier")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, _, err := svc.Login(ctx, "cashier", "wrong", "cashier"); !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("error: got %v, want ErrAuth", err)
	}

	if _, err := svc.Verify(ctx, token); err != nil {
		t.Fatalf("existing session should survive a failed login: %v", err)
	}
	if sessions.Len() != 1 {
		t.Errorf("sessions: got %d, want 1", sessions.Len())
	}
}

// --- Verify / Logout tests ---

func TestLogout_InvalidatesToken(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, token, err := svc.Login(ctx, "owner", "owner123", "owner")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := svc.Logout(ctx, claims); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Verify(ctx, token); !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("verify after logout: got %v, want ErrAuth", err)
	}
	if err := svc.Logout(ctx, claims); err != nil {
		t.Errorf("second logout: %v", err)
	}
}

func TestVerify_SessionExpires(t *testing.T) {
	svc, _, clk := newService(t)
	ctx := context.Background()

	_, token, err := svc.Login(ctx, "cashier", "cashier123", "cashier")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	clk.Advance(59 * time.Minute)
	if _, err := svc.Verify(ctx, token); err != nil {
		t.Fatalf("verify before expiry: %v", err)
	}

	clk.Advance(2 * time.Minute)
	if _, err := svc.Verify(ctx, token); !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("verify after expiry: got %v, want ErrAuth", err)
	}
}

func TestVerify_ForeignToken(t *testing.T) {
	svc, _, _ := newService(t)

	if _, err := svc.Verify(context.Background(), "garbage"); !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("got %v, want ErrAuth", err)
	}
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	clk := clock.NewFakeClock(epoch)
	store := auth.NewMemorySessionStore(clk)
	ctx := context.Background()

	sess := auth.Session{ID: "s-1", User: auth.User{Username: "owner"}, IssuedAt: epoch, ExpiresAt: epoch.Add(time.Minute)}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Get(ctx, "s-1"); err != nil {
		t.Fatalf("get: %v", err)
	}

	clk.Advance(time.Minute)
	if _, err := store.Get(ctx, "s-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expired get: got %v, want ErrNotFound", err)
	}
	if store.Len() != 0 {
		t.Errorf("expired session should be evicted, len %d", store.Len())
	}
}
