package auth_test

import (
	"testing"
	"time"

	"github.com/orderin/api/internal/auth"
)

func testSession(expires time.Time) auth.Session {
	return auth.Session{
		ID:        "sess-1",
		User:      auth.User{ID: "u-1", Username: "cashier", Role: "cashier"},
		IssuedAt:  expires.Add(-time.Hour),
		ExpiresAt: expires,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	sess := testSession(time.Now().Add(time.Hour))

	token, err := auth.GenerateToken(secret, sess)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.UserID != sess.User.ID {
		t.Errorf("user ID: got %v, want %v", claims.UserID, sess.User.ID)
	}
	if claims.Username != sess.User.Username {
		t.Errorf("username: got %v, want %v", claims.Username, sess.User.Username)
	}
	if claims.Role != sess.User.Role {
		t.Errorf("role: got %v, want %v", claims.Role, sess.User.Role)
	}
	if claims.ID != sess.ID {
		t.Errorf("session ID: got %v, want %v", claims.ID, sess.ID)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", testSession(time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret-b", token)
	if err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := auth.GenerateToken("secret", testSession(time.Now().Add(-time.Minute)))
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret", token)
	if err == nil {
		t.Fatal("expected error validating expired token")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not-a-jwt")
	if err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}
