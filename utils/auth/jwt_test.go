package auth

import (
	"testing"
	"time"
)

func newTestJWTManager(expiry time.Duration) *JWTManager {
	return NewJWTManager(JWTConfig{
		Secret: "test-secret-key",
		Expiry: expiry,
		Issuer: "sebastian-api-test",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	manager := newTestJWTManager(time.Hour)

	token, jti, err := manager.GenerateToken(7, "ciel", false)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if jti == "" {
		t.Error("expected a non-empty JTI")
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("UserID = %d, want 7", claims.UserID)
	}
	if claims.Username != "ciel" {
		t.Errorf("Username = %q, want ciel", claims.Username)
	}
	if claims.IsAdmin {
		t.Error("IsAdmin should be false")
	}
	if claims.ID != jti {
		t.Error("claims JTI does not match the generated JTI")
	}
}

func TestValidateTokenCarriesAdminFlag(t *testing.T) {
	manager := newTestJWTManager(time.Hour)

	token, _, err := manager.GenerateToken(1, "admin", true)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if !claims.IsAdmin {
		t.Error("admin flag was lost in the round trip")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	manager := newTestJWTManager(-time.Minute)

	token, _, err := manager.GenerateToken(7, "ciel", false)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := manager.ValidateToken(token); err != ErrExpiredToken {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	manager := newTestJWTManager(time.Hour)
	other := NewJWTManager(JWTConfig{
		Secret: "a-different-secret",
		Expiry: time.Hour,
		Issuer: "sebastian-api-test",
	})

	token, _, err := manager.GenerateToken(7, "ciel", false)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := other.ValidateToken(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateGarbageToken(t *testing.T) {
	manager := newTestJWTManager(time.Hour)

	if _, err := manager.ValidateToken("not.a.token"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
