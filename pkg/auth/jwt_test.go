package auth

import (
	"strings"
	"testing"
	"time"
)

func newTestAuth(t *testing.T) *JWTAuth {
	t.Helper()
	a, err := NewJWTAuth("test-secret-key-for-unit-tests", 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewJWTAuth failed: %v", err)
	}
	return a
}

func TestNewJWTAuthRequiresSecret(t *testing.T) {
	if _, err := NewJWTAuth("", 0, 0); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	a := newTestAuth(t)

	access, refresh, err := a.GenerateTokens("user-1", "mosby", "ex0007", "CFO")
	if err != nil {
		t.Fatalf("GenerateTokens failed: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("expected non-empty tokens")
	}

	user, err := a.VerifyAccessToken(access)
	if err != nil {
		t.Fatalf("VerifyAccessToken failed: %v", err)
	}
	if user.ID != "user-1" || user.Username != "mosby" || user.EmployeeID != "ex0007" || user.Role != "CFO" {
		t.Errorf("unexpected user from token: %+v", user)
	}

	claims, err := a.VerifyRefreshToken(refresh)
	if err != nil {
		t.Fatalf("VerifyRefreshToken failed: %v", err)
	}
	if claims.TokenID == "" {
		t.Error("refresh token should carry a token ID")
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	a := newTestAuth(t)

	access, _, err := a.GenerateTokens("user-1", "mosby", "ex0007", "CFO")
	if err != nil {
		t.Fatalf("GenerateTokens failed: %v", err)
	}

	tampered := access[:len(access)-4] + "AAAA"
	if _, err := a.VerifyAccessToken(tampered); err == nil {
		t.Fatal("expected error for tampered token")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	a := newTestAuth(t)
	a.AccessTokenExpiry = -1 * time.Minute

	access, _, err := a.GenerateTokens("user-1", "mosby", "in4821", "Intern")
	if err != nil {
		t.Fatalf("GenerateTokens failed: %v", err)
	}

	if _, err := a.VerifyAccessToken(access); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestExtractToken(t *testing.T) {
	testCases := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"bearer", "Bearer abc123", "abc123", false},
		{"lowercase bearer", "bearer abc123", "abc123", false},
		{"empty", "", "", true},
		{"no scheme", "abc123", "", true},
		{"empty token", "Bearer ", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractToken(tc.header)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ExtractToken(%q) expected error", tc.header)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractToken(%q) unexpected error: %v", tc.header, err)
			}
			if got != tc.want {
				t.Errorf("ExtractToken(%q) = %q, want %q", tc.header, got, tc.want)
			}
		})
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	a := newTestAuth(t)

	hash, err := a.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !strings.HasPrefix(hash, "argon2id$") {
		t.Errorf("hash has unexpected format: %s", hash)
	}

	ok, err := a.VerifyPassword(hash, "hunter2")
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if !ok {
		t.Error("correct password should verify")
	}

	ok, err = a.VerifyPassword(hash, "wrong")
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if ok {
		t.Error("wrong password should not verify")
	}
}

func TestPasswordHashesAreSalted(t *testing.T) {
	a := newTestAuth(t)

	h1, err := a.HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	h2, err := a.HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	a := newTestAuth(t)
	if _, err := a.VerifyPassword("sha256$deadbeef", "pw"); err == nil {
		t.Fatal("expected error for non-argon2id hash")
	}
	if _, err := a.VerifyPassword("argon2id$onlyonepart", "pw"); err == nil {
		t.Fatal("expected error for malformed argon2id hash")
	}
}
