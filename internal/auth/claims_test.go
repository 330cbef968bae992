package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-jwt-signing"

func TestGenerateAndParseAccessToken(t *testing.T) {
	token, err := GenerateAccessToken("usr-001", testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("GenerateAccessToken() returned empty token")
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	if claims.Subject != "usr-001" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "usr-001")
	}
	if claims.Role != TokenRoleUser {
		t.Errorf("Role = %q, want %q", claims.Role, TokenRoleUser)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}
}

func TestGenerateDeviceToken(t *testing.T) {
	token, err := GenerateDeviceToken("fdr-001", testSecret, 24)
	if err != nil {
		t.Fatalf("GenerateDeviceToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "fdr-001" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "fdr-001")
	}
	if claims.Role != TokenRoleDevice {
		t.Errorf("Role = %q, want %q", claims.Role, TokenRoleDevice)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("usr-001", "correct-secret", 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	_, err = ParseToken(token, "wrong-secret")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ParseToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestParseToken_Expired(t *testing.T) {
	now := time.Now()
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "usr-001",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
		Role: TokenRoleUser,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}

	if _, err := ParseToken(token, testSecret); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ParseToken() expired token error = %v, want ErrInvalidToken", err)
	}
}

func TestParseToken_MissingRole(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "usr-001",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}

	if _, err := ParseToken(token, testSecret); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ParseToken() role-less token error = %v, want ErrInvalidToken", err)
	}
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "usr-001",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: TokenRoleUser,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}

	if _, err := ParseToken(token, testSecret); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ParseToken() alg=none error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenService_ParseRole(t *testing.T) {
	svc := NewTokenService(testSecret, 15, 1440, 24)

	userToken, err := svc.IssueAccessToken("usr-001")
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	deviceToken, err := svc.IssueDeviceToken("fdr-001")
	if err != nil {
		t.Fatalf("IssueDeviceToken() error = %v", err)
	}

	if _, err := svc.ParseRole(userToken, TokenRoleUser); err != nil {
		t.Errorf("ParseRole(user token, user) error = %v", err)
	}
	if _, err := svc.ParseRole(deviceToken, TokenRoleDevice); err != nil {
		t.Errorf("ParseRole(device token, device) error = %v", err)
	}

	// A device token must never pass as a user and vice versa
	if _, err := svc.ParseRole(deviceToken, TokenRoleUser); !errors.Is(err, ErrWrongTokenRole) {
		t.Errorf("ParseRole(device token, user) error = %v, want ErrWrongTokenRole", err)
	}
	if _, err := svc.ParseRole(userToken, TokenRoleDevice); !errors.Is(err, ErrWrongTokenRole) {
		t.Errorf("ParseRole(user token, device) error = %v, want ErrWrongTokenRole", err)
	}
}

func TestTokenService_TTLDefaults(t *testing.T) {
	svc := NewTokenService(testSecret, 0, 0, 0)

	if got := svc.AccessTokenTTL(); got != 15*60 {
		t.Errorf("AccessTokenTTL() = %d, want %d", got, 15*60)
	}
	if got := svc.RefreshTokenTTL(); got != 24*time.Hour {
		t.Errorf("RefreshTokenTTL() = %v, want 24h", got)
	}
}

func TestRefreshToken(t *testing.T) {
	raw, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}
	if len(raw) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(raw))
	}

	other, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}
	if raw == other {
		t.Error("refresh tokens should be unique")
	}

	if HashRefreshToken(raw) != HashRefreshToken(raw) {
		t.Error("hash should be deterministic")
	}
	if HashRefreshToken(raw) == raw {
		t.Error("hash should differ from the raw token")
	}
}
