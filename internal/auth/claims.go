package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenRole distinguishes who a JWT authenticates.
type TokenRole string

const (
	// TokenRoleUser authenticates a human account on the REST API.
	TokenRoleUser TokenRole = "user"

	// TokenRoleDevice authenticates feeder hardware on the channel
	// endpoints. The subject is the feeder's internal ID.
	TokenRoleDevice TokenRole = "device"
)

// CustomClaims extends JWT standard claims with the token role.
type CustomClaims struct {
	jwt.RegisteredClaims
	Role TokenRole `json:"role"`
}

// GenerateAccessToken creates a signed JWT access token for a user.
// Access tokens are short-lived and validated by signature only (no DB hit).
func GenerateAccessToken(userID, secret string, ttlMinutes int) (string, error) {
	if ttlMinutes <= 0 {
		ttlMinutes = 15 //nolint:mnd // default 15-minute access token TTL
	}
	return generateToken(userID, TokenRoleUser, secret, time.Duration(ttlMinutes)*time.Minute)
}

// GenerateDeviceToken creates a signed long-lived JWT for feeder
// hardware. Devices store the token in flash and present it on every
// channel connection.
func GenerateDeviceToken(feederID, secret string, ttlHours int) (string, error) {
	if ttlHours <= 0 {
		ttlHours = 24 * 365 //nolint:mnd // default one-year device token TTL
	}
	return generateToken(feederID, TokenRoleDevice, secret, time.Duration(ttlHours)*time.Hour)
}

func generateToken(subject string, role TokenRole, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", role, err)
	}
	return signed, nil
}

// GenerateRefreshToken creates a cryptographically random refresh token (256-bit).
// The raw token is returned to the client; the hash is stored in the database.
func GenerateRefreshToken() (raw string, err error) {
	b := make([]byte, 32) //nolint:mnd // 256-bit token
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashRefreshToken returns the hex SHA-256 digest stored server-side.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ParseToken validates and parses a JWT, returning the custom claims.
// It checks the signature, expiry, and required fields.
func ParseToken(tokenString, secret string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	if claims.Role != TokenRoleUser && claims.Role != TokenRoleDevice {
		return nil, fmt.Errorf("%w: missing role", ErrInvalidToken)
	}

	return claims, nil
}

// TokenService wraps token generation and validation with the
// configured secret and TTLs.
type TokenService struct {
	secret         string
	accessTTLMins  int
	refreshTTLMins int
	deviceTTLHours int
}

// NewTokenService creates a token service.
func NewTokenService(secret string, accessTTLMins, refreshTTLMins, deviceTTLHours int) *TokenService {
	return &TokenService{
		secret:         secret,
		accessTTLMins:  accessTTLMins,
		refreshTTLMins: refreshTTLMins,
		deviceTTLHours: deviceTTLHours,
	}
}

// IssueAccessToken mints a short-lived user token.
func (s *TokenService) IssueAccessToken(userID string) (string, error) {
	return GenerateAccessToken(userID, s.secret, s.accessTTLMins)
}

// IssueDeviceToken mints a long-lived device token for a feeder.
func (s *TokenService) IssueDeviceToken(feederID string) (string, error) {
	return GenerateDeviceToken(feederID, s.secret, s.deviceTTLHours)
}

// AccessTokenTTL returns the access token lifetime in seconds, for
// login responses.
func (s *TokenService) AccessTokenTTL() int {
	mins := s.accessTTLMins
	if mins <= 0 {
		mins = 15
	}
	return mins * 60
}

// RefreshTokenTTL returns the refresh token lifetime.
func (s *TokenService) RefreshTokenTTL() time.Duration {
	mins := s.refreshTTLMins
	if mins <= 0 {
		mins = 24 * 60
	}
	return time.Duration(mins) * time.Minute
}

// Parse validates a token of either role.
func (s *TokenService) Parse(tokenString string) (*CustomClaims, error) {
	return ParseToken(tokenString, s.secret)
}

// ParseRole validates a token and additionally requires the given role.
func (s *TokenService) ParseRole(tokenString string, role TokenRole) (*CustomClaims, error) {
	claims, err := ParseToken(tokenString, s.secret)
	if err != nil {
		return nil, err
	}
	if claims.Role != role {
		return nil, ErrWrongTokenRole
	}
	return claims, nil
}
